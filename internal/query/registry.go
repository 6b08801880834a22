package query

import (
	"strings"
	"time"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// SelectionSize is the nominal size of every sample this system draws.
const SelectionSize = 1020

// Oversample is how many extra candidates the first sampling pass draws on
// top of the nominal size, to check the population holds enough extractable
// projects before the final draw.
const Oversample = 1000

// TopCandidates is the oversized cut the stars pipelines take before
// filtering for extractability.
const TopCandidates = 1500

// MinCommitRatio is the commit-coverage floor for distinct-random draws.
const MinCommitRatio = 0.9

// Sampling seeds, one per sampling round. Successive passes of one query
// reuse the round's seed on purpose; distinct rounds use distinct seeds so
// they never silently share randomness.
var (
	SeedAll             = Seed{Lo: 1}
	Seed100Loc7D10C     = Seed{Lo: 2}
	Seed1000Loc180D100C = Seed{Lo: 3}
)

// Spec is one registered query: which slice of the population to consider,
// how to sample it, and where the resulting rows go.
type Spec struct {
	Name       string
	Language   string
	Thresholds []Predicate
	// Strategy builds the sampling strategy of this query at a given
	// size; both passes of a run go through it so they share a family
	// and a seed.
	Strategy  func(size int) Strategy
	Size      int
	Pass1Size int
	// ResampleSurvivors makes the final pass draw from the extractable
	// candidates of pass 1 instead of the whole population. The top-K
	// pipelines work this way; the random ones re-draw from the
	// population and use pass 1 only to detect shortfall up front.
	ResampleSurvivors bool
	Filename          string
}

// OutputSubdir is the per-language directory a query's CSV lands in, so the
// three languages' identically named files do not clobber each other.
func (s Spec) OutputSubdir() string {
	return strings.ToLower(s.Language)
}

// developed builds the maturity thresholds of one "developed" query.
func developed(hIndex int, ageDays int, devs, locs, snapshots, commits int) []Predicate {
	return []Predicate{
		AtLeast(domain.HIndex, float64(hIndex)),
		AtLeastAge(time.Duration(ageDays) * 24 * time.Hour),
		AtLeast(domain.Developers, float64(devs)),
		AtLeast(domain.Locs, float64(locs)),
		AtLeast(domain.Snapshots, float64(snapshots)),
		AtLeast(domain.Commits, float64(commits)),
	}
}

// Registry returns every registered query. Each entry fixes a language, a
// strategy family, a seed and an output filename; the driver just iterates.
func Registry() []Spec {
	languages := []struct {
		tag       string
		suffix    string
		developed []Predicate
		// The all-projects query for Java additionally gates on
		// commit coverage; for the other two languages it is a plain
		// uniform draw.
		all func(size int) Strategy
	}{
		{
			tag:       "Java",
			suffix:    "java",
			developed: developed(3, 364, 3, 716, 20, 26),
			all: func(size int) Strategy {
				return DistinctRandom{N: size, Seed: SeedAll, Ratio: domain.CommitCoverage, Min: MinCommitRatio}
			},
		},
		{
			tag:       "Python",
			suffix:    "py",
			developed: developed(3, 240, 3, 286, 18, 23),
			all: func(size int) Strategy {
				return Random{N: size, Seed: SeedAll}
			},
		},
		{
			tag:       "JavaScript",
			suffix:    "js",
			developed: developed(1, 46, 2, 307, 16, 14),
			all: func(size int) Strategy {
				return Random{N: size, Seed: SeedAll}
			},
		},
	}

	var specs []Spec
	for _, lang := range languages {
		specs = append(specs,
			Spec{
				Name:     "sample_stars_" + lang.suffix,
				Language: lang.tag,
				Strategy: func(size int) Strategy {
					return Top{K: size, By: domain.Stars}
				},
				Size:              SelectionSize,
				Pass1Size:         TopCandidates,
				ResampleSurvivors: true,
				Filename:          "sample_stars.csv",
			},
			Spec{
				Name:      "sample_all_" + lang.suffix,
				Language:  lang.tag,
				Strategy:  lang.all,
				Size:      SelectionSize,
				Pass1Size: SelectionSize + Oversample,
				Filename:  "sample_all.csv",
			},
			Spec{
				Name:       "sample_developed_" + lang.suffix,
				Language:   lang.tag,
				Thresholds: lang.developed,
				Strategy: func(size int) Strategy {
					return DistinctRandom{N: size, Seed: Seed100Loc7D10C, Ratio: domain.CommitCoverage, Min: MinCommitRatio}
				},
				Size:      SelectionSize,
				Pass1Size: SelectionSize + Oversample,
				Filename:  "sample_developed.csv",
			},
		)
	}
	return specs
}
