package query

import (
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// Seed is a named 128-bit sampling seed. Every sampling call is seeded
// independently from one of these constants, so which projects get chosen
// depends only on the seed and the candidate population, never on call order
// or on how many workers ran.
type Seed struct {
	Hi, Lo uint64
}

// Strategy draws a bounded subset of a candidate population. Implementations
// must be deterministic: the same population in the same order always yields
// the same sample.
type Strategy interface {
	Sample(population []domain.Project) []domain.Project
}

// Top selects the K highest-ranked projects by a metric, ties broken by
// population order.
type Top struct {
	K  int
	By domain.Metric
}

func (t Top) Sample(population []domain.Project) []domain.Project {
	out := slices.Clone(population)
	sort.SliceStable(out, func(i, j int) bool {
		return t.By(out[i]) > t.By(out[j])
	})
	if len(out) > t.K {
		out = out[:t.K]
	}
	return out
}

// Random selects N projects uniformly without replacement.
type Random struct {
	N    int
	Seed Seed
}

func (r Random) Sample(population []domain.Project) []domain.Project {
	out := make([]domain.Project, 0, min(r.N, len(population)))
	for _, i := range shuffledIndices(len(population), r.Seed) {
		if len(out) == r.N {
			break
		}
		out = append(out, population[i])
	}
	return out
}

// DistinctRandom selects N projects uniformly without replacement, never
// yielding the same project twice even if the population contains duplicate
// entries, and only accepting candidates whose Ratio metric is at least Min.
// Rejected candidates do not count against N, so the draw keeps consuming
// the pool until the quota is met or the pool runs out; only in the latter
// case does it return fewer than N projects.
type DistinctRandom struct {
	N     int
	Seed  Seed
	Ratio domain.Metric
	Min   float64
}

func (d DistinctRandom) Sample(population []domain.Project) []domain.Project {
	out := make([]domain.Project, 0, d.N)
	seen := make(map[domain.ProjectID]struct{}, d.N)
	for _, i := range shuffledIndices(len(population), d.Seed) {
		if len(out) == d.N {
			break
		}
		candidate := population[i]
		if _, dup := seen[candidate.ID]; dup {
			continue
		}
		seen[candidate.ID] = struct{}{}
		if d.Ratio(candidate) < d.Min {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// shuffledIndices returns 0..n-1 in the order a fresh generator seeded with s
// visits them. Both random strategies draw through this one permutation, so a
// strategy re-run with the same seed but a smaller quota selects a prefix of
// the larger run's candidates.
func shuffledIndices(n int, s Seed) []int {
	rng := rand.New(rand.NewPCG(s.Hi, s.Lo))
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}
