package query

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
	"github.com/PRL-PRG/what-constitutes-software-query/internal/export"
)

// Store is the repository store a pipeline runs against.
type Store interface {
	Projects() []domain.Project
	HistoryStore
}

// Pipeline executes registered queries against a store and writes their
// samples out as CSV files.
type Pipeline struct {
	store     Store
	extractor *Extractor
	logger    *log.Logger
	outputDir string
	jobs      int
}

// NewPipeline creates a Pipeline writing under outputDir. jobs bounds the
// per-project parallelism; values below 1 mean one worker per CPU.
func NewPipeline(store Store, outputDir string, jobs int, logger *log.Logger) *Pipeline {
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{
		store:     store,
		extractor: NewExtractor(store, logger),
		logger:    logger,
		outputDir: outputDir,
		jobs:      jobs,
	}
}

// Run executes one query end to end: criteria filter, oversized first
// sampling pass checked for extractability, final sampling pass, extraction,
// CSV export. Per-project failures are logged and dropped; the only error
// Run returns is a failure to write the output file.
func (pl *Pipeline) Run(spec Spec) error {
	predicates := append([]Predicate{Language(spec.Language)}, spec.Thresholds...)
	population := Filter(pl.store.Projects(), predicates...)
	pl.logger.Printf("%s: %d projects match criteria.", spec.Name, len(population))
	LogSummary(pl.logger, spec.Name, population)

	// Pass 1: oversized draw, checked against the extractor's predicate
	// form so a thin population is reported before the final draw.
	candidates := spec.Strategy(spec.Pass1Size).Sample(population)
	extractable := pl.filterExtractable(candidates)
	if len(extractable) < spec.Size {
		pl.logger.Printf("WARNING: %s: only %d of %d candidates are extractable, the final sample will fall short of %d.",
			spec.Name, len(extractable), len(candidates), spec.Size)
	}

	// Pass 2: the final draw, same strategy family and seed at nominal
	// size. Top-K pipelines re-rank the extractable survivors; random
	// pipelines re-draw the seeded sequence from the population.
	pool := population
	if spec.ResampleSurvivors {
		pool = extractable
	}
	sample := spec.Strategy(spec.Size).Sample(pool)
	if len(sample) < spec.Size {
		pl.logger.Printf("WARNING: %s: sampled %d projects, %d requested.",
			spec.Name, len(sample), spec.Size)
	}

	rows := pl.extractAll(sample)

	dir := filepath.Join(pl.outputDir, spec.OutputSubdir())
	if err := export.WriteCSV(dir, spec.Filename, rows); err != nil {
		return fmt.Errorf("%s: %w", spec.Name, err)
	}
	pl.logger.Printf("%s: wrote %d rows from %d projects to %s.",
		spec.Name, len(rows), len(sample), filepath.Join(dir, spec.Filename))
	return nil
}

// filterExtractable keeps the candidates the extractor can map, evaluated in
// parallel but returned in candidate order.
func (pl *Pipeline) filterExtractable(candidates []domain.Project) []domain.Project {
	keep := make([]bool, len(candidates))
	var eg errgroup.Group
	eg.SetLimit(pl.jobs)
	for i := range candidates {
		eg.Go(func() error {
			keep[i] = pl.extractor.CanExtract(candidates[i])
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]domain.Project, 0, len(candidates))
	for i, p := range candidates {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// extractAll maps every sampled project to its rows, in parallel, flattened
// in sample order so the CSV row order is independent of worker count.
// Projects that fail to extract contribute no rows; the extractor has
// already logged why.
func (pl *Pipeline) extractAll(sample []domain.Project) []domain.Row {
	perProject := make([][]domain.Row, len(sample))
	var eg errgroup.Group
	eg.SetLimit(pl.jobs)
	for i := range sample {
		eg.Go(func() error {
			rows, err := pl.extractor.Extract(sample[i])
			if err == nil {
				perProject[i] = rows
			}
			return nil
		})
	}
	_ = eg.Wait()

	var rows []domain.Row
	for _, list := range perProject {
		rows = append(rows, list...)
	}
	return rows
}
