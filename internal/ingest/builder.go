// Package ingest mines repository metadata from GitHub into the dataset
// format the sampling store loads.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
	"github.com/PRL-PRG/what-constitutes-software-query/internal/gateway"
	"github.com/PRL-PRG/what-constitutes-software-query/internal/store"
)

// bytesPerLine approximates lines of code from language byte counts; GitHub
// only exposes bytes.
const bytesPerLine = 30

// Builder assembles a Dataset from what a Fetcher reports about one
// organization's repositories.
type Builder struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
	jobs    int
}

// NewBuilder creates a Builder. jobs bounds the per-repository parallelism;
// values below 1 mean one worker per CPU.
func NewBuilder(fetcher gateway.Fetcher, jobs int, logger *log.Logger) *Builder {
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Builder{fetcher: fetcher, logger: logger, jobs: jobs}
}

// mined is everything fetched for one repository. A repository whose facts
// could not be fetched is skipped entirely; one whose head tree could not be
// fetched keeps its metadata but gets no heads, which the extractor will
// later report and skip.
type mined struct {
	ok      bool
	facts   gateway.RepoFacts
	headSHA string
	entries []gateway.TreeEntry
}

// Build mines every repository of org whose language matches and assembles
// the results into a dataset cut at epoch. Repositories are fetched in
// parallel but assembled in listing order, so repeated runs against the same
// upstream state produce identical datasets.
func (b *Builder) Build(ctx context.Context, org, language string, epoch time.Time) (*store.Dataset, error) {
	names, err := b.fetcher.ListRepos(ctx, org, language)
	if err != nil {
		return nil, err
	}

	results := make([]mined, len(names))
	var eg errgroup.Group
	eg.SetLimit(b.jobs)
	for i := range names {
		eg.Go(func() error {
			results[i] = b.mine(ctx, org, names[i])
			return nil
		})
	}
	_ = eg.Wait()

	ds := &store.Dataset{Epoch: epoch}
	pathIDs := make(map[string]domain.PathID)
	for _, r := range results {
		if !r.ok {
			continue
		}
		if err := appendRepo(ds, language, r, pathIDs); err != nil {
			return nil, err
		}
	}
	b.logger.Printf("Dataset holds %d of %d repositories.", len(ds.Projects), len(names))
	return ds, nil
}

func (b *Builder) mine(ctx context.Context, org, name string) mined {
	facts, err := b.fetcher.FetchFacts(ctx, org, name)
	if err != nil {
		b.logger.Printf("WARNING: skipping %s/%s: %v", org, name, err)
		return mined{}
	}
	r := mined{ok: true, facts: facts}
	if facts.DefaultBranch == "" {
		b.logger.Printf("WARNING: %s/%s has no default branch, recording without heads.", org, name)
		return r
	}
	sha, entries, err := b.fetcher.FetchHeadTree(ctx, org, name, facts.DefaultBranch)
	if err != nil {
		b.logger.Printf("WARNING: %s/%s: %v, recording without heads.", org, name, err)
		return r
	}
	r.headSHA = sha
	r.entries = entries
	return r
}

// appendRepo adds one mined repository to the dataset, assigning the next
// project id and interning path ids across the whole dataset.
func appendRepo(ds *store.Dataset, language string, r mined, pathIDs map[string]domain.PathID) error {
	record := store.ProjectRecord{
		ID:            uint64(len(ds.Projects)),
		Name:          r.facts.Name,
		Language:      language,
		Stars:         r.facts.Stars,
		CreatedAt:     r.facts.CreatedAt,
		Developers:    r.facts.Developers,
		Locs:          r.facts.CodeBytes / bytesPerLine,
		SnapshotCount: len(r.entries),
		CommitCount:   r.facts.Commits,
		// The history metrics come straight from the upstream API, so
		// every claimed commit is accounted for in this dataset.
		CommitsWithData: r.facts.Commits,
		MaxHIndex:       0,
		DefaultBranch:   r.facts.DefaultBranch,
	}

	if r.headSHA != "" {
		treeID := uint64(len(ds.Trees))
		changes := make([]domain.Change, 0, len(r.entries))
		for _, entry := range r.entries {
			id, known := pathIDs[entry.Path]
			if !known {
				id = domain.PathID(len(pathIDs))
				pathIDs[entry.Path] = id
			}
			path := entry.Path
			hash := domain.SnapshotID(entry.Hash)
			changes = append(changes, domain.Change{PathID: id, Path: &path, Snapshot: &hash})
		}
		raw, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("failed to encode tree of %s: %w", r.facts.Name, err)
		}
		ds.Trees = append(ds.Trees, store.TreeRecord{ID: treeID, Changes: raw})
		ds.Commits = append(ds.Commits, store.CommitRecord{ID: r.headSHA, Tree: treeID})
		record.Heads = []store.HeadRecord{{
			Name:   "refs/heads/" + r.facts.DefaultBranch,
			Commit: r.headSHA,
		}}
	}

	ds.Projects = append(ds.Projects, record)
	return nil
}
