package store

import (
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// treeCacheSize bounds how many decoded change lists the store keeps in
// memory at once. The two-pass sampling policy resolves every surviving
// project's tree twice, so the cache needs to comfortably hold one pass's
// worth of trees.
const treeCacheSize = 4096

// DB is a read-only view over one loaded dataset. It is safe for concurrent
// use: the underlying maps are never written after construction and the tree
// cache locks internally.
type DB struct {
	epoch     time.Time
	projects  []domain.Project
	commits   map[domain.CommitID]domain.Commit
	trees     map[domain.TreeID]json.RawMessage
	treeCache *lru.Cache[domain.TreeID, []domain.Change]
}

// Open loads a dataset file and builds a store over it.
func Open(path string) (*DB, error) {
	ds, err := Read(path)
	if err != nil {
		return nil, err
	}
	return New(ds)
}

// New builds a store over an in-memory dataset.
func New(ds *Dataset) (*DB, error) {
	cache, err := lru.New[domain.TreeID, []domain.Change](treeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree cache: %w", err)
	}
	db := &DB{
		epoch:     ds.Epoch,
		projects:  make([]domain.Project, 0, len(ds.Projects)),
		commits:   make(map[domain.CommitID]domain.Commit, len(ds.Commits)),
		trees:     make(map[domain.TreeID]json.RawMessage, len(ds.Trees)),
		treeCache: cache,
	}
	for _, pr := range ds.Projects {
		p := domain.Project{
			ID:              domain.ProjectID(pr.ID),
			Name:            pr.Name,
			Language:        pr.Language,
			Stars:           pr.Stars,
			Age:             ds.Epoch.Sub(pr.CreatedAt),
			Developers:      pr.Developers,
			Locs:            pr.Locs,
			SnapshotCount:   pr.SnapshotCount,
			CommitCount:     pr.CommitCount,
			CommitsWithData: pr.CommitsWithData,
			MaxHIndex:       pr.MaxHIndex,
			DefaultBranch:   pr.DefaultBranch,
		}
		for _, h := range pr.Heads {
			p.Heads = append(p.Heads, domain.Head{
				Name:   h.Name,
				Commit: domain.CommitID(h.Commit),
			})
		}
		db.projects = append(db.projects, p)
	}
	for _, cr := range ds.Commits {
		db.commits[domain.CommitID(cr.ID)] = domain.Commit{
			ID:   domain.CommitID(cr.ID),
			Tree: domain.TreeID(cr.Tree),
		}
	}
	for _, tr := range ds.Trees {
		db.trees[domain.TreeID(tr.ID)] = tr.Changes
	}
	return db, nil
}

// Epoch is the point-in-time cutoff the dataset was taken at.
func (db *DB) Epoch() time.Time {
	return db.epoch
}

// Projects returns the full project population in dataset order.
func (db *DB) Projects() []domain.Project {
	return db.projects
}

// Commit resolves a head to the commit it points at.
func (db *DB) Commit(h domain.Head) (domain.Commit, bool) {
	c, ok := db.commits[h.Commit]
	return c, ok
}

// Changes returns the full file listing of a tree, decoding it on first use.
// A missing tree yields an empty listing, not an error; a tree whose change
// list fails to parse is an error.
func (db *DB) Changes(id domain.TreeID) ([]domain.Change, error) {
	if cached, ok := db.treeCache.Get(id); ok {
		return cached, nil
	}
	raw, ok := db.trees[id]
	if !ok {
		return nil, nil
	}
	var changes []domain.Change
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("failed to decode tree %d: %w", id, err)
	}
	db.treeCache.Add(id, changes)
	return changes, nil
}
