// Package store holds the on-disk dataset format and the read-only
// repository store the query pipeline runs against.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Dataset is the JSON document a mining run produces and a sampling run
// consumes. The epoch is the point-in-time cutoff the dataset was taken at
// (e.g. December 2020); project ages are measured against it.
type Dataset struct {
	Epoch    time.Time       `json:"epoch"`
	Projects []ProjectRecord `json:"projects"`
	Commits  []CommitRecord  `json:"commits"`
	Trees    []TreeRecord    `json:"trees"`
}

// ProjectRecord is the serialized form of one project. CreatedAt is stored
// instead of an age so that the same dataset re-read under a different epoch
// stays meaningful.
type ProjectRecord struct {
	ID              uint64       `json:"id"`
	Name            string       `json:"name"`
	Language        string       `json:"language"`
	Stars           int          `json:"stars"`
	CreatedAt       time.Time    `json:"created_at"`
	Developers      int          `json:"developers"`
	Locs            int          `json:"locs"`
	SnapshotCount   int          `json:"snapshot_count"`
	CommitCount     int          `json:"commit_count"`
	CommitsWithData int          `json:"commits_with_data"`
	MaxHIndex       int          `json:"max_h_index"`
	DefaultBranch   string       `json:"default_branch,omitempty"`
	Heads           []HeadRecord `json:"heads,omitempty"`
}

// HeadRecord is a named ref pointing at a commit.
type HeadRecord struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// CommitRecord links a commit hash to the tree it owns.
type CommitRecord struct {
	ID   string `json:"id"`
	Tree uint64 `json:"tree"`
}

// TreeRecord keeps a tree's change list as raw JSON. Change lists dominate
// the dataset's size and most of them are never looked at by a sampling run,
// so they are decoded lazily by the store.
type TreeRecord struct {
	ID      uint64          `json:"id"`
	Changes json.RawMessage `json:"changes"`
}

// Save writes the dataset to path, replacing any previous file.
func Save(ds *Dataset, path string) error {
	data, err := json.MarshalIndent(ds, "", " ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}

// Read parses a dataset file without building a store around it.
func Read(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return &ds, nil
}
