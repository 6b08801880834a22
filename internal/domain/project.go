// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// ProjectID identifies one project in the dataset.
type ProjectID uint64

// PathID identifies a tracked file path. It is carried through the
// extraction pipeline only so that warnings about broken change entries
// can name the path they refer to.
type PathID uint64

// CommitID is a commit hash.
type CommitID string

// SnapshotID is the content identifier (hash) of one file's bytes at one
// point in history.
type SnapshotID string

// TreeID identifies the file-system state owned by a commit.
type TreeID uint64

// Head is a named pointer into a project's commit graph, e.g.
// "refs/heads/main" -> some commit.
type Head struct {
	Name   string
	Commit CommitID
}

// Project is the read-only view of one mined repository. All attributes are
// supplied by the store at dataset-build time and never mutated afterwards.
type Project struct {
	ID       ProjectID
	Name     string
	Language string

	Stars           int
	Age             time.Duration
	Developers      int
	Locs            int
	SnapshotCount   int
	CommitCount     int
	CommitsWithData int
	MaxHIndex       int

	// DefaultBranch names the branch whose head is canonical for
	// extraction. Empty when the miner could not determine one.
	DefaultBranch string
	Heads         []Head
}

// Commit owns exactly one tree, the file-system state at that commit.
type Commit struct {
	ID   CommitID
	Tree TreeID
}

// Change describes one tracked file in a commit's tree: its path and the
// content identifier of its bytes. Path and Snapshot are both optional: a
// present path with an absent snapshot id is the normal representation of a
// file that has been deleted by this point, while an absent path is a
// store-internal inconsistency.
type Change struct {
	PathID   PathID      `json:"path_id"`
	Path     *string     `json:"path,omitempty"`
	Snapshot *SnapshotID `json:"hash,omitempty"`
}

// Row is one line of the output format: which file, in which project, with
// which content.
type Row struct {
	Project  ProjectID
	Path     string
	Snapshot SnapshotID
}
