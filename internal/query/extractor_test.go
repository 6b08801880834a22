package query

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// fakeStore is an in-memory Store for pipeline and extractor tests.
type fakeStore struct {
	projects []domain.Project
	commits  map[domain.CommitID]domain.Commit
	trees    map[domain.TreeID][]domain.Change
	treeErr  map[domain.TreeID]error
}

func (s *fakeStore) Projects() []domain.Project { return s.projects }

func (s *fakeStore) Commit(h domain.Head) (domain.Commit, bool) {
	c, ok := s.commits[h.Commit]
	return c, ok
}

func (s *fakeStore) Changes(t domain.TreeID) ([]domain.Change, error) {
	if err, ok := s.treeErr[t]; ok {
		return nil, err
	}
	return s.trees[t], nil
}

func strPtr(s string) *string { return &s }

func snapPtr(s domain.SnapshotID) *domain.SnapshotID { return &s }

// mappableStore returns a store with one fully resolvable project: default
// branch main, one head, one commit, a two-file tree.
func mappableStore() (*fakeStore, domain.Project) {
	p := domain.Project{
		ID:            1,
		Name:          "repo-a",
		Language:      "Python",
		DefaultBranch: "main",
		Heads:         []domain.Head{{Name: "refs/heads/main", Commit: "c1"}},
	}
	st := &fakeStore{
		projects: []domain.Project{p},
		commits:  map[domain.CommitID]domain.Commit{"c1": {ID: "c1", Tree: 10}},
		trees: map[domain.TreeID][]domain.Change{
			10: {
				{PathID: 1, Path: strPtr("README.md"), Snapshot: snapPtr("h1")},
				{PathID: 2, Path: strPtr("src/main.py"), Snapshot: snapPtr("h2")},
			},
		},
	}
	return st, p
}

func TestExtractor_Extract(t *testing.T) {
	happyStore, happyProject := mappableStore()

	testCases := []struct {
		name         string
		store        *fakeStore
		project      domain.Project
		expectedRows []domain.Row
		expectedStep Step
		expectFail   bool
		wantWarning  string
	}{
		{
			name:    "happy path - maps every tracked file",
			store:   happyStore,
			project: happyProject,
			expectedRows: []domain.Row{
				{Project: 1, Path: "README.md", Snapshot: "h1"},
				{Project: 1, Path: "src/main.py", Snapshot: "h2"},
			},
		},
		{
			name:         "no default branch",
			store:        happyStore,
			project:      domain.Project{ID: 2, Heads: []domain.Head{{Name: "refs/heads/main", Commit: "c1"}}},
			expectFail:   true,
			expectedStep: StepDefaultBranch,
			wantWarning:  "no default branch found for project 2, skipping.",
		},
		{
			name:         "no heads",
			store:        happyStore,
			project:      domain.Project{ID: 3, DefaultBranch: "main"},
			expectFail:   true,
			expectedStep: StepHeads,
			wantWarning:  "no heads found for project 3, skipping.",
		},
		{
			name:  "no head matches the default branch",
			store: happyStore,
			project: domain.Project{
				ID:            4,
				DefaultBranch: "main",
				Heads:         []domain.Head{{Name: "refs/heads/develop", Commit: "c1"}},
			},
			expectFail:   true,
			expectedStep: StepDefaultHead,
			wantWarning:  "no default head found for project 4, skipping.",
		},
		{
			name:  "head does not resolve to a commit",
			store: happyStore,
			project: domain.Project{
				ID:            5,
				DefaultBranch: "main",
				Heads:         []domain.Head{{Name: "refs/heads/main", Commit: "missing"}},
			},
			expectFail:   true,
			expectedStep: StepCommit,
			wantWarning:  "no commit found at default head (for commit id missing) for project 5, skipping.",
		},
		{
			name: "empty tree is valid and yields no rows",
			store: &fakeStore{
				commits: map[domain.CommitID]domain.Commit{"c1": {ID: "c1", Tree: 10}},
				trees:   map[domain.TreeID][]domain.Change{10: {}},
			},
			project: domain.Project{
				ID:            6,
				DefaultBranch: "main",
				Heads:         []domain.Head{{Name: "refs/heads/main", Commit: "c1"}},
			},
			expectedRows: []domain.Row{},
		},
		{
			name: "unreadable tree",
			store: &fakeStore{
				commits: map[domain.CommitID]domain.Commit{"c1": {ID: "c1", Tree: 10}},
				treeErr: map[domain.TreeID]error{10: errors.New("failed to decode tree 10")},
			},
			project: domain.Project{
				ID:            7,
				DefaultBranch: "main",
				Heads:         []domain.Head{{Name: "refs/heads/main", Commit: "c1"}},
			},
			expectFail:   true,
			expectedStep: StepTree,
			wantWarning:  "failed to decode tree 10 for project 7, skipping.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			extractor := NewExtractor(tc.store, log.New(&buf, "", 0))

			rows, err := extractor.Extract(tc.project)

			if tc.expectFail {
				require.NotNil(t, err)
				assert.Equal(t, tc.project.ID, err.Project)
				assert.Equal(t, tc.expectedStep, err.Step)
				assert.Nil(t, rows)
			} else {
				require.Nil(t, err)
				assert.Equal(t, tc.expectedRows, rows)
			}
			if tc.wantWarning != "" {
				assert.Contains(t, buf.String(), tc.wantWarning)
			}

			// The predicate form must agree with the full extraction,
			// whatever the case.
			assert.Equal(t, !tc.expectFail, extractor.CanExtract(tc.project))
		})
	}
}

func TestExtractor_AmbiguousDefaultHead(t *testing.T) {
	st := &fakeStore{
		commits: map[domain.CommitID]domain.Commit{
			"c1": {ID: "c1", Tree: 10},
			"c2": {ID: "c2", Tree: 20},
		},
		trees: map[domain.TreeID][]domain.Change{
			10: {{PathID: 1, Path: strPtr("a.py"), Snapshot: snapPtr("h1")}},
			20: {{PathID: 2, Path: strPtr("b.py"), Snapshot: snapPtr("h2")}},
		},
	}
	p := domain.Project{
		ID:            9,
		DefaultBranch: "main",
		Heads: []domain.Head{
			{Name: "refs/heads/main", Commit: "c1"},
			{Name: "refs/heads/main", Commit: "c2"},
		},
	}

	var buf bytes.Buffer
	extractor := NewExtractor(st, log.New(&buf, "", 0))

	rows, err := extractor.Extract(p)
	require.Nil(t, err)

	// The first matching head wins, deterministically, and the ambiguity
	// is reported exactly once.
	assert.Equal(t, []domain.Row{{Project: 9, Path: "a.py", Snapshot: "h1"}}, rows)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("multiple (2) default heads found for project 9")))
}

func TestExtractor_ChangeSkipping(t *testing.T) {
	st := &fakeStore{
		commits: map[domain.CommitID]domain.Commit{"c1": {ID: "c1", Tree: 10}},
		trees: map[domain.TreeID][]domain.Change{
			10: {
				{PathID: 1, Path: strPtr("kept.py"), Snapshot: snapPtr("h1")},
				// Deleted file: path present, snapshot absent.
				{PathID: 2, Path: strPtr("deleted.py"), Snapshot: nil},
				// Store inconsistency: path absent.
				{PathID: 3, Path: nil, Snapshot: snapPtr("h3")},
			},
		},
	}
	p := domain.Project{
		ID:            11,
		DefaultBranch: "main",
		Heads:         []domain.Head{{Name: "refs/heads/main", Commit: "c1"}},
	}

	var buf bytes.Buffer
	extractor := NewExtractor(st, log.New(&buf, "", 0))

	rows, err := extractor.Extract(p)
	require.Nil(t, err)
	assert.Equal(t, []domain.Row{{Project: 11, Path: "kept.py", Snapshot: "h1"}}, rows)

	// The deletion is dropped silently; only the pathless change warns.
	assert.NotContains(t, buf.String(), "path id 2")
	assert.Contains(t, buf.String(), "path not found for project 11 for path id 3, skipping this change.")
}

func TestExtractor_Idempotent(t *testing.T) {
	st, p := mappableStore()
	extractor := NewExtractor(st, log.New(&bytes.Buffer{}, "", 0))

	first, err1 := extractor.Extract(p)
	second, err2 := extractor.Extract(p)
	require.Nil(t, err1)
	require.Nil(t, err2)
	assert.Equal(t, first, second)
}
