package query

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// addProject puts a Python project into the store; extractable projects get
// a head, a commit and a one-file tree named after the project.
func addProject(st *fakeStore, id domain.ProjectID, stars int, extractable bool) {
	p := domain.Project{
		ID:              id,
		Name:            fmt.Sprintf("repo-%d", id),
		Language:        "Python",
		Stars:           stars,
		CommitCount:     10,
		CommitsWithData: 10,
	}
	if extractable {
		commit := domain.CommitID(fmt.Sprintf("c%d", id))
		tree := domain.TreeID(id)
		p.DefaultBranch = "main"
		p.Heads = []domain.Head{{Name: "refs/heads/main", Commit: commit}}
		st.commits[commit] = domain.Commit{ID: commit, Tree: tree}
		st.trees[tree] = []domain.Change{
			{PathID: domain.PathID(id), Path: strPtr(fmt.Sprintf("file-%d.py", id)), Snapshot: snapPtr(domain.SnapshotID(fmt.Sprintf("h%d", id)))},
		}
	}
	st.projects = append(st.projects, p)
}

func newTestStore() *fakeStore {
	return &fakeStore{
		commits: make(map[domain.CommitID]domain.Commit),
		trees:   make(map[domain.TreeID][]domain.Change),
	}
}

func topSpec(size, pass1 int, filename string) Spec {
	return Spec{
		Name:     "test_stars",
		Language: "Python",
		Strategy: func(n int) Strategy {
			return Top{K: n, By: domain.Stars}
		},
		Size:              size,
		Pass1Size:         pass1,
		ResampleSurvivors: true,
		Filename:          filename,
	}
}

func readCSV(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestPipeline_TopQuerySkipsUnextractableProjects(t *testing.T) {
	st := newTestStore()
	addProject(st, 1, 100, true)
	addProject(st, 2, 90, false) // highly starred but not extractable
	addProject(st, 3, 80, true)
	addProject(st, 4, 70, true)

	dir := t.TempDir()
	pipeline := NewPipeline(st, dir, 1, log.New(&bytes.Buffer{}, "", 0))

	require.NoError(t, pipeline.Run(topSpec(2, 4, "sample_stars.csv")))

	lines := readCSV(t, filepath.Join(dir, "python", "sample_stars.csv"))
	// Project 2 lost its slot to project 3; the final top-2 ranks only
	// extractable candidates.
	assert.Equal(t, []string{
		"pid,path,hash_id",
		"1,file-1.py,h1",
		"3,file-3.py,h3",
	}, lines)
}

func TestPipeline_HeaderOnEmptySample(t *testing.T) {
	st := newTestStore()
	addProject(st, 1, 10, true)

	dir := t.TempDir()
	pipeline := NewPipeline(st, dir, 1, log.New(&bytes.Buffer{}, "", 0))

	spec := topSpec(2, 4, "sample_stars.csv")
	spec.Language = "Java" // nothing matches
	require.NoError(t, pipeline.Run(spec))

	lines := readCSV(t, filepath.Join(dir, "java", "sample_stars.csv"))
	assert.Equal(t, []string{"pid,path,hash_id"}, lines)
}

func TestPipeline_DeterministicAcrossWorkerCounts(t *testing.T) {
	st := newTestStore()
	for i := 1; i <= 40; i++ {
		addProject(st, domain.ProjectID(i), i, i%4 != 0)
	}
	spec := Spec{
		Name:     "test_all",
		Language: "Python",
		Strategy: func(n int) Strategy {
			return Random{N: n, Seed: Seed{Lo: 11}}
		},
		Size:      10,
		Pass1Size: 20,
		Filename:  "sample_all.csv",
	}

	var outputs []string
	for _, jobs := range []int{1, 4, 16} {
		dir := t.TempDir()
		pipeline := NewPipeline(st, dir, jobs, log.New(&bytes.Buffer{}, "", 0))
		require.NoError(t, pipeline.Run(spec))
		data, err := os.ReadFile(filepath.Join(dir, "python", "sample_all.csv"))
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestPipeline_ReportsShortfall(t *testing.T) {
	st := newTestStore()
	addProject(st, 1, 10, true)
	addProject(st, 2, 20, false)
	addProject(st, 3, 30, false)

	var buf bytes.Buffer
	pipeline := NewPipeline(st, t.TempDir(), 1, log.New(&buf, "", 0))

	spec := Spec{
		Name:     "test_all",
		Language: "Python",
		Strategy: func(n int) Strategy {
			return Random{N: n, Seed: Seed{Lo: 1}}
		},
		Size:      3,
		Pass1Size: 5,
		Filename:  "sample_all.csv",
	}
	require.NoError(t, pipeline.Run(spec))

	assert.Contains(t, buf.String(), "only 1 of 3 candidates are extractable")
}

func TestPipeline_RandomFinalDropsUnextractableAtExtraction(t *testing.T) {
	st := newTestStore()
	addProject(st, 1, 10, true)
	addProject(st, 2, 20, false)
	addProject(st, 3, 30, true)

	dir := t.TempDir()
	pipeline := NewPipeline(st, dir, 2, log.New(&bytes.Buffer{}, "", 0))

	spec := Spec{
		Name:     "test_all",
		Language: "Python",
		Strategy: func(n int) Strategy {
			return Random{N: n, Seed: Seed{Lo: 4}}
		},
		Size:      3,
		Pass1Size: 3,
		Filename:  "sample_all.csv",
	}
	require.NoError(t, pipeline.Run(spec))

	lines := readCSV(t, filepath.Join(dir, "python", "sample_all.csv"))
	require.GreaterOrEqual(t, len(lines), 1)
	assert.Equal(t, "pid,path,hash_id", lines[0])
	for _, line := range lines[1:] {
		// The unextractable project contributes no rows even though
		// the final draw may have selected it.
		assert.False(t, strings.HasPrefix(line, "2,"), "unexpected row %q", line)
	}
	assert.Len(t, lines, 3) // header + the two extractable projects
}
