package query

import (
	"fmt"
	"log"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// HistoryStore is the slice of the repository store the extractor needs:
// resolving heads to commits and commits' trees to file listings.
type HistoryStore interface {
	Commit(h domain.Head) (domain.Commit, bool)
	Changes(t domain.TreeID) ([]domain.Change, error)
}

// Step names the stage of the resolution chain at which extraction gave up.
type Step int

const (
	StepDefaultBranch Step = iota
	StepHeads
	StepDefaultHead
	StepCommit
	StepTree
)

func (s Step) String() string {
	switch s {
	case StepDefaultBranch:
		return "default branch"
	case StepHeads:
		return "heads"
	case StepDefaultHead:
		return "default head"
	case StepCommit:
		return "commit"
	case StepTree:
		return "tree"
	default:
		return "unknown"
	}
}

// ExtractError reports that one project could not be mapped to the output
// format, tagged with the resolution step that failed. It is recoverable:
// the pipeline drops the project and moves on.
type ExtractError struct {
	Project domain.ProjectID
	Step    Step
	Reason  string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("project %d: %s", e.Project, e.Reason)
}

// Extractor resolves one project's default branch to its head commit and
// maps that commit's tree to (project, path, snapshot) rows.
type Extractor struct {
	store  HistoryStore
	logger *log.Logger
}

// NewExtractor creates an Extractor. Warnings about skipped projects and
// broken change entries go to logger.
func NewExtractor(store HistoryStore, logger *log.Logger) *Extractor {
	return &Extractor{store: store, logger: logger}
}

// Extract maps a project to its output rows, or fails with a step-tagged
// reason. Each step of the resolution chain short-circuits: default branch,
// then heads, then the head matching the default branch's ref path, then
// that head's commit, then the commit's tree. A commit whose tree lists no
// changes is not a failure; it just yields no rows.
func (e *Extractor) Extract(p domain.Project) ([]domain.Row, *ExtractError) {
	if p.DefaultBranch == "" {
		return nil, e.fail(p.ID, StepDefaultBranch, "no default branch found")
	}
	if len(p.Heads) == 0 {
		return nil, e.fail(p.ID, StepHeads, "no heads found")
	}

	defaultRef := "refs/heads/" + p.DefaultBranch
	var defaultHeads []domain.Head
	for _, h := range p.Heads {
		if h.Name == defaultRef {
			defaultHeads = append(defaultHeads, h)
		}
	}
	if len(defaultHeads) == 0 {
		return nil, e.fail(p.ID, StepDefaultHead, "no default head found")
	}
	if len(defaultHeads) > 1 {
		e.logger.Printf("WARNING: multiple (%d) default heads found for project %d, using whichever is first.",
			len(defaultHeads), p.ID)
	}
	head := defaultHeads[0]

	commit, ok := e.store.Commit(head)
	if !ok {
		return nil, e.fail(p.ID, StepCommit,
			fmt.Sprintf("no commit found at default head (for commit id %s)", head.Commit))
	}

	changes, err := e.store.Changes(commit.Tree)
	if err != nil {
		return nil, e.fail(p.ID, StepTree, err.Error())
	}

	rows := make([]domain.Row, 0, len(changes))
	for _, change := range changes {
		if change.Path == nil {
			e.logger.Printf("WARNING: path not found for project %d for path id %d, skipping this change.",
				p.ID, change.PathID)
			continue
		}
		if change.Snapshot == nil {
			// Normal: the file existed earlier in history but is
			// deleted at this commit.
			continue
		}
		rows = append(rows, domain.Row{
			Project:  p.ID,
			Path:     *change.Path,
			Snapshot: *change.Snapshot,
		})
	}
	return rows, nil
}

// CanExtract is the predicate form of Extract, used by the sampling
// pre-filter. It is the same computation evaluated only for its outcome, so
// the pre-filter can never disagree with the full extraction.
func (e *Extractor) CanExtract(p domain.Project) bool {
	_, err := e.Extract(p)
	return err == nil
}

func (e *Extractor) fail(id domain.ProjectID, step Step, reason string) *ExtractError {
	e.logger.Printf("WARNING: %s for project %d, skipping.", reason, id)
	return &ExtractError{Project: id, Step: step, Reason: reason}
}
