// Package query contains the business logic of the application: criteria
// filtering, seeded sampling, default-branch snapshot extraction and the
// pipelines that tie them together.
package query

import (
	"time"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// Predicate is one filtering criterion over a project. Predicates passed to
// Filter combine by logical AND; callers wanting OR build separate pipelines.
type Predicate func(domain.Project) bool

// Language matches projects whose language tag equals tag exactly.
func Language(tag string) Predicate {
	return func(p domain.Project) bool { return p.Language == tag }
}

// AtLeast matches projects whose metric value is min or above.
func AtLeast(m domain.Metric, min float64) Predicate {
	return func(p domain.Project) bool { return m(p) >= min }
}

// AtLeastAge matches projects at least d old at the dataset epoch.
func AtLeastAge(d time.Duration) Predicate {
	return func(p domain.Project) bool { return p.Age >= d }
}

// Filter returns the projects satisfying every predicate, preserving the
// order of the input population.
func Filter(population []domain.Project, predicates ...Predicate) []domain.Project {
	out := make([]domain.Project, 0, len(population))
outer:
	for _, p := range population {
		for _, pred := range predicates {
			if !pred(p) {
				continue outer
			}
		}
		out = append(out, p)
	}
	return out
}
