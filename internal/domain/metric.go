package domain

// Metric projects a single numeric attribute out of a project, so that
// filters, sorts and samplers can be parameterized by attribute.
type Metric func(Project) float64

// Named metrics, matching the attributes the dataset records per project.
var (
	Stars      Metric = func(p Project) float64 { return float64(p.Stars) }
	AgeDays    Metric = func(p Project) float64 { return p.Age.Hours() / 24 }
	Developers Metric = func(p Project) float64 { return float64(p.Developers) }
	Locs       Metric = func(p Project) float64 { return float64(p.Locs) }
	Snapshots  Metric = func(p Project) float64 { return float64(p.SnapshotCount) }
	Commits    Metric = func(p Project) float64 { return float64(p.CommitCount) }
	HIndex     Metric = func(p Project) float64 { return float64(p.MaxHIndex) }
)

// CommitCoverage is the fraction of a project's claimed commits that are
// actually present in the dataset. A project claiming no commits at all has
// coverage 0, not 1.
var CommitCoverage Metric = func(p Project) float64 {
	if p.CommitCount == 0 {
		return 0
	}
	return float64(p.CommitsWithData) / float64(p.CommitCount)
}
