package query

import (
	"log"

	"github.com/montanaflynn/stats"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// MetricSummary is the distribution of one metric over a set of projects.
// Summaries of the criteria-filtered populations are how the "developed"
// thresholds were chosen in the first place.
type MetricSummary struct {
	Name   string
	Median float64
	P25    float64
}

// Summarize computes per-metric medians and 25th percentiles over projects.
// An empty set has no summary.
func Summarize(projects []domain.Project) []MetricSummary {
	if len(projects) == 0 {
		return nil
	}
	metrics := []struct {
		name string
		m    domain.Metric
	}{
		{"stars", domain.Stars},
		{"h_index", domain.HIndex},
		{"age_days", domain.AgeDays},
		{"devs", domain.Developers},
		{"locs", domain.Locs},
		{"snapshots", domain.Snapshots},
		{"commits", domain.Commits},
	}

	summaries := make([]MetricSummary, 0, len(metrics))
	for _, metric := range metrics {
		values := make(stats.Float64Data, len(projects))
		for i, p := range projects {
			values[i] = metric.m(p)
		}
		median, err := stats.Median(values)
		if err != nil {
			continue
		}
		p25, err := stats.Percentile(values, 25)
		if err != nil {
			continue
		}
		summaries = append(summaries, MetricSummary{Name: metric.name, Median: median, P25: p25})
	}
	return summaries
}

// LogSummary writes one line per metric to the (verbose) logger.
func LogSummary(logger *log.Logger, label string, projects []domain.Project) {
	for _, s := range Summarize(projects) {
		logger.Printf("%s: %s median %.2f p25 %.2f", label, s.Name, s.Median, s.P25)
	}
}
