// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/query"
	"github.com/PRL-PRG/what-constitutes-software-query/internal/store"
	"github.com/spf13/cobra"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Runs the registered sampling queries and writes their CSV files",
	Long: `Runs every registered sampling query (or the subset named with --query)
against a dataset and writes one CSV per query under the output directory,
grouped by language. Sample sizes are maximums: projects that cannot be
resolved to a default-branch snapshot are dropped with a warning.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := commandLogger(cmd)

		datasetPath, _ := cmd.Flags().GetString("dataset")
		outputDir, _ := cmd.Flags().GetString("output")
		jobs, _ := cmd.Flags().GetInt("jobs")
		names, _ := cmd.Flags().GetStringSlice("query")

		db, err := store.Open(datasetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load dataset: %v\n", err)
			os.Exit(1)
		}
		logger.Printf("Loaded %d projects, dataset epoch %s.",
			len(db.Projects()), db.Epoch().Format("2006-01-02"))

		specs, err := selectQueries(names)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		pipeline := query.NewPipeline(db, outputDir, jobs, logger)
		failed := false
		for _, spec := range specs {
			started := time.Now()
			if err := pipeline.Run(spec); err != nil {
				// A failed query does not undo queries already
				// written; report it and keep going.
				fmt.Fprintf(os.Stderr, "Query %s failed: %v\n", spec.Name, err)
				failed = true
				continue
			}
			logger.Printf("%s finished in %s.", spec.Name, time.Since(started).Round(time.Millisecond))
		}
		if failed {
			os.Exit(1)
		}
	},
}

// selectQueries resolves --query names against the registry; with no names
// it returns the whole registry.
func selectQueries(names []string) ([]query.Spec, error) {
	registry := query.Registry()
	if len(names) == 0 {
		return registry, nil
	}
	byName := make(map[string]query.Spec, len(registry))
	for _, spec := range registry {
		byName[spec.Name] = spec
	}
	var specs []query.Spec
	for _, name := range names {
		spec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown query %q, see 'wcsq queries'", name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().StringP("dataset", "d", "", "Path to the dataset file (required)")
	sampleCmd.Flags().StringP("output", "o", "output", "Directory the CSV files are written into")
	sampleCmd.Flags().StringSliceP("query", "q", nil, "Run only the named queries (default: all)")
	sampleCmd.Flags().IntP("jobs", "j", 0, "Per-project worker count (default: one per CPU)")
	sampleCmd.MarkFlagRequired("dataset")
}
