// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/gateway"
	"github.com/PRL-PRG/what-constitutes-software-query/internal/ingest"
	"github.com/PRL-PRG/what-constitutes-software-query/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Mines repository metadata from GitHub into a dataset file",
	Long: `Mines one organization's repositories of a given language from GitHub:
metadata and maturity metrics, the default branch's head commit, and the
head tree's file-to-blob mapping. The result is the dataset file the sample
command runs against. Requires a GITHUB_TOKEN (environment or .env file).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := commandLogger(cmd)

		org, _ := cmd.Flags().GetString("org")
		language, _ := cmd.Flags().GetString("language")
		out, _ := cmd.Flags().GetString("out")
		epochStr, _ := cmd.Flags().GetString("epoch")
		jobs, _ := cmd.Flags().GetInt("jobs")

		const inputDateLayout = "2006/01/02"
		epoch, err := time.Parse(inputDateLayout, epochStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --epoch date format. Please use YYYY/MM/DD. Error: %v\n", err)
			os.Exit(1)
		}

		// A .env file is optional; the environment wins either way.
		_ = godotenv.Load()
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}

		builder := ingest.NewBuilder(githubGateway, jobs, logger)
		dataset, err := builder.Build(ctx, org, language, epoch)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to mine %s: %v\n", org, err)
			os.Exit(1)
		}
		if err := store.Save(dataset, out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write dataset: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d projects to %s\n", len(dataset.Projects), out)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().String("org", "", "Target GitHub organization name (required)")
	ingestCmd.Flags().String("language", "", "Language tag to mine, e.g. Python (required)")
	ingestCmd.Flags().String("out", "dataset.json", "Path of the dataset file to write")
	ingestCmd.Flags().String("epoch", "2020/12/01", "Dataset cutoff date (YYYY/MM/DD), ages are measured against it")
	ingestCmd.Flags().IntP("jobs", "j", 0, "Per-repository worker count (default: one per CPU)")
	ingestCmd.MarkFlagRequired("org")
	ingestCmd.MarkFlagRequired("language")
}
