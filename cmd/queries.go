// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/query"
	"github.com/spf13/cobra"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Lists the registered sampling queries",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLANGUAGE\tSIZE\tOUTPUT")
		for _, spec := range query.Registry() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s/%s\n",
				spec.Name, spec.Language, spec.Size, spec.OutputSubdir(), spec.Filename)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(queriesCmd)
}
