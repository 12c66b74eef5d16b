package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/framegraph/internal/filters"
)

// CreateFiltersCmd creates the filters command.
func CreateFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the filters a graph description can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOPTIONS\tDESCRIPTION")
			for _, def := range filters.Default().Definitions() {
				opts := strings.Join(def.Options, ":")
				if opts == "" {
					opts = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, opts, def.Description)
			}
			return w.Flush()
		},
	}
}
