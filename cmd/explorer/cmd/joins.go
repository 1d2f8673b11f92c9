package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var joinsCmd = &cobra.Command{
	Use:   "joins <dataset-id>",
	Short: "List datasets sharing column fields with a dataset",
	Long: `Joins lists datasets, from any synced portal, that share at least one
column field name with the given dataset. Shared columns suggest the two
can be joined.

Examples:
  explorer joins abcd-1234`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.EnsurePortal(cmd.Context(), portal); err != nil {
			return err
		}

		d, err := localDB.Get(args[0])
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("dataset %s not in the local replica", args[0])
		}

		candidates, err := engine.JoinCandidates(d)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No join candidates")
			return nil
		}

		fields := make(map[string]bool, len(d.ColumnFields))
		for _, f := range d.ColumnFields {
			fields[f] = true
		}

		for _, c := range candidates {
			var shared []string
			for _, f := range c.ColumnFields {
				if fields[f] {
					shared = append(shared, f)
				}
			}
			fmt.Printf("%s/%s  %s  (shared: %s)\n", c.Portal, c.ID, c.Name, strings.Join(shared, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(joinsCmd)
}
