package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicdata/explorer/internal/store"
)

var lookupKinds = map[string]store.LookupKind{
	"tags":        store.LookupTag,
	"categories":  store.LookupCategory,
	"columns":     store.LookupColumn,
	"departments": store.LookupDepartment,
}

var lookupsCmd = &cobra.Command{
	Use:   "lookups <tags|categories|columns|departments>",
	Short: "List filter values with dataset counts",
	Long: `Lookups prints the distinct values of one filter dimension and how many
of the portal's datasets carry each, from the tables rebuilt at sync time.

Examples:
  explorer lookups tags
  explorer lookups departments`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := lookupKinds[args[0]]
		if !ok {
			return fmt.Errorf("unknown lookup kind %q", args[0])
		}

		if err := session.EnsurePortal(cmd.Context(), portal); err != nil {
			return err
		}

		lookups, err := localDB.Lookups(kind, portal)
		if err != nil {
			return err
		}
		if len(lookups) == 0 {
			fmt.Println("No values")
			return nil
		}
		for _, l := range lookups {
			fmt.Printf("%6d  %s\n", l.Count, l.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupsCmd)
}
