package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicdata/explorer/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local replica statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Reads only; a stale replica is still reportable.
		count, err := localDB.Count(portal)
		if err != nil {
			return err
		}
		fmt.Printf("portal:    %s\n", portal)
		fmt.Printf("datasets:  %d\n", count)

		for _, kind := range []struct {
			label string
			kind  store.LookupKind
		}{
			{"tags", store.LookupTag},
			{"categories", store.LookupCategory},
			{"columns", store.LookupColumn},
			{"departments", store.LookupDepartment},
		} {
			lookups, err := localDB.Lookups(kind.kind, portal)
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %d\n", kind.label+":", len(lookups))
		}

		meta, err := localDB.GetCacheMeta()
		if err != nil {
			return err
		}
		if meta != nil {
			for _, u := range meta.LastUpdated {
				fmt.Printf("synced:    %s at %s\n", u.Portal, u.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
