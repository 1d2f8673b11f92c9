package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the portal catalog into the local replica",
	Long: `Sync fetches the portal's catalog manifest and brings the local replica
up to date. When the replica was synced recently it is reused as-is; pass
--force to resync regardless.

Examples:
  explorer sync
  explorer sync --portal data.cityofnewyork.us --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if force {
			// Dropping the portal's sync timestamp makes it stale.
			meta, err := localDB.GetCacheMeta()
			if err != nil {
				return err
			}
			if meta != nil {
				kept := meta.LastUpdated[:0]
				for _, u := range meta.LastUpdated {
					if u.Portal != portal {
						kept = append(kept, u)
					}
				}
				meta.LastUpdated = kept
				if err := localDB.PutCacheMeta(meta); err != nil {
					return err
				}
			}
		}

		if err := session.EnsurePortal(cmd.Context(), portal); err != nil {
			return err
		}

		count, err := localDB.Count(portal)
		if err != nil {
			return err
		}
		snap := session.State().Current()
		if last := snap.LastUpdatedFor(portal); last != nil {
			fmt.Printf("%s: %d datasets, last synced %s\n", portal, count, last.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("%s: %d datasets\n", portal, count)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("force", false, "resync even if the replica is fresh")
	rootCmd.AddCommand(syncCmd)
}
