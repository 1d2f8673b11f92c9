package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicdata/explorer/internal/socrata"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <dataset-id>...",
	Short: "Fetch live metadata for datasets from the portal",
	Long: `Metadata fetches the per-dataset metadata documents straight from the
portal, fanned out in parallel. Unlike the other commands this one always
goes to the network.

Examples:
  explorer metadata abcd-1234
  explorer metadata abcd-1234 wxyz-5678`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := socrata.NewClient(log)
		client.SetConcurrency(cfg.Sync.MetadataConcurrency)

		refs := make([]socrata.DatasetRef, len(args))
		for i, id := range args {
			refs[i] = socrata.DatasetRef{Portal: portal, ID: id}
		}

		metas, err := client.FetchMetadata(cmd.Context(), refs)
		if err != nil {
			return err
		}

		for _, m := range metas {
			fmt.Printf("%s  %s\n", m.ID, m.Name)
			if m.Attribution != "" {
				fmt.Printf("    attribution: %s\n", m.Attribution)
			}
			if m.Category != "" {
				fmt.Printf("    category: %s\n", m.Category)
			}
			if len(m.Tags) > 0 {
				fmt.Printf("    tags: %s\n", strings.Join(m.Tags, ", "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}
