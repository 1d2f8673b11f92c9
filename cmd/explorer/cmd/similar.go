package cmd

import (
	"fmt"
	"path/filepath"

	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/spf13/cobra"

	"github.com/civicdata/explorer/internal/store"
	"github.com/civicdata/explorer/pkg/similarity"
)

var similarCmd = &cobra.Command{
	Use:   "similar <dataset-id>",
	Short: "List thematically similar datasets",
	Long: `Similar embeds every dataset's tokens, tags and categories and returns
the nearest neighbors of the given dataset. The index persists next to the
replica and rebuilds with --rebuild after a sync.

Examples:
  explorer similar abcd-1234
  explorer similar abcd-1234 --k 10 --rebuild`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")
		rebuild, _ := cmd.Flags().GetBool("rebuild")

		if err := session.EnsurePortal(cmd.Context(), portal); err != nil {
			return err
		}

		fs := osfs.NewFS()
		absDir, err := filepath.Abs(cfg.Store.SimilarityDir)
		if err != nil {
			return err
		}
		path, err := fs.FromOSPath(filepath.Join(absDir, "similarity.idx"))
		if err != nil {
			return err
		}

		idx, err := similarity.NewIndex(fs, path)
		if err != nil {
			return err
		}
		if rebuild || idx.Len() == 0 {
			idx = similarity.NewEmptyIndex(fs, path)
			datasets, err := localDB.QueryByExact(store.FieldPortal, portal, "")
			if err != nil {
				return err
			}
			for _, d := range datasets {
				vec := similarity.Embed(d.Tokens, d.Tags, d.Categories)
				if err := idx.Add(d.ID, vec); err != nil {
					return err
				}
			}
			if err := idx.Save(); err != nil {
				return err
			}
		}

		ids, err := idx.Similar(args[0], k)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No similar datasets")
			return nil
		}

		datasets, err := localDB.BulkGet(ids)
		if err != nil {
			return err
		}
		for i, d := range datasets {
			if d == nil {
				fmt.Println(ids[i])
				continue
			}
			fmt.Printf("%s  %s\n", d.ID, d.Name)
		}
		return nil
	},
}

func init() {
	similarCmd.Flags().Int("k", 5, "number of neighbors")
	similarCmd.Flags().Bool("rebuild", false, "rebuild the similarity index from the replica")
	rootCmd.AddCommand(similarCmd)
}
