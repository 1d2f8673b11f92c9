// Package cmd wires the explorer CLI: configuration, logging, the local
// store and the sync session, shared across subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdata/explorer/internal/config"
	"github.com/civicdata/explorer/internal/query"
	"github.com/civicdata/explorer/internal/replica"
	"github.com/civicdata/explorer/internal/socrata"
	"github.com/civicdata/explorer/internal/state"
	"github.com/civicdata/explorer/internal/store"
	"github.com/civicdata/explorer/internal/syncer"
)

var (
	configPath string
	portal     string

	cfg     *config.Config
	log     *zap.Logger
	localDB *store.SQLiteStore
	session *replica.Session
	engine  *query.Engine
)

var rootCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Local replica explorer for open-data portals",
	Long: `explorer keeps a local, queryable replica of open-data portal catalogs.

Dataset listings sync down incrementally and all browsing (search, filters,
join candidates, similarity) runs against the local copy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if log, err = cfg.BuildLogger(); err != nil {
			return err
		}
		if portal == "" && len(cfg.Portals) > 0 {
			portal = cfg.Portals[0]
		}
		if portal == "" {
			return fmt.Errorf("no portal: pass --portal or list portals in the config")
		}

		if localDB, err = store.NewSQLiteStoreWithDSN(cfg.Store.Path); err != nil {
			return err
		}

		client := socrata.NewClient(log)
		client.SetPageSize(cfg.Sync.PageSize)
		client.SetConcurrency(cfg.Sync.MetadataConcurrency)

		worker := syncer.NewWorker(client, localDB, log)
		worker.SetBatchSize(cfg.Sync.BatchSize)

		states := state.NewStore(localDB, log)
		session = replica.NewSession(localDB, states, worker, cfg.Sync.StaleAfter, log)
		engine = query.NewEngine(localDB, log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if localDB != nil {
			localDB.Close()
		}
		if log != nil {
			log.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "explorer.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVarP(&portal, "portal", "p", "", "portal domain (default: first configured portal)")
}
