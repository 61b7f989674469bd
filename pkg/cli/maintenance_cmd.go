package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"asyncq/internal/config"
	"asyncq/internal/db"
	"asyncq/internal/service/asyncquery"
	"asyncq/internal/store/gormstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the metastore schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := map[string]interface{}{
				"backend": cfg.StoreBackend,
				"path":    cfg.MetaDBPath,
			}
			switch cfg.StoreBackend {
			case config.StoreSQLite:
				conn, err := db.Open(cfg.MetaDBPath, db.ModeWrite, 0)
				if err != nil {
					return err
				}
				defer conn.Close() //nolint:errcheck
				if err := db.RunMigrations(cmd.Context(), conn); err != nil {
					return err
				}
				v, err := db.SchemaVersion(cmd.Context(), conn)
				if err != nil {
					return err
				}
				out["version"] = v
			case config.StoreGorm:
				store, err := gormstore.Open(cfg.MetaDBPath)
				if err != nil {
					return err
				}
				if err := store.Close(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("the %s backend has no schema to migrate", cfg.StoreBackend)
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			if v, ok := out["version"]; ok {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (%s)\n", cfg.StoreBackend, v, cfg.MetaDBPath)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema migrated (%s)\n", cfg.StoreBackend, cfg.MetaDBPath)
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep <timeout|cleanup>",
		Short:     "Run one timeout or cleanup sweep now",
		Long:      "timeout marks QUEUED and PROCESSING records older than ASYNC_MAX_RUN_TIME as TIMEDOUT.\ncleanup deletes records older than ASYNC_RETENTION together with their results.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{asyncquery.SweepTimeout, asyncquery.SweepCleanup},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			var (
				n    int
				verb string
			)
			switch args[0] {
			case asyncquery.SweepTimeout:
				n, err = a.Cleaner.TimeoutSweep(cmd.Context())
				verb = "timed out"
			default:
				n, err = a.Cleaner.CleanupSweep(cmd.Context())
				verb = "deleted"
			}
			if err != nil {
				return err
			}
			return printCount(cmd.OutOrStdout(), getOutputFormat(cmd), verb, n)
		},
	}
}
