package main

import (
	"fmt"

	"consigna/internal/config"
	"consigna/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(deps depsFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the nearest persistent pre-run
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			cfg, _ := deps()
			if cfg.DataStore.Driver != config.DataStorePostgres {
				return fmt.Errorf("migrations need DATA_STORE=%s, got %q", config.DataStorePostgres, cfg.DataStore.Driver)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := deps()
			pool, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			return database.RunMigrations(cmd.Context(), database.SQLDB(pool), cfg.Database.MigrationsDir, log)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the status of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := deps()
			pool, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			log.Debug("Reading migration status", zap.String("dir", cfg.Database.MigrationsDir))
			states, err := database.MigrationStatus(cmd.Context(), database.SQLDB(pool), cfg.Database.MigrationsDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range states {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(out, "%05d  %-8s %s\n", s.Version, state, s.File)
			}
			return nil
		},
	})

	return cmd
}
