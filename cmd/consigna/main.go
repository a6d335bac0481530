package main

import (
	"fmt"
	"os"

	"consigna/internal/config"
	"consigna/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var cfg *config.Config
	var log *zap.Logger

	root := &cobra.Command{
		Use:           "consigna",
		Short:         "Consignment inventory service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()

			var err error
			log, err = logger.New(cfg.Server.Env, cfg.Server.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				log.Sync()
			}
		},
	}

	deps := func() (*config.Config, *zap.Logger) { return cfg, log }
	root.AddCommand(
		newServeCmd(deps),
		newMigrateCmd(deps),
		newUserCmd(deps),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// depsFunc hands subcommands the config and logger built by the root command
type depsFunc func() (*config.Config, *zap.Logger)
