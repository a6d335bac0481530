package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"consigna/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(deps depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := deps()

			log.Info("Starting consigna API",
				zap.String("env", cfg.Server.Env),
				zap.String("port", cfg.Server.Port),
				zap.String("data_store", cfg.DataStore.Driver),
			)

			storage, err := server.OpenStorage(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			log.Info("Data store health check", zap.Any("health", storage.Health(cmd.Context())))

			srv, err := server.NewServer(cfg, log, storage)
			if err != nil {
				storage.Backend.Close()
				return err
			}

			// Create a done channel to signal when the shutdown is complete
			done := make(chan bool, 1)
			go gracefulShutdown(srv, log, done)

			log.Info("Server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}

			<-done
			log.Info("Graceful shutdown complete")
			return nil
		},
	}
}

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The server has 30 seconds to finish the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}
