package server

import (
	"context"
	"fmt"

	"consigna/internal/config"
	"consigna/internal/database"
	"consigna/internal/store"
	"consigna/internal/store/local"
	"consigna/internal/store/postgres"

	"go.uber.org/zap"
)

// Storage is the backend selected by DATA_STORE
type Storage struct {
	Backend *store.Backend
	// Hub is nil for the local backend, whose feed is in-process
	Hub    *postgres.Hub
	Health func(ctx context.Context) map[string]string
}

// OpenStorage opens the configured backend. The postgres backend is migrated
// before it is returned.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	switch cfg.DataStore.Driver {
	case config.DataStoreLocal:
		db, err := local.Open(cfg.DataStore.LocalPath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using local data store", zap.String("path", cfg.DataStore.LocalPath))
		return &Storage{
			Backend: local.NewBackend(db),
			Health: func(context.Context) map[string]string {
				return map[string]string{"status": "up", "store": config.DataStoreLocal}
			},
		}, nil

	case config.DataStorePostgres:
		pool, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, database.SQLDB(pool), cfg.Database.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, err
		}
		backend, hub := postgres.NewBackend(pool, logger)
		return &Storage{
			Backend: backend,
			Hub:     hub,
			Health: func(ctx context.Context) map[string]string {
				return database.Health(ctx, pool)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown data store %q", cfg.DataStore.Driver)
	}
}
