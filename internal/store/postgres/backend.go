package postgres

import (
	"consigna/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewBackend wires every postgres table store and the change hub.
// The caller runs hub.Run and owns the pool.
func NewBackend(pool *pgxpool.Pool, logger *zap.Logger) (*store.Backend, *Hub) {
	hub := NewHub(pool, logger)
	return &store.Backend{
		Suppliers:  NewSupplierStore(pool),
		Garments:   NewGarmentStore(pool),
		Users:      NewUserStore(pool),
		Identities: NewIdentityStore(pool),
		Changes:    hub,
		Close: func() error {
			pool.Close()
			return nil
		},
	}, hub
}
