// Package repository holds the per-session entity repositories. Each keeps the
// in-memory collection of one table and issues writes to the remote store.
package repository

import (
	"context"
	"errors"
	"fmt"

	"consigna/internal/alert"
	"consigna/internal/metrics"
	"consigna/internal/session"

	"go.uber.org/zap"
)

var ErrIdentityUnresolved = errors.New("could not resolve the signed-in user")

// User-visible alert texts
const (
	msgIdentityUnresolved = "No se pudo identificar al usuario"
	msgInvalidInput       = "Datos inválidos"
	msgHasGarments        = "No se puede eliminar: el proveedor tiene prendas asociadas"
)

// Deps are the collaborators every repository needs
type Deps struct {
	Identity session.IdentitySource
	Alerts   alert.Notifier
	Logger   *zap.Logger
}

// resolve runs identity resolution; every write calls it again
func (d Deps) resolve(ctx context.Context, op string) (*session.Identity, error) {
	identity, err := d.Identity.Identity(ctx)
	if err != nil {
		d.Logger.Warn("Identity resolution failed", zap.String("op", op), zap.Error(err))
		d.Alerts.Error(msgIdentityUnresolved)
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnresolved, err)
	}
	return identity, nil
}

// remoteFailure logs, alerts and wraps a failed store call
func (d Deps) remoteFailure(table, op, message string, err error, fields ...zap.Field) error {
	metrics.StoreErrorsTotal.WithLabelValues(table, op).Inc()
	d.Logger.Error("Store call failed",
		append([]zap.Field{zap.String("table", table), zap.String("op", op), zap.Error(err)}, fields...)...,
	)
	d.Alerts.Error(message)
	return fmt.Errorf("failed to %s %s: %w", op, table, err)
}
