package service

import (
	"context"
	"time"

	"consigna/internal/auth"
	"consigna/internal/metrics"
	"consigna/internal/session"
	"consigna/internal/store"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Manager keeps one Inventory per authenticated session. Inventories are
// built on sign-in and closed on sign-out or expiry.
type Manager struct {
	resolver session.Resolver
	backend  *store.Backend
	opts     Options
	logger   *zap.Logger

	inventories *gocache.Cache
	unsubscribe func()
}

// NewManager follows authSvc's session state changes. ttl is the session lifetime.
func NewManager(authSvc auth.Service, resolver session.Resolver, backend *store.Backend, opts Options, ttl time.Duration, logger *zap.Logger) *Manager {
	m := &Manager{
		resolver:    resolver,
		backend:     backend,
		opts:        opts,
		logger:      logger,
		inventories: gocache.New(ttl, time.Minute),
	}

	m.inventories.OnEvicted(func(id string, v interface{}) {
		if inv, ok := v.(*Inventory); ok {
			inv.Close()
			metrics.ActiveSessions.Dec()
			m.logger.Info("Session inventory discarded", zap.String("session_id", id))
		}
	})

	m.unsubscribe = authSvc.OnAuthStateChange(m.handle)
	return m
}

func (m *Manager) handle(change auth.StateChange) {
	switch change.Event {
	case auth.EventSignedIn:
		m.For(change.Session)
	case auth.EventSignedOut:
		m.inventories.Delete(change.Session.ID)
	}
}

// For returns the inventory of sess, building and starting it on first use.
// The initial load runs in the background; Loading reports its progress.
func (m *Manager) For(sess *auth.Session) *Inventory {
	if v, ok := m.inventories.Get(sess.ID); ok {
		return v.(*Inventory)
	}

	inv := NewInventory(session.NewContext(sess, m.resolver), m.backend, m.opts, m.logger)
	// Add fails when another request built it first
	if err := m.inventories.Add(sess.ID, inv, ttlUntil(sess.ExpiresAt)); err != nil {
		if v, ok := m.inventories.Get(sess.ID); ok {
			return v.(*Inventory)
		}
		m.inventories.Set(sess.ID, inv, ttlUntil(sess.ExpiresAt))
	}
	metrics.ActiveSessions.Inc()

	inv.loading.Store(true)
	go inv.Start(context.Background())

	m.logger.Info("Session inventory created", zap.String("session_id", sess.ID))
	return inv
}

// Get returns the live inventory of a session
func (m *Manager) Get(sessionID string) (*Inventory, bool) {
	v, ok := m.inventories.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*Inventory), true
}

// Count returns how many inventories are live
func (m *Manager) Count() int {
	return m.inventories.ItemCount()
}

// Close stops following auth changes and closes every inventory
func (m *Manager) Close() {
	m.unsubscribe()
	for id := range m.inventories.Items() {
		m.inventories.Delete(id)
	}
}

func ttlUntil(t time.Time) time.Duration {
	if t.IsZero() {
		return gocache.DefaultExpiration
	}
	if d := time.Until(t); d > 0 {
		return d
	}
	return time.Millisecond
}
