// Package realtime keeps a session's collections in step with remote changes
// by re-fetching a whole table on every change event.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"consigna/internal/metrics"
	"consigna/internal/store"

	"go.uber.org/zap"
)

// RefetchTimeout bounds one notification-triggered re-fetch
const RefetchTimeout = 30 * time.Second

// Refetcher reloads one table; implementations swallow their own errors
type Refetcher func(ctx context.Context)

// Listener holds at most one subscription for a session
type Listener struct {
	feed      store.ChangeFeed
	sessionID string
	refetch   map[string]Refetcher
	logger    *zap.Logger

	mu     sync.Mutex
	sub    *store.Subscription
	userID string
	closed bool
}

// NewListener creates an unbound listener; refetch maps table names to reloads
func NewListener(feed store.ChangeFeed, sessionID string, refetch map[string]Refetcher, logger *zap.Logger) *Listener {
	return &Listener{
		feed:      feed,
		sessionID: sessionID,
		refetch:   refetch,
		logger:    logger.With(zap.String("session_id", sessionID)),
	}
}

// Bind subscribes for userID. Binding the same user again is a no-op; a new
// user tears the previous subscription down before subscribing. A closed
// listener ignores Bind.
func (l *Listener) Bind(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || (l.sub != nil && l.userID == userID) {
		return nil
	}
	l.teardown()

	name := fmt.Sprintf("inventory-%s-%d", l.sessionID, time.Now().UnixNano())
	bindings := make([]store.Binding, 0, len(l.refetch))
	for table := range l.refetch {
		bindings = append(bindings, store.Binding{Table: table, Mask: store.MaskAll})
	}

	sub, err := l.feed.Subscribe(ctx, name, bindings, l.handle)
	metrics.SubscribeTotal.WithLabelValues(metrics.ResultLabel(err)).Inc()
	if err != nil {
		l.logger.Error("Failed to subscribe to changes", zap.String("subscription", name), zap.Error(err))
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	l.sub = sub
	l.userID = userID
	l.logger.Info("Subscribed to changes",
		zap.String("subscription", name),
		zap.String("user_id", userID),
	)
	return nil
}

// Close drops the subscription for good. Re-fetches already running finish
// on their own.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.teardown()
}

// Subscription returns the live subscription name, or ""
func (l *Listener) Subscription() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub == nil {
		return ""
	}
	return l.sub.Name
}

// teardown must be called with mu held
func (l *Listener) teardown() {
	if l.sub == nil {
		return
	}
	if err := l.feed.Unsubscribe(l.sub); err != nil {
		l.logger.Warn("Failed to unsubscribe", zap.String("subscription", l.sub.Name), zap.Error(err))
	}
	l.logger.Debug("Unsubscribed from changes", zap.String("subscription", l.sub.Name))
	l.sub = nil
	l.userID = ""
}

// handle starts one full re-fetch per event; nothing is coalesced
func (l *Listener) handle(c store.Change) {
	refetch, ok := l.refetch[c.Table]
	if !ok {
		return
	}

	metrics.RefetchTotal.WithLabelValues(c.Table, "notification").Inc()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), RefetchTimeout)
		defer cancel()

		l.logger.Debug("Re-fetching after change",
			zap.String("table", c.Table),
			zap.String("event", string(c.Event)),
		)
		refetch(ctx)
	}()
}
