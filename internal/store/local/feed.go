package local

import (
	"context"
	"fmt"

	"consigna/internal/metrics"
	"consigna/internal/store"

	"go.uber.org/zap"
)

// Feed delivers the local store's own writes to subscribers
type Feed struct {
	registry *store.Registry
	logger   *zap.Logger
}

// NewFeed creates an empty feed
func NewFeed(logger *zap.Logger) *Feed {
	return &Feed{registry: store.NewRegistry(), logger: logger}
}

// Subscribe registers a named subscription
func (f *Feed) Subscribe(ctx context.Context, name string, bindings []store.Binding, handler store.Handler) (*store.Subscription, error) {
	sub := store.NewSubscription(name, bindings, handler)
	if err := f.registry.Add(sub); err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", name, err)
	}
	metrics.ActiveSubscriptions.Inc()
	return sub, nil
}

// Unsubscribe removes sub; unknown handles are ignored
func (f *Feed) Unsubscribe(sub *store.Subscription) error {
	if sub == nil {
		return nil
	}
	before := f.registry.Len()
	f.registry.Remove(sub)
	if f.registry.Len() < before {
		metrics.ActiveSubscriptions.Dec()
	}
	return nil
}

// Publish fans c out to matching subscriptions
func (f *Feed) Publish(c store.Change) {
	metrics.ChangeEventsTotal.WithLabelValues(c.Table, string(c.Event)).Inc()
	delivered := f.registry.Dispatch(c)
	f.logger.Debug("Local change dispatched",
		zap.String("table", c.Table),
		zap.String("event", string(c.Event)),
		zap.Int("subscriptions", delivered),
	)
}
