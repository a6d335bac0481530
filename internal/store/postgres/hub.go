package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"consigna/internal/metrics"
	"consigna/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ChangesChannel is the NOTIFY channel written by the notify_change() trigger
const ChangesChannel = "consigna_changes"

var ErrHubNotRunning = errors.New("change hub is not running")

// Hub holds one LISTEN connection for the whole process and fans
// notifications out to named subscriptions. Run returns when the connection
// drops and may be called again; subscriptions survive the restart, but
// notifications raised while no Run is listening are lost.
type Hub struct {
	pool     *pgxpool.Pool
	channel  string
	registry *store.Registry
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewHub creates a hub listening on ChangesChannel
func NewHub(pool *pgxpool.Pool, logger *zap.Logger) *Hub {
	return &Hub{
		pool:     pool,
		channel:  ChangesChannel,
		registry: store.NewRegistry(),
		logger:   logger,
	}
}

// Run listens until ctx is cancelled or the connection fails
func (h *Hub) Run(ctx context.Context) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{h.channel}.Sanitize()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to listen on %s: %w", h.channel, err)
	}

	h.setRunning(true)
	defer h.setRunning(false)

	h.logger.Info("Listening for store changes", zap.String("channel", h.channel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			h.logger.Error("Change notification connection lost", zap.Error(err))
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		change, err := decodeChange(notification.Payload)
		if err != nil {
			h.logger.Warn("Ignoring malformed change notification",
				zap.String("payload", notification.Payload),
				zap.Error(err),
			)
			continue
		}

		metrics.ChangeEventsTotal.WithLabelValues(change.Table, string(change.Event)).Inc()
		delivered := h.registry.Dispatch(change)
		h.logger.Debug("Change dispatched",
			zap.String("table", change.Table),
			zap.String("event", string(change.Event)),
			zap.Int("subscriptions", delivered),
		)
	}
}

// Subscribe registers a named subscription. Names must be unique.
func (h *Hub) Subscribe(ctx context.Context, name string, bindings []store.Binding, handler store.Handler) (*store.Subscription, error) {
	if !h.isRunning() {
		h.logger.Warn("Subscribing while the change hub is not listening", zap.String("name", name))
	}

	sub := store.NewSubscription(name, bindings, handler)
	if err := h.registry.Add(sub); err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", name, err)
	}

	metrics.ActiveSubscriptions.Inc()
	return sub, nil
}

// Unsubscribe removes a subscription; unknown handles are ignored
func (h *Hub) Unsubscribe(sub *store.Subscription) error {
	if sub == nil {
		return nil
	}
	before := h.registry.Len()
	h.registry.Remove(sub)
	if h.registry.Len() < before {
		metrics.ActiveSubscriptions.Dec()
	}
	return nil
}

func (h *Hub) setRunning(v bool) {
	h.mu.Lock()
	h.running = v
	h.mu.Unlock()
}

func (h *Hub) isRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func decodeChange(payload string) (store.Change, error) {
	var raw struct {
		Event   string          `json:"event"`
		Table   string          `json:"table"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return store.Change{}, err
	}

	event, err := store.ParseEvent(raw.Event)
	if err != nil {
		return store.Change{}, err
	}
	if raw.Table == "" {
		return store.Change{}, errors.New("missing table")
	}

	return store.Change{Event: event, Table: raw.Table, Payload: raw.Payload}, nil
}
