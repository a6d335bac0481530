// Package local is the persisted local fallback store. Every table is kept as
// one JSON array under its own key in a single bolt bucket.
package local

import (
	"encoding/json"
	"fmt"
	"time"

	"consigna/internal/store"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// BucketName is the only bucket in the file
const BucketName = "consigna"

// DB wraps the bolt file shared by every local table store
type DB struct {
	bolt   *bolt.DB
	feed   *Feed
	logger *zap.Logger
}

// Open opens (or creates) the bolt file at path
func Open(path string, logger *zap.Logger) (*DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &DB{bolt: db, feed: NewFeed(logger), logger: logger}, nil
}

// Close closes the file
func (db *DB) Close() error {
	return db.bolt.Close()
}

// Feed returns the in-process change feed
func (db *DB) Feed() *Feed {
	return db.feed
}

// NewBackend wires every local table store and the in-process feed
func NewBackend(db *DB) *store.Backend {
	return &store.Backend{
		Suppliers:  NewSupplierStore(db),
		Garments:   NewGarmentStore(db),
		Users:      NewUserStore(db),
		Identities: NewIdentityStore(db),
		Changes:    db.feed,
		Close:      db.Close,
	}
}

// readTable decodes the collection stored under key; a missing key is an empty table
func readTable[T any](tx *bolt.Tx, key string) ([]*T, error) {
	rows := []*T{}
	raw := tx.Bucket([]byte(BucketName)).Get([]byte(key))
	if raw == nil {
		return rows, nil
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return rows, nil
}

func writeTable[T any](tx *bolt.Tx, key string, rows []*T) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return tx.Bucket([]byte(BucketName)).Put([]byte(key), raw)
}

func (db *DB) view(fn func(tx *bolt.Tx) error) error {
	return db.bolt.View(fn)
}

// update runs fn in a write transaction and publishes change once it commits
func (db *DB) update(change *store.Change, fn func(tx *bolt.Tx) error) error {
	if err := db.bolt.Update(fn); err != nil {
		return err
	}
	if change != nil {
		db.feed.Publish(*change)
	}
	return nil
}

func rowChange(event store.Event, table, id string) *store.Change {
	payload, _ := json.Marshal(map[string]string{"id": id})
	return &store.Change{Event: event, Table: table, Payload: payload}
}
