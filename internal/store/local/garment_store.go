package local

import (
	"context"
	"sort"
	"time"

	"consigna/internal/domain"
	"consigna/internal/store"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
)

type garmentStore struct {
	db *DB
}

// NewGarmentStore creates a GarmentStore kept under the "garments" key
func NewGarmentStore(db *DB) store.GarmentStore {
	return &garmentStore{db: db}
}

func (s *garmentStore) List(ctx context.Context) ([]*domain.Garment, error) {
	var garments []*domain.Garment
	err := s.db.view(func(tx *bolt.Tx) error {
		var err error
		garments, err = readTable[domain.Garment](tx, store.TableGarments)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(garments, func(i, j int) bool {
		return garments[i].CreatedAt.After(garments[j].CreatedAt)
	})
	return garments, nil
}

func (s *garmentStore) Insert(ctx context.Context, garment *domain.Garment) (*domain.Garment, error) {
	created := garment.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	if created.PaymentStatus == "" {
		created.PaymentStatus = domain.PaymentNotAvailable
	}

	err := s.db.update(rowChange(store.EventInsert, store.TableGarments, created.ID), func(tx *bolt.Tx) error {
		garments, err := readTable[domain.Garment](tx, store.TableGarments)
		if err != nil {
			return err
		}
		return writeTable(tx, store.TableGarments, append(garments, created))
	})
	if err != nil {
		return nil, err
	}

	return created.Clone(), nil
}

func (s *garmentStore) Update(ctx context.Context, id string, patch domain.GarmentPatch) (*domain.Garment, error) {
	var updated *domain.Garment
	err := s.db.update(rowChange(store.EventUpdate, store.TableGarments, id), func(tx *bolt.Tx) error {
		garments, err := readTable[domain.Garment](tx, store.TableGarments)
		if err != nil {
			return err
		}
		for i, existing := range garments {
			if existing.ID == id {
				updated = patch.Apply(existing)
				garments[i] = updated
				return writeTable(tx, store.TableGarments, garments)
			}
		}
		return domain.ErrGarmentNotFound
	})
	if err != nil {
		return nil, err
	}

	return updated.Clone(), nil
}

func (s *garmentStore) Delete(ctx context.Context, id string) error {
	return s.db.update(rowChange(store.EventDelete, store.TableGarments, id), func(tx *bolt.Tx) error {
		garments, err := readTable[domain.Garment](tx, store.TableGarments)
		if err != nil {
			return err
		}
		for i, existing := range garments {
			if existing.ID == id {
				return writeTable(tx, store.TableGarments, append(garments[:i], garments[i+1:]...))
			}
		}
		return domain.ErrGarmentNotFound
	})
}
