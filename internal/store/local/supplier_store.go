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

type supplierStore struct {
	db *DB
}

// NewSupplierStore creates a SupplierStore kept under the "suppliers" key
func NewSupplierStore(db *DB) store.SupplierStore {
	return &supplierStore{db: db}
}

func (s *supplierStore) List(ctx context.Context) ([]*domain.Supplier, error) {
	var suppliers []*domain.Supplier
	err := s.db.view(func(tx *bolt.Tx) error {
		var err error
		suppliers, err = readTable[domain.Supplier](tx, store.TableSuppliers)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(suppliers, func(i, j int) bool {
		return suppliers[i].Name < suppliers[j].Name
	})
	return suppliers, nil
}

func (s *supplierStore) Insert(ctx context.Context, supplier *domain.Supplier) (*domain.Supplier, error) {
	created := *supplier
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	err := s.db.update(rowChange(store.EventInsert, store.TableSuppliers, created.ID), func(tx *bolt.Tx) error {
		suppliers, err := readTable[domain.Supplier](tx, store.TableSuppliers)
		if err != nil {
			return err
		}
		return writeTable(tx, store.TableSuppliers, append(suppliers, &created))
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (s *supplierStore) Update(ctx context.Context, id string, patch domain.SupplierPatch) (*domain.Supplier, error) {
	var updated *domain.Supplier
	err := s.db.update(rowChange(store.EventUpdate, store.TableSuppliers, id), func(tx *bolt.Tx) error {
		suppliers, err := readTable[domain.Supplier](tx, store.TableSuppliers)
		if err != nil {
			return err
		}
		for i, existing := range suppliers {
			if existing.ID != id {
				continue
			}
			row := *existing
			if patch.Name != nil {
				row.Name = *patch.Name
			}
			if patch.Surname != nil {
				row.Surname = *patch.Surname
			}
			if patch.Phone != nil {
				row.Phone = *patch.Phone
			}
			suppliers[i] = &row
			updated = &row
			return writeTable(tx, store.TableSuppliers, suppliers)
		}
		return domain.ErrSupplierNotFound
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *supplierStore) Delete(ctx context.Context, id string) error {
	return s.db.update(rowChange(store.EventDelete, store.TableSuppliers, id), func(tx *bolt.Tx) error {
		suppliers, err := readTable[domain.Supplier](tx, store.TableSuppliers)
		if err != nil {
			return err
		}
		for i, existing := range suppliers {
			if existing.ID == id {
				return writeTable(tx, store.TableSuppliers, append(suppliers[:i], suppliers[i+1:]...))
			}
		}
		return domain.ErrSupplierNotFound
	})
}
