package repository

import (
	"context"
	"sync"

	"consigna/internal/domain"
	"consigna/internal/store"

	"go.uber.org/zap"
)

// GarmentIndex answers whether the local garment collection references a supplier
type GarmentIndex interface {
	ReferencesSupplier(supplierID string) bool
}

// GarmentIndexFunc adapts a function to GarmentIndex
type GarmentIndexFunc func(supplierID string) bool

func (f GarmentIndexFunc) ReferencesSupplier(supplierID string) bool {
	return f(supplierID)
}

// SupplierRepository owns the session's supplier collection
type SupplierRepository interface {
	FetchAll(ctx context.Context) []*domain.Supplier
	List() []*domain.Supplier
	Find(id string) (*domain.Supplier, bool)
	Add(ctx context.Context, input domain.SupplierInput) (*domain.Supplier, error)
	Edit(ctx context.Context, id string, patch domain.SupplierPatch) error
	Delete(ctx context.Context, id string) error
	// Discard empties the collection for good; later fetches are dropped
	Discard()
}

type supplierRepository struct {
	Deps
	store    store.SupplierStore
	garments GarmentIndex

	mu        sync.RWMutex
	suppliers []*domain.Supplier
	discarded bool
}

// NewSupplierRepository creates an empty supplier repository
func NewSupplierRepository(s store.SupplierStore, garments GarmentIndex, deps Deps) SupplierRepository {
	return &supplierRepository{
		Deps:      deps,
		store:     s,
		garments:  garments,
		suppliers: []*domain.Supplier{},
	}
}

// FetchAll replaces the collection with the remote one. A failed fetch
// leaves the collection empty.
func (r *supplierRepository) FetchAll(ctx context.Context) []*domain.Supplier {
	suppliers, err := r.store.List(ctx)
	if err != nil {
		r.remoteFailure(store.TableSuppliers, "list", "Error al cargar proveedores", err)
		suppliers = []*domain.Supplier{}
	}

	r.mu.Lock()
	if !r.discarded {
		r.suppliers = suppliers
	}
	r.mu.Unlock()

	return r.List()
}

func (r *supplierRepository) Discard() {
	r.mu.Lock()
	r.discarded = true
	r.suppliers = []*domain.Supplier{}
	r.mu.Unlock()
}

// List returns a snapshot of the collection. Rows must not be mutated.
func (r *supplierRepository) List() []*domain.Supplier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Supplier, len(r.suppliers))
	copy(out, r.suppliers)
	return out
}

// Find looks a supplier up in the local collection
func (r *supplierRepository) Find(id string) (*domain.Supplier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.suppliers {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Add validates and creates a supplier owned by the acting user
func (r *supplierRepository) Add(ctx context.Context, input domain.SupplierInput) (*domain.Supplier, error) {
	identity, err := r.resolve(ctx, "add_supplier")
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		r.Alerts.Error(msgInvalidInput)
		return nil, err
	}

	created, err := r.store.Insert(ctx, &domain.Supplier{
		Name:    input.Name,
		Surname: input.Surname,
		Phone:   input.Phone,
		UserID:  identity.UserID,
	})
	if err != nil {
		return nil, r.remoteFailure(store.TableSuppliers, "insert", "Error al crear el proveedor", err)
	}

	r.Logger.Info("Supplier created", zap.String("supplier_id", created.ID), zap.String("user_id", identity.UserID))
	r.Alerts.Success("Proveedor creado")
	return created, nil
}

// Edit updates name, surname or phone. The collection is refreshed by the
// change listener, not here.
func (r *supplierRepository) Edit(ctx context.Context, id string, patch domain.SupplierPatch) error {
	if _, err := r.resolve(ctx, "edit_supplier"); err != nil {
		return err
	}

	if err := patch.Validate(); err != nil {
		r.Alerts.Error(msgInvalidInput)
		return err
	}
	if patch.Empty() {
		return nil
	}

	if _, err := r.store.Update(ctx, id, patch); err != nil {
		return r.remoteFailure(store.TableSuppliers, "update", "Error al actualizar el proveedor", err, zap.String("supplier_id", id))
	}

	r.Alerts.Success("Proveedor actualizado")
	return nil
}

// Delete removes a supplier unless a local garment still references it
func (r *supplierRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.resolve(ctx, "delete_supplier"); err != nil {
		return err
	}

	if r.garments != nil && r.garments.ReferencesSupplier(id) {
		r.Logger.Info("Supplier delete blocked by garments", zap.String("supplier_id", id))
		r.Alerts.Error(msgHasGarments)
		return domain.ErrSupplierHasGarments
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return r.remoteFailure(store.TableSuppliers, "delete", "Error al eliminar el proveedor", err, zap.String("supplier_id", id))
	}

	r.Alerts.Success("Proveedor eliminado")
	return nil
}
