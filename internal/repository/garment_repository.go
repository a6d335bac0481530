package repository

import (
	"context"
	"sync"
	"time"

	"consigna/internal/domain"
	"consigna/internal/metrics"
	"consigna/internal/store"
	"consigna/internal/whatsapp"

	"go.uber.org/zap"
)

// SupplierIndex looks suppliers up in the local supplier collection
type SupplierIndex interface {
	Find(id string) (*domain.Supplier, bool)
}

// GarmentRepository owns the session's garment collection
type GarmentRepository interface {
	FetchAll(ctx context.Context) []*domain.Garment
	List() []*domain.Garment
	Find(id string) (*domain.Garment, bool)
	ReferencesSupplier(supplierID string) bool
	Add(ctx context.Context, input domain.GarmentInput) (*domain.Garment, error)
	Edit(ctx context.Context, id string, edit domain.GarmentEdit) error
	Delete(ctx context.Context, id string) error
	MarkAsSold(ctx context.Context, id string, paymentType domain.PaymentType) error
	MarkAsPaid(ctx context.Context, id string) error
	// Discard empties the collection for good; later fetches are dropped
	Discard()
}

type garmentRepository struct {
	Deps
	store     store.GarmentStore
	suppliers SupplierIndex
	notifier  whatsapp.SaleNotifier
	now       func() time.Time

	mu        sync.RWMutex
	garments  []*domain.Garment
	discarded bool
}

// NewGarmentRepository creates an empty garment repository. notifier may be
// nil, in which case sales are not announced.
func NewGarmentRepository(s store.GarmentStore, suppliers SupplierIndex, notifier whatsapp.SaleNotifier, deps Deps) GarmentRepository {
	return &garmentRepository{
		Deps:      deps,
		store:     s,
		suppliers: suppliers,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
		garments:  []*domain.Garment{},
	}
}

// FetchAll replaces the collection with the remote one. A failed fetch
// leaves the collection empty.
func (r *garmentRepository) FetchAll(ctx context.Context) []*domain.Garment {
	garments, err := r.store.List(ctx)
	if err != nil {
		r.remoteFailure(store.TableGarments, "list", "Error al cargar prendas", err)
		garments = []*domain.Garment{}
	}

	r.mu.Lock()
	if !r.discarded {
		r.garments = garments
	}
	r.mu.Unlock()

	return r.List()
}

func (r *garmentRepository) Discard() {
	r.mu.Lock()
	r.discarded = true
	r.garments = []*domain.Garment{}
	r.mu.Unlock()
}

// List returns a snapshot of the collection. Rows must not be mutated.
func (r *garmentRepository) List() []*domain.Garment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Garment, len(r.garments))
	copy(out, r.garments)
	return out
}

func (r *garmentRepository) Find(id string) (*domain.Garment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.garments {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

func (r *garmentRepository) ReferencesSupplier(supplierID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.garments {
		if g.BelongsTo(supplierID) {
			return true
		}
	}
	return false
}

// Add creates an unsold garment owned by the acting user
func (r *garmentRepository) Add(ctx context.Context, input domain.GarmentInput) (*domain.Garment, error) {
	identity, err := r.resolve(ctx, "add_garment")
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		r.Alerts.Error(msgInvalidInput)
		return nil, err
	}

	created, err := r.store.Insert(ctx, &domain.Garment{
		SupplierID:    input.SupplierID,
		UserID:        identity.UserID,
		Code:          input.Code,
		Name:          input.Name,
		Size:          input.Size,
		PurchasePrice: input.PurchasePrice,
		SalePrice:     input.SalePrice,
		IsSold:        false,
		PaymentStatus: domain.PaymentNotAvailable,
	})
	if err != nil {
		return nil, r.remoteFailure(store.TableGarments, "insert", "Error al crear la prenda", err)
	}

	r.Logger.Info("Garment created", zap.String("garment_id", created.ID), zap.String("user_id", identity.UserID))
	r.Alerts.Success("Prenda creada")
	return created, nil
}

// Edit updates the allow-listed garment fields. The collection is refreshed
// by the change listener, not here.
func (r *garmentRepository) Edit(ctx context.Context, id string, edit domain.GarmentEdit) error {
	if _, err := r.resolve(ctx, "edit_garment"); err != nil {
		return err
	}

	if err := edit.Validate(); err != nil {
		r.Alerts.Error(msgInvalidInput)
		return err
	}
	patch := edit.Patch()
	if patch.Empty() {
		return nil
	}

	if _, err := r.store.Update(ctx, id, patch); err != nil {
		return r.remoteFailure(store.TableGarments, "update", "Error al actualizar la prenda", err, zap.String("garment_id", id))
	}

	r.Alerts.Success("Prenda actualizada")
	return nil
}

func (r *garmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.resolve(ctx, "delete_garment"); err != nil {
		return err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return r.remoteFailure(store.TableGarments, "delete", "Error al eliminar la prenda", err, zap.String("garment_id", id))
	}

	r.Alerts.Success("Prenda eliminada")
	return nil
}

// MarkAsSold records the sale in one update, swaps the returned row into the
// collection and announces the sale to the supplier when both rows are local.
func (r *garmentRepository) MarkAsSold(ctx context.Context, id string, paymentType domain.PaymentType) error {
	if _, err := r.resolve(ctx, "mark_sold"); err != nil {
		return err
	}

	if !paymentType.Valid() {
		r.Alerts.Error(msgInvalidInput)
		return domain.ErrInvalidPaymentType
	}

	updated, err := r.store.Update(ctx, id, domain.SalePatch(paymentType, r.now()))
	if err != nil {
		return r.remoteFailure(store.TableGarments, "update", "Error al registrar la venta", err, zap.String("garment_id", id))
	}

	r.replace(updated)
	r.Logger.Info("Garment sold",
		zap.String("garment_id", id),
		zap.String("payment_type", string(paymentType)),
	)
	r.Alerts.Success("Venta registrada")

	r.announceSale(id)
	return nil
}

// MarkAsPaid sets payment_status to paid whatever the current status is
func (r *garmentRepository) MarkAsPaid(ctx context.Context, id string) error {
	if _, err := r.resolve(ctx, "mark_paid"); err != nil {
		return err
	}

	updated, err := r.store.Update(ctx, id, domain.PaidPatch())
	if err != nil {
		return r.remoteFailure(store.TableGarments, "update", "Error al registrar el pago", err, zap.String("garment_id", id))
	}

	r.replace(updated)
	r.Logger.Info("Garment paid", zap.String("garment_id", id))
	r.Alerts.Success("Pago registrado")
	return nil
}

// replace swaps in the new row; rows missing locally are left to the next fetch
func (r *garmentRepository) replace(updated *domain.Garment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, g := range r.garments {
		if g.ID == updated.ID {
			next := make([]*domain.Garment, len(r.garments))
			copy(next, r.garments)
			next[i] = updated
			r.garments = next
			return
		}
	}
}

func (r *garmentRepository) announceSale(id string) {
	if r.notifier == nil || r.suppliers == nil {
		return
	}

	garment, ok := r.Find(id)
	if !ok || garment.SupplierID == nil {
		metrics.SaleNotificationsTotal.WithLabelValues("skipped").Inc()
		return
	}
	supplier, ok := r.suppliers.Find(*garment.SupplierID)
	if !ok {
		metrics.SaleNotificationsTotal.WithLabelValues("skipped").Inc()
		return
	}

	r.notifier.NotifySale(supplier, garment)
}
