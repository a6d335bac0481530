package service

import (
	"context"
	"sync/atomic"

	"consigna/internal/alert"
	"consigna/internal/domain"
	"consigna/internal/metrics"
	"consigna/internal/realtime"
	"consigna/internal/repository"
	"consigna/internal/session"
	"consigna/internal/store"
	"consigna/internal/whatsapp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tunes what every session inventory is built with
type Options struct {
	CountryCode   string
	AlertCapacity int
}

// Inventory is the per-session state object: both collections, the change
// listener and the handlers the HTTP layer calls.
type Inventory struct {
	session   *session.Context
	suppliers repository.SupplierRepository
	garments  repository.GarmentRepository
	listener  *realtime.Listener
	alerts    *alert.Feed
	logger    *zap.Logger

	loading atomic.Bool
	closed  atomic.Bool
}

// NewInventory wires the repositories of one session against backend
func NewInventory(sess *session.Context, backend *store.Backend, opts Options, logger *zap.Logger) *Inventory {
	logger = logger.With(zap.String("session_id", sess.ID()))
	alerts := alert.NewFeed(opts.AlertCapacity)

	inv := &Inventory{session: sess, alerts: alerts, logger: logger}
	deps := repository.Deps{Identity: bindingIdentity{inv}, Alerts: alerts, Logger: logger}
	inv.suppliers = repository.NewSupplierRepository(backend.Suppliers, repository.GarmentIndexFunc(func(id string) bool {
		return inv.garments.ReferencesSupplier(id)
	}), deps)
	notifier := whatsapp.NewSaleNotifier(opts.CountryCode, whatsapp.AlertOpener{Alerts: alerts}, logger)
	inv.garments = repository.NewGarmentRepository(backend.Garments, inv.suppliers, notifier, deps)

	inv.listener = realtime.NewListener(backend.Changes, sess.ID(), map[string]realtime.Refetcher{
		store.TableSuppliers: func(ctx context.Context) { inv.suppliers.FetchAll(ctx) },
		store.TableGarments:  func(ctx context.Context) { inv.garments.FetchAll(ctx) },
	}, logger)

	return inv
}

// Start binds the listener and loads both collections concurrently. Loading
// reports true until both fetches have returned.
func (inv *Inventory) Start(ctx context.Context) {
	inv.loading.Store(true)
	defer inv.loading.Store(false)

	if _, err := inv.ResolveIdentity(ctx); err != nil {
		inv.logger.Warn("Starting inventory without a resolved identity", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		metrics.RefetchTotal.WithLabelValues(store.TableSuppliers, "initial").Inc()
		inv.suppliers.FetchAll(gctx)
		return nil
	})
	g.Go(func() error {
		metrics.RefetchTotal.WithLabelValues(store.TableGarments, "initial").Inc()
		inv.garments.FetchAll(gctx)
		return nil
	})
	g.Wait()

	inv.logger.Info("Inventory loaded",
		zap.Int("suppliers", len(inv.suppliers.List())),
		zap.Int("garments", len(inv.garments.List())),
	)
}

// Close tears the listener down and discards both collections. Re-fetches
// still in flight land nowhere.
func (inv *Inventory) Close() {
	if !inv.closed.CompareAndSwap(false, true) {
		return
	}
	inv.listener.Close()
	inv.suppliers.Discard()
	inv.garments.Discard()
	inv.logger.Info("Inventory closed")
}

func (inv *Inventory) AddSupplier(ctx context.Context, input domain.SupplierInput) (*domain.Supplier, error) {
	created, err := inv.suppliers.Add(ctx, input)
	if err != nil {
		return nil, err
	}
	inv.refetchSuppliers(ctx)
	return created, nil
}

// EditSupplier relies on the change listener to refresh the collection
func (inv *Inventory) EditSupplier(ctx context.Context, id string, patch domain.SupplierPatch) error {
	return inv.suppliers.Edit(ctx, id, patch)
}

func (inv *Inventory) DeleteSupplier(ctx context.Context, id string) error {
	if err := inv.suppliers.Delete(ctx, id); err != nil {
		return err
	}
	inv.refetchSuppliers(ctx)
	return nil
}

func (inv *Inventory) AddGarment(ctx context.Context, input domain.GarmentInput) (*domain.Garment, error) {
	created, err := inv.garments.Add(ctx, input)
	if err != nil {
		return nil, err
	}
	inv.refetchGarments(ctx)
	return created, nil
}

// EditGarment relies on the change listener to refresh the collection
func (inv *Inventory) EditGarment(ctx context.Context, id string, edit domain.GarmentEdit) error {
	return inv.garments.Edit(ctx, id, edit)
}

func (inv *Inventory) DeleteGarment(ctx context.Context, id string) error {
	if err := inv.garments.Delete(ctx, id); err != nil {
		return err
	}
	inv.refetchGarments(ctx)
	return nil
}

func (inv *Inventory) MarkAsSold(ctx context.Context, id string, paymentType domain.PaymentType) error {
	return inv.garments.MarkAsSold(ctx, id, paymentType)
}

func (inv *Inventory) MarkAsPaid(ctx context.Context, id string) error {
	return inv.garments.MarkAsPaid(ctx, id)
}

func (inv *Inventory) Suppliers() []*domain.Supplier {
	return inv.suppliers.List()
}

func (inv *Inventory) Garments() []*domain.Garment {
	return inv.garments.List()
}

// GarmentsBySupplier filters the garment collection, keeping its order
func (inv *Inventory) GarmentsBySupplier(supplierID string) []*domain.Garment {
	out := []*domain.Garment{}
	for _, g := range inv.garments.List() {
		if g.BelongsTo(supplierID) {
			out = append(out, g)
		}
	}
	return out
}

// AllSoldGarments filters the garment collection by the sold flag
func (inv *Inventory) AllSoldGarments() []*domain.Garment {
	out := []*domain.Garment{}
	for _, g := range inv.garments.List() {
		if g.IsSold {
			out = append(out, g)
		}
	}
	return out
}

// SalesSummary aggregates the sold garments of the current collections
func (inv *Inventory) SalesSummary() *SalesSummary {
	return Summarize(inv.suppliers.List(), inv.garments.List())
}

func (inv *Inventory) Loading() bool {
	return inv.loading.Load()
}

// Identity returns the last resolved identity, or nil
func (inv *Inventory) Identity() *session.Identity {
	return inv.session.Current()
}

// ResolveIdentity resolves the session's internal user again and binds the
// change listener to it, so a user linked after sign-in starts receiving
// changes on the next resolution
func (inv *Inventory) ResolveIdentity(ctx context.Context) (*session.Identity, error) {
	identity, err := inv.session.Identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := inv.listener.Bind(ctx, identity.UserID); err != nil {
		inv.logger.Error("Inventory will not receive remote changes", zap.Error(err))
	}
	return identity, nil
}

// bindingIdentity is the identity source of the repositories
type bindingIdentity struct {
	inv *Inventory
}

func (b bindingIdentity) Identity(ctx context.Context) (*session.Identity, error) {
	return b.inv.ResolveIdentity(ctx)
}

func (inv *Inventory) SessionID() string {
	return inv.session.ID()
}

func (inv *Inventory) Alerts() *alert.Feed {
	return inv.alerts
}

// refetch after a write uses a context that outlives the request
func (inv *Inventory) refetchSuppliers(ctx context.Context) {
	metrics.RefetchTotal.WithLabelValues(store.TableSuppliers, "write").Inc()
	inv.suppliers.FetchAll(context.WithoutCancel(ctx))
}

func (inv *Inventory) refetchGarments(ctx context.Context) {
	metrics.RefetchTotal.WithLabelValues(store.TableGarments, "write").Inc()
	inv.garments.FetchAll(context.WithoutCancel(ctx))
}
