package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"consigna/internal/alert"
	"consigna/internal/domain"
	"consigna/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errRemote = errors.New("remote store unavailable")

// mockSupplierStore is a map-backed SupplierStore that counts calls
type mockSupplierStore struct {
	mu        sync.Mutex
	suppliers map[string]*domain.Supplier
	calls     map[string]int
	failOn    map[string]bool
}

func newMockSupplierStore(suppliers ...*domain.Supplier) *mockSupplierStore {
	m := &mockSupplierStore{
		suppliers: make(map[string]*domain.Supplier),
		calls:     make(map[string]int),
		failOn:    make(map[string]bool),
	}
	for _, s := range suppliers {
		m.suppliers[s.ID] = s
	}
	return m
}

func (m *mockSupplierStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockSupplierStore) List(ctx context.Context) ([]*domain.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	if m.failOn["list"] {
		return nil, errRemote
	}
	out := make([]*domain.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSupplierStore) Insert(ctx context.Context, supplier *domain.Supplier) (*domain.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["insert"]++
	if m.failOn["insert"] {
		return nil, errRemote
	}
	c := *supplier
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()
	m.suppliers[c.ID] = &c
	out := c
	return &out, nil
}

func (m *mockSupplierStore) Update(ctx context.Context, id string, patch domain.SupplierPatch) (*domain.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	if m.failOn["update"] {
		return nil, errRemote
	}
	s, ok := m.suppliers[id]
	if !ok {
		return nil, domain.ErrSupplierNotFound
	}
	c := *s
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Surname != nil {
		c.Surname = *patch.Surname
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	m.suppliers[id] = &c
	out := c
	return &out, nil
}

func (m *mockSupplierStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	if m.failOn["delete"] {
		return errRemote
	}
	if _, ok := m.suppliers[id]; !ok {
		return domain.ErrSupplierNotFound
	}
	delete(m.suppliers, id)
	return nil
}

// mockGarmentStore keeps garments in insertion order and records patches
type mockGarmentStore struct {
	mu       sync.Mutex
	garments []*domain.Garment
	patches  []domain.GarmentPatch
	calls    map[string]int
	failOn   map[string]bool
}

func newMockGarmentStore(garments ...*domain.Garment) *mockGarmentStore {
	return &mockGarmentStore{
		garments: garments,
		calls:    make(map[string]int),
		failOn:   make(map[string]bool),
	}
}

func (m *mockGarmentStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockGarmentStore) List(ctx context.Context) ([]*domain.Garment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	if m.failOn["list"] {
		return nil, errRemote
	}
	out := make([]*domain.Garment, len(m.garments))
	for i, g := range m.garments {
		out[i] = g.Clone()
	}
	return out, nil
}

func (m *mockGarmentStore) Insert(ctx context.Context, garment *domain.Garment) (*domain.Garment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["insert"]++
	if m.failOn["insert"] {
		return nil, errRemote
	}
	c := garment.Clone()
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()
	m.garments = append([]*domain.Garment{c}, m.garments...)
	return c.Clone(), nil
}

func (m *mockGarmentStore) Update(ctx context.Context, id string, patch domain.GarmentPatch) (*domain.Garment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	m.patches = append(m.patches, patch)
	if m.failOn["update"] {
		return nil, errRemote
	}
	for i, g := range m.garments {
		if g.ID == id {
			m.garments[i] = patch.Apply(g)
			return m.garments[i].Clone(), nil
		}
	}
	return nil, domain.ErrGarmentNotFound
}

func (m *mockGarmentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	if m.failOn["delete"] {
		return errRemote
	}
	for i, g := range m.garments {
		if g.ID == id {
			m.garments = append(m.garments[:i], m.garments[i+1:]...)
			return nil
		}
	}
	return domain.ErrGarmentNotFound
}

// recordingNotifier counts sale notifications
type recordingNotifier struct {
	mu    sync.Mutex
	sales []*domain.Garment
}

func (n *recordingNotifier) NotifySale(supplier *domain.Supplier, garment *domain.Garment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sales = append(n.sales, garment)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sales)
}

var testIdentity = &session.Identity{UserID: "user-1", Role: domain.RoleAdmin}

func testDeps(feed *alert.Feed) Deps {
	return Deps{
		Identity: session.Static{Value: testIdentity},
		Alerts:   feed,
		Logger:   zap.NewNop(),
	}
}

func unresolvedDeps(feed *alert.Feed) Deps {
	return Deps{
		Identity: session.Static{Err: session.ErrIdentityNotFound},
		Alerts:   feed,
		Logger:   zap.NewNop(),
	}
}

func levels(alerts []alert.Alert) []alert.Level {
	out := make([]alert.Level, len(alerts))
	for i, a := range alerts {
		out[i] = a.Level
	}
	return out
}

func strPtr(s string) *string { return &s }
