// Package store defines the remote store contracts the repositories talk to.
package store

import (
	"context"
	"errors"

	"consigna/internal/domain"
)

// Table names used for ordering, change notifications, and the local fallback keys
const (
	TableSuppliers  = "suppliers"
	TableGarments   = "garments"
	TableUsers      = "users"
	TableIdentities = "identities"
)

var (
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrIdentityAlreadyExists = errors.New("identity with this email already exists")
	ErrUserAlreadyExists     = errors.New("user already linked to this identity")
)

// SupplierStore is the remote supplier table. List orders by name ascending.
type SupplierStore interface {
	List(ctx context.Context) ([]*domain.Supplier, error)
	Insert(ctx context.Context, supplier *domain.Supplier) (*domain.Supplier, error)
	Update(ctx context.Context, id string, patch domain.SupplierPatch) (*domain.Supplier, error)
	Delete(ctx context.Context, id string) error
}

// GarmentStore is the remote garment table. List orders by creation time descending.
type GarmentStore interface {
	List(ctx context.Context) ([]*domain.Garment, error)
	Insert(ctx context.Context, garment *domain.Garment) (*domain.Garment, error)
	Update(ctx context.Context, id string, patch domain.GarmentPatch) (*domain.Garment, error)
	Delete(ctx context.Context, id string) error
}

// UserStore maps authentication identities to internal users
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	FindByAuthID(ctx context.Context, authID string) (*domain.User, error)
}

// IdentityStore holds sign-in credentials
type IdentityStore interface {
	Create(ctx context.Context, identity *domain.AuthIdentity) error
	FindByEmail(ctx context.Context, email string) (*domain.AuthIdentity, error)
	FindByID(ctx context.Context, id string) (*domain.AuthIdentity, error)
}

// Backend bundles every table plus the change feed of one storage implementation
type Backend struct {
	Suppliers  SupplierStore
	Garments   GarmentStore
	Users      UserStore
	Identities IdentityStore
	Changes    ChangeFeed
	Close      func() error
}
