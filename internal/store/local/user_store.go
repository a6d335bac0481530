package local

import (
	"context"
	"strings"
	"time"

	"consigna/internal/domain"
	"consigna/internal/store"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
)

// identityRecord keeps the password hash, which AuthIdentity hides from JSON
type identityRecord struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	PasswordHash string              `json:"password_hash"`
	Provider     domain.AuthProvider `json:"provider"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (r *identityRecord) identity() *domain.AuthIdentity {
	return &domain.AuthIdentity{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Provider:     r.Provider,
		CreatedAt:    r.CreatedAt,
	}
}

type userStore struct {
	db *DB
}

// NewUserStore creates a UserStore kept under the "users" key
func NewUserStore(db *DB) store.UserStore {
	return &userStore{db: db}
}

func (s *userStore) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	return s.db.update(nil, func(tx *bolt.Tx) error {
		users, err := readTable[domain.User](tx, store.TableUsers)
		if err != nil {
			return err
		}
		for _, existing := range users {
			if existing.AuthID == user.AuthID {
				return store.ErrUserAlreadyExists
			}
		}
		row := *user
		return writeTable(tx, store.TableUsers, append(users, &row))
	})
}

func (s *userStore) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	var found *domain.User
	err := s.db.view(func(tx *bolt.Tx) error {
		users, err := readTable[domain.User](tx, store.TableUsers)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.AuthID == authID {
				found = u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

type identityStore struct {
	db *DB
}

// NewIdentityStore creates an IdentityStore kept under the "identities" key
func NewIdentityStore(db *DB) store.IdentityStore {
	return &identityStore{db: db}
}

func (s *identityStore) Create(ctx context.Context, identity *domain.AuthIdentity) error {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	return s.db.update(nil, func(tx *bolt.Tx) error {
		records, err := readTable[identityRecord](tx, store.TableIdentities)
		if err != nil {
			return err
		}
		for _, existing := range records {
			if strings.EqualFold(existing.Email, identity.Email) {
				return store.ErrIdentityAlreadyExists
			}
		}
		return writeTable(tx, store.TableIdentities, append(records, &identityRecord{
			ID:           identity.ID,
			Email:        identity.Email,
			PasswordHash: identity.PasswordHash,
			Provider:     identity.Provider,
			CreatedAt:    identity.CreatedAt,
		}))
	})
}

func (s *identityStore) FindByEmail(ctx context.Context, email string) (*domain.AuthIdentity, error) {
	return s.find(func(r *identityRecord) bool { return strings.EqualFold(r.Email, email) })
}

func (s *identityStore) FindByID(ctx context.Context, id string) (*domain.AuthIdentity, error) {
	return s.find(func(r *identityRecord) bool { return r.ID == id })
}

func (s *identityStore) find(match func(*identityRecord) bool) (*domain.AuthIdentity, error) {
	var found *domain.AuthIdentity
	err := s.db.view(func(tx *bolt.Tx) error {
		records, err := readTable[identityRecord](tx, store.TableIdentities)
		if err != nil {
			return err
		}
		for _, r := range records {
			if match(r) {
				found = r.identity()
				return nil
			}
		}
		return store.ErrIdentityNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
