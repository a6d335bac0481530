package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consigna/internal/domain"
	"consigna/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type userStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore backed by the users table
func NewUserStore(pool *pgxpool.Pool) store.UserStore {
	return &userStore{pool: pool}
}

// Create inserts a new internal user
func (s *userStore) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, auth_id, email, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query, user.ID, user.AuthID, user.Email, user.Name, string(user.Role), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByAuthID retrieves the user linked to an authentication identity
func (s *userStore) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	query := `
		SELECT id, auth_id, email, name, role, created_at
		FROM users
		WHERE auth_id = $1
	`

	var (
		user = &domain.User{}
		role string
	)
	err := s.pool.QueryRow(ctx, query, authID).Scan(
		&user.ID,
		&user.AuthID,
		&user.Email,
		&user.Name,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by auth id: %w", err)
	}

	user.Role = domain.Role(role)
	return user, nil
}

type identityStore struct {
	pool *pgxpool.Pool
}

// NewIdentityStore creates an IdentityStore backed by the auth_identities table
func NewIdentityStore(pool *pgxpool.Pool) store.IdentityStore {
	return &identityStore{pool: pool}
}

// Create inserts new sign-in credentials
func (s *identityStore) Create(ctx context.Context, identity *domain.AuthIdentity) error {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO auth_identities (id, email, password_hash, provider, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, identity.ID, identity.Email, identity.PasswordHash, string(identity.Provider), identity.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrIdentityAlreadyExists
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}

	return nil
}

// FindByEmail retrieves credentials by email
func (s *identityStore) FindByEmail(ctx context.Context, email string) (*domain.AuthIdentity, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

// FindByID retrieves credentials by id
func (s *identityStore) FindByID(ctx context.Context, id string) (*domain.AuthIdentity, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *identityStore) findOne(ctx context.Context, where string, arg string) (*domain.AuthIdentity, error) {
	query := `
		SELECT id, email, COALESCE(password_hash, ''), provider, created_at
		FROM auth_identities
		` + where

	var (
		identity = &domain.AuthIdentity{}
		provider string
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&provider,
		&identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	identity.Provider = domain.AuthProvider(provider)
	return identity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
