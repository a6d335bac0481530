// Package session resolves the signed-in principal to the internal user and
// carries it through a session explicitly.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"consigna/internal/auth"
	"consigna/internal/domain"
	"consigna/internal/store"

	"go.uber.org/zap"
)

var ErrIdentityNotFound = errors.New("no user linked to this identity")

// Identity is the internal user behind an authenticated session
type Identity struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
}

// IsAdmin reports whether the identity may reach admin views
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == domain.RoleAdmin
}

// Resolver maps an authentication identity id to the internal user
type Resolver interface {
	Resolve(ctx context.Context, authID string) (*Identity, error)
}

type resolver struct {
	users  store.UserStore
	logger *zap.Logger
}

// NewResolver creates a Resolver doing one users lookup per call. Nothing is cached.
func NewResolver(users store.UserStore, logger *zap.Logger) Resolver {
	return &resolver{users: users, logger: logger}
}

func (r *resolver) Resolve(ctx context.Context, authID string) (*Identity, error) {
	user, err := r.users.FindByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrIdentityNotFound
		}
		r.logger.Error("Failed to resolve identity", zap.String("auth_id", authID), zap.Error(err))
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	return &Identity{UserID: user.ID, Role: user.Role, Email: user.Email, Name: user.Name}, nil
}

// IdentitySource yields the identity repositories act as
type IdentitySource interface {
	Identity(ctx context.Context) (*Identity, error)
}

// Context is the explicit per-session context handed to repositories
type Context struct {
	session  *auth.Session
	resolver Resolver

	mu      sync.RWMutex
	current *Identity
}

// NewContext binds sess to resolver
func NewContext(sess *auth.Session, resolver Resolver) *Context {
	return &Context{session: sess, resolver: resolver}
}

// Session returns the authentication session
func (c *Context) Session() *auth.Session {
	return c.session
}

// ID returns the session id
func (c *Context) ID() string {
	return c.session.ID
}

// Identity resolves the identity again on every call and remembers the last success
func (c *Context) Identity(ctx context.Context) (*Identity, error) {
	identity, err := c.resolver.Resolve(ctx, c.session.AuthID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = identity
	c.mu.Unlock()
	return identity, nil
}

// Current returns the last resolved identity, or nil
func (c *Context) Current() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Static is a fixed IdentitySource
type Static struct {
	Value *Identity
	Err   error
}

func (s Static) Identity(ctx context.Context) (*Identity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Value == nil {
		return nil, ErrIdentityNotFound
	}
	return s.Value, nil
}
