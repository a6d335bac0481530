package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"consigna/internal/auth"
	"consigna/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUserStore struct {
	users   map[string]*domain.User
	err     error
	lookups atomic.Int32
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.users[user.AuthID] = user
	return nil
}

func (m *mockUserStore) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	m.lookups.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[authID]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func TestResolve(t *testing.T) {
	users := &mockUserStore{users: map[string]*domain.User{
		"auth-1": {ID: "user-1", AuthID: "auth-1", Role: domain.RoleAdmin, Email: "a@test.com"},
	}}
	r := NewResolver(users, zap.NewNop())

	identity, err := r.Resolve(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.True(t, identity.IsAdmin())

	_, err = r.Resolve(context.Background(), "auth-2")
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	users.err = errors.New("connection refused")
	_, err = r.Resolve(context.Background(), "auth-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdentityNotFound)
}

func TestContextResolvesEveryCall(t *testing.T) {
	users := &mockUserStore{users: map[string]*domain.User{
		"auth-1": {ID: "user-1", AuthID: "auth-1", Role: domain.RoleSupplier},
	}}
	c := NewContext(&auth.Session{ID: "sess-1", AuthID: "auth-1"}, NewResolver(users, zap.NewNop()))

	assert.Nil(t, c.Current())
	for i := 0; i < 3; i++ {
		identity, err := c.Identity(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.UserID)
	}
	assert.Equal(t, int32(3), users.lookups.Load())
	assert.Equal(t, "user-1", c.Current().UserID)
	assert.False(t, c.Current().IsAdmin())
	assert.Equal(t, "sess-1", c.ID())

	// a failed lookup keeps the last good identity for role checks
	users.err = errors.New("timeout")
	_, err := c.Identity(context.Background())
	require.Error(t, err)
	assert.Equal(t, "user-1", c.Current().UserID)
}

func TestStatic(t *testing.T) {
	identity, err := Static{Value: &Identity{UserID: "u"}}.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u", identity.UserID)

	_, err = Static{}.Identity(context.Background())
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}
