// Package auth is the authentication collaborator: email/password and OAuth
// sign-in, server-side sessions, and session state change events.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"consigna/internal/domain"
	"consigna/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for password hashes
	BcryptCost = 10

	oauthStateTTL = 10 * time.Minute
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidToken        = errors.New("invalid token")
	ErrSessionNotFound     = errors.New("session not found or expired")
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	ErrInvalidOAuthState   = errors.New("invalid or expired oauth state")
)

// Session is an authenticated session
type Session struct {
	ID          string              `json:"id"`
	AuthID      string              `json:"auth_id"`
	Email       string              `json:"email"`
	Provider    domain.AuthProvider `json:"provider"`
	AccessToken string              `json:"access_token"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// Event is the kind of session state change
type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

// StateChange is delivered to OnAuthStateChange callbacks. Expired sessions
// are reported as EventSignedOut.
type StateChange struct {
	Event   Event
	Session *Session
}

// Claims are the access token claims; the subject is the identity id
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Service defines the authentication operations
type Service interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignInWithOAuth(provider domain.AuthProvider, redirect string) (string, error)
	CompleteOAuth(ctx context.Context, state, code string) (*Session, string, error)
	SignOut(ctx context.Context, sessionID string) error
	OnAuthStateChange(cb func(StateChange)) (cancel func())
	CurrentSession(token string) (*Session, error)
}

// Options configures the auth service
type Options struct {
	JWTSecret  string
	SessionTTL time.Duration
	// Providers maps OAuth providers to their implementation; may be empty
	Providers map[domain.AuthProvider]OAuthProvider
}

type oauthState struct {
	provider domain.AuthProvider
	redirect string
}

type service struct {
	identities store.IdentityStore
	jwtSecret  []byte
	sessionTTL time.Duration
	providers  map[domain.AuthProvider]OAuthProvider
	logger     *zap.Logger

	sessions *gocache.Cache
	states   *gocache.Cache

	mu        sync.RWMutex
	listeners map[int]func(StateChange)
	nextID    int
}

// NewService creates the auth service
func NewService(identities store.IdentityStore, opts Options, logger *zap.Logger) Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}

	s := &service{
		identities: identities,
		jwtSecret:  []byte(opts.JWTSecret),
		sessionTTL: opts.SessionTTL,
		providers:  opts.Providers,
		logger:     logger,
		sessions:   gocache.New(opts.SessionTTL, time.Minute),
		states:     gocache.New(oauthStateTTL, time.Minute),
		listeners:  make(map[int]func(StateChange)),
	}
	if s.providers == nil {
		s.providers = map[domain.AuthProvider]OAuthProvider{}
	}

	// Delete and expiry both end up here
	s.sessions.OnEvicted(func(_ string, v interface{}) {
		if sess, ok := v.(*Session); ok {
			s.emit(StateChange{Event: EventSignedOut, Session: sess})
		}
	})

	return s
}

// SignUp registers email/password credentials and signs the new identity in
func (s *service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &domain.AuthIdentity{Email: email, PasswordHash: hash, Provider: domain.ProviderEmail}
	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, store.ErrIdentityAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	s.logger.Info("Identity registered", zap.String("auth_id", identity.ID))
	return s.startSession(identity)
}

// SignIn checks email/password credentials
func (s *service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	identity, err := s.identities.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if identity.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(identity)
}

// SignInWithOAuth returns the provider consent URL the browser must visit
func (s *service) SignInWithOAuth(provider domain.AuthProvider, redirect string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnsupportedProvider
	}

	state := uuid.New().String()
	s.states.Set(state, oauthState{provider: provider, redirect: redirect}, gocache.DefaultExpiration)
	return p.AuthCodeURL(state), nil
}

// CompleteOAuth finishes the OAuth round trip and returns the session plus the
// redirect requested in SignInWithOAuth. Unknown emails get a new identity.
func (s *service) CompleteOAuth(ctx context.Context, state, code string) (*Session, string, error) {
	v, ok := s.states.Get(state)
	if !ok {
		return nil, "", ErrInvalidOAuthState
	}
	s.states.Delete(state)
	pending := v.(oauthState)

	p, ok := s.providers[pending.provider]
	if !ok {
		return nil, "", ErrUnsupportedProvider
	}

	info, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	email := normalizeEmail(info.Email)
	identity, err := s.identities.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrIdentityNotFound) {
		identity = &domain.AuthIdentity{Email: email, Provider: pending.provider}
		err = s.identities.Create(ctx, identity)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve oauth identity: %w", err)
	}

	sess, err := s.startSession(identity)
	if err != nil {
		return nil, "", err
	}
	return sess, pending.redirect, nil
}

// SignOut ends a session; unknown sessions are ignored
func (s *service) SignOut(ctx context.Context, sessionID string) error {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return nil
	}
	s.sessions.Delete(sessionID)
	s.logger.Info("Session signed out", zap.String("session_id", sessionID))
	return nil
}

// OnAuthStateChange registers cb for every sign-in and sign-out.
// Callbacks run synchronously on the goroutine that caused the change.
func (s *service) OnAuthStateChange(cb func(StateChange)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// CurrentSession validates an access token and returns its live session
func (s *service) CurrentSession(token string) (*Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	v, ok := s.sessions.Get(claims.SessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*Session), nil
}

func (s *service) startSession(identity *domain.AuthIdentity) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.New().String(),
		AuthID:    identity.ID,
		Email:     identity.Email,
		Provider:  identity.Provider,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.signToken(sess, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	sess.AccessToken = token

	s.sessions.Set(sess.ID, sess, s.sessionTTL)
	s.logger.Info("Session started",
		zap.String("session_id", sess.ID),
		zap.String("auth_id", sess.AuthID),
		zap.String("provider", string(sess.Provider)),
	)

	s.emit(StateChange{Event: EventSignedIn, Session: sess})
	return sess, nil
}

func (s *service) signToken(sess *Session, now time.Time) (string, error) {
	claims := &Claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.AuthID,
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *service) parseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *service) emit(change StateChange) {
	s.mu.RLock()
	callbacks := make([]func(StateChange), 0, len(s.listeners))
	for _, cb := range s.listeners {
		callbacks = append(callbacks, cb)
	}
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(change)
	}
}

// HashPassword hashes a password with BcryptCost
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
