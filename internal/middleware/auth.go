package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"consigna/internal/auth"
	"consigna/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	SessionKey   contextKey = "session"
	InventoryKey contextKey = "inventory"

	// SessionCookie carries the access token after an OAuth redirect
	SessionCookie = "consigna_session"
	// SessionHeader echoes the authenticated session id on every response
	SessionHeader = "X-Session-Id"
)

// AuthMiddleware resolves the access token (Bearer header or session cookie)
// to a live session
func AuthMiddleware(authSvc auth.Service, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				logger.Debug("Rejected request without usable token", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			sess, err := authSvc.CurrentSession(tokenString)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, auth.ErrSessionNotFound) {
					RespondWithError(w, http.StatusUnauthorized, "session expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			logger.Debug("Session authenticated",
				zap.String("session_id", sess.ID),
				zap.String("auth_id", sess.AuthID),
			)

			w.Header().Set(SessionHeader, sess.ID)
			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InventoryMiddleware attaches the session's inventory. Must run after AuthMiddleware.
func InventoryMiddleware(manager *service.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSession(r.Context())
			if !ok {
				logger.Error("Inventory requested without a session")
				RespondWithError(w, http.StatusUnauthorized, "missing session")
				return
			}

			inv := manager.For(sess)
			ctx := context.WithValue(r.Context(), InventoryKey, inv)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", errors.New("missing authorization header")
}

// GetSession extracts the authenticated session from request context
func GetSession(ctx context.Context) (*auth.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*auth.Session)
	return sess, ok
}

// GetInventory extracts the session inventory from request context
func GetInventory(ctx context.Context) (*service.Inventory, bool) {
	inv, ok := ctx.Value(InventoryKey).(*service.Inventory)
	return inv, ok
}
