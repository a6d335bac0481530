package middleware

import (
	"net/http"

	"consigna/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin ensures the session's user has the admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]domain.Role{domain.RoleAdmin}, logger)
}

// RequireRole ensures the session's user has one of the given roles. The
// identity is resolved again for every request.
func RequireRole(allowedRoles []domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inv, ok := GetInventory(r.Context())
			if !ok {
				logger.Warn("Inventory not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			identity, err := inv.ResolveIdentity(r.Context())
			if err != nil {
				logger.Warn("Role check without resolvable identity",
					zap.String("session_id", inv.SessionID()),
					zap.Error(err),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			for _, role := range allowedRoles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User role not authorized",
				zap.String("user_id", identity.UserID),
				zap.String("role", string(identity.Role)),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
