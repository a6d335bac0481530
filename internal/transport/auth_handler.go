package transport

import (
	"net/http"
	"strings"
	"time"

	"consigna/internal/auth"
	"consigna/internal/domain"
	"consigna/internal/middleware"
	"consigna/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CredentialsRequest is the sign-up and sign-in payload
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SessionResponse describes an authenticated session. AccessToken is only
// present right after sign-in or sign-up.
type SessionResponse struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	Provider    domain.AuthProvider `json:"provider"`
	AccessToken string              `json:"access_token,omitempty"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// CurrentSessionResponse is the session plus its resolved identity
type CurrentSessionResponse struct {
	Session  SessionResponse   `json:"session"`
	Identity *session.Identity `json:"identity"`
	Loading  bool              `json:"loading"`
}

// AuthHandler handles sign-in, sign-up, sign-out and OAuth redirects
type AuthHandler struct {
	authSvc      auth.Service
	logger       *zap.Logger
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the OAuth
// session cookie Secure.
func NewAuthHandler(authSvc auth.Service, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:      authSvc,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes registers the auth routes. rateLimit guards credential
// endpoints and may be nil.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, inventoryMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if rateLimit != nil {
				r.Use(rateLimit)
			}
			r.Post("/sign-up", h.SignUp)
			r.Post("/sign-in", h.SignIn)
		})

		r.Get("/oauth/callback", h.OAuthCallback)
		r.Get("/oauth/{provider}", h.OAuthStart)

		r.With(authMiddleware).Post("/sign-out", h.SignOut)
	})

	r.With(authMiddleware, inventoryMiddleware).Get("/api/session", h.CurrentSession)
}

// SignUp handles email and password registration
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sign-up validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	sess, err := h.authSvc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithDomainError(w, h.logger, err, "failed to sign up")
		return
	}

	h.logger.Info("Identity registered", zap.String("auth_id", sess.AuthID))
	middleware.RespondWithJSON(w, http.StatusCreated, toSessionResponse(sess, true))
}

// SignIn handles email and password authentication
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sign-in validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	sess, err := h.authSvc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithDomainError(w, h.logger, err, "failed to sign in")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toSessionResponse(sess, true))
}

// SignOut ends the current session and clears the cookie
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.authSvc.SignOut(r.Context(), sess.ID); err != nil {
		h.logger.Debug("Sign-out of unknown session", zap.String("session_id", sess.ID), zap.Error(err))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "signed out"})
}

// OAuthStart redirects to the provider's consent page
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := domain.AuthProvider(chi.URLParam(r, "provider"))

	url, err := h.authSvc.SignInWithOAuth(provider, safeRedirect(r.URL.Query().Get("redirect")))
	if err != nil {
		respondWithDomainError(w, h.logger, err, "failed to start oauth sign-in")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback completes the OAuth flow, stores the access token in a cookie
// and sends the browser back to where the flow started
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Warn("OAuth provider returned an error", zap.String("error", e))
		middleware.RespondWithError(w, http.StatusUnauthorized, "oauth sign-in was cancelled")
		return
	}

	sess, redirect, err := h.authSvc.CompleteOAuth(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		respondWithDomainError(w, h.logger, err, "failed to complete oauth sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeRedirect(redirect), http.StatusFound)
}

// CurrentSession reports the session and re-resolves its identity
func (h *AuthHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}

	resp := CurrentSessionResponse{
		Session: toSessionResponse(sess, false),
		Loading: inv.Loading(),
	}
	if identity, err := inv.ResolveIdentity(r.Context()); err == nil {
		resp.Identity = identity
	}

	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

func toSessionResponse(sess *auth.Session, withToken bool) SessionResponse {
	resp := SessionResponse{
		ID:        sess.ID,
		Email:     sess.Email,
		Provider:  sess.Provider,
		ExpiresAt: sess.ExpiresAt,
	}
	if withToken {
		resp.AccessToken = sess.AccessToken
	}
	return resp
}

// safeRedirect keeps redirects on this origin
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
