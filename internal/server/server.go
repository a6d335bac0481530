package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"consigna/internal/auth"
	"consigna/internal/config"
	"consigna/internal/domain"
	"consigna/internal/metrics"
	custommiddleware "consigna/internal/middleware"
	"consigna/internal/service"
	"consigna/internal/session"
	"consigna/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// hubRetryDelay spaces reconnect attempts of the change hub
const hubRetryDelay = 5 * time.Second

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	storage *Storage
	manager *service.Manager
	redis   *redis.Client

	cancel context.CancelFunc
	hubDone chan struct{}
}

func NewServer(cfg *config.Config, logger *zap.Logger, storage *Storage) (*Server, error) {
	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		logger:  logger,
		storage: storage,
		cancel:  cancel,
		hubDone: make(chan struct{}),
	}

	if storage.Hub != nil {
		go s.listen(ctx)
	} else {
		close(s.hubDone)
	}

	// Initialize auth and the session manager
	providers := map[domain.AuthProvider]auth.OAuthProvider{}
	if cfg.OAuth.GoogleEnabled() {
		providers[domain.ProviderGoogle] = auth.NewGoogleProvider(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.Server.BaseURL+"/api/auth/oauth/callback",
		)
	}
	authSvc := auth.NewService(storage.Backend.Identities, auth.Options{
		JWTSecret:  cfg.JWT.Secret,
		SessionTTL: cfg.JWT.SessionTTL(),
		Providers:  providers,
	}, logger)

	s.manager = service.NewManager(
		authSvc,
		session.NewResolver(storage.Backend.Users, logger),
		storage.Backend,
		service.Options{CountryCode: cfg.WhatsApp.CountryCode},
		cfg.JWT.SessionTTL(),
		logger,
	)

	var rateLimit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rateLimit = custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            time.Duration(cfg.RateLimit.Window) * time.Second,
			KeyPrefix:         "consigna:auth",
		}, logger)
	}

	// Create router
	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := storage.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})
	router.Method(http.MethodGet, "/metrics", metricsHandler)

	authMiddleware := custommiddleware.AuthMiddleware(authSvc, logger)
	inventoryMiddleware := custommiddleware.InventoryMiddleware(s.manager, logger)

	// Register routes
	transport.NewAuthHandler(authSvc, !cfg.Server.IsDevelopment(), logger).
		RegisterRoutes(router, authMiddleware, inventoryMiddleware, rateLimit)
	transport.NewInventoryHandler(logger).
		RegisterRoutes(router, authMiddleware, inventoryMiddleware)
	transport.NewSalesHandler(logger).
		RegisterRoutes(router, custommiddleware.RequireAdmin(logger), authMiddleware, inventoryMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// listen keeps the change hub running until the server closes
func (s *Server) listen(ctx context.Context) {
	defer close(s.hubDone)

	for {
		err := s.storage.Hub.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("Change hub stopped, retrying",
			zap.Error(err),
			zap.Duration("delay", hubRetryDelay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(hubRetryDelay):
		}
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.cancel()
	<-s.hubDone

	s.manager.Close()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.storage.Backend.Close(); err != nil {
		s.logger.Error("Failed to close data store", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
