// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, services,
// handlers, middleware, and routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New() opens the Store (sqlite or postgres)
//	Store.Users() ─┐
//	TokenService ──┼→ AuthService → AuthHandler, RequireAuth
//	PasswordService┘
//	Store.*() → AnimalService → AnimalHandler
//	Store.*() → UserService   → UserHandler
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/config"
	"github.com/sakif/buddy-system/internal/handler"
	"github.com/sakif/buddy-system/internal/middleware"
	"github.com/sakif/buddy-system/internal/repository"
	"github.com/sakif/buddy-system/internal/repository/postgres"
	sqliteRepo "github.com/sakif/buddy-system/internal/repository/sqlite"
	"github.com/sakif/buddy-system/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so no request ever sees a closed database.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   repository.Store
	version string
}

// OpenStore connects to the database selected by cfg.DBDriver and migrates it.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		if cfg.DBPath != ":memory:" {
			// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.DBPath)
	}
}

// New opens the configured store and wires the full application.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithStore(cfg, store, auth.NewPasswordService(), logger, version)
	if err != nil {
		store.Close() // Clean up DB if wiring fails
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the application around an already-open store.
// Tests use it with an in-memory SQLite store and a cheap bcrypt cost.
func NewWithStore(
	cfg *config.Config,
	store repository.Store,
	passwords *auth.PasswordService,
	logger *slog.Logger,
	version string,
) (*Server, error) {
	if cfg.UsingDevJWTKey {
		logger.Warn("JWT_KEY not set, signing tokens with the insecure development key")
	}

	tokens, err := auth.NewTokenService(cfg.JWTKey)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		version: version,
	}
	s.setupRoutes(tokens, passwords)
	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                          → API description
// GET    /health                    → "ok" while the DB answers
// GET    /metrics                   → Prometheus exposition
// POST   /auth/registration         → create account
// POST   /auth/token                → password grant (rate limited per IP)
// GET    /animals                   → list (sort, intake_after, intake_before)
// POST   /animals                   → create
// GET    /animals/{id}              → get
// PUT    /animals/{id}              → partial update / adopt / return
// DELETE /animals/{id}              → delete
// GET    /animals/{id}/fosters      → foster links of the animal
// POST   /animals/{id}/fosters      → caller fosters the animal       [auth]
// GET    /users                     → list
// GET    /users/me                  → caller's profile                [auth]
// GET    /users/{id}                → get
// PUT    /users/{id}                → update own account              [auth]
// DELETE /users/{id}                → delete own account              [auth]
// GET    /users/{id}/fosters        → animals the user fosters
// GET    /users/{id}/pets           → animals the user adopted
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP (TRUST_PROXY only): takes the client IP from proxy headers (the rate limiter keys on it)
// 3. Logger, metrics: see the final status, including recovered panics
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: answers preflight requests before any route runs
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	metrics := middleware.NewMetrics(s.version)
	limiter := middleware.NewRateLimiter(s.config.TokenRatePerSecond, s.config.TokenRateBurst)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Instrument)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	// === Services ===
	// Each service receives repository interfaces, never the concrete store.
	authService := service.NewAuthService(s.store.Users(), tokens, passwords, s.logger)
	animalService := service.NewAnimalService(s.store.Animals(), s.store.Users(), s.store.Fosters(), s.logger)
	userService := service.NewUserService(s.store.Users(), s.store.Animals(), s.store.Fosters(), passwords, s.logger)

	// === Handlers ===
	indexHandler := handler.NewIndexHandler(s.store, s.version, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	animalHandler := handler.NewAnimalHandler(animalService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	// RequireAuth renders failures through the same WriteError as every handler.
	requireAuth := auth.RequireAuth(authService, handler.WriteError)

	s.router.Get("/", indexHandler.HandleIndex)
	s.router.Get("/health", indexHandler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/registration", authHandler.HandleRegister)
		r.With(limiter.Limit).Post("/token", authHandler.HandleToken)
	})

	s.router.Route("/animals", func(r chi.Router) {
		r.Get("/", animalHandler.HandleList)
		r.Post("/", animalHandler.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", animalHandler.HandleGet)
			r.Put("/", animalHandler.HandleUpdate)
			r.Delete("/", animalHandler.HandleDelete)
			r.Get("/fosters", animalHandler.HandleListFosters)
			r.With(requireAuth).Post("/fosters", animalHandler.HandleAddFoster)
		})
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.HandleList)
		// static segments win over {id} in chi, so /users/me is never treated as an id
		r.With(requireAuth).Get("/me", userHandler.HandleMe)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", userHandler.HandleGet)
			r.With(requireAuth).Put("/", userHandler.HandleUpdate)
			r.With(requireAuth).Delete("/", userHandler.HandleDelete)
			r.Get("/fosters", userHandler.HandleFosters)
			r.Get("/pets", userHandler.HandlePets)
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections (SIGINT / SIGTERM)
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database (flushes the SQLite WAL / returns pooled PG connections)
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Environment),
			slog.String("driver", s.config.DBDriver),
			slog.String("version", s.version),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
