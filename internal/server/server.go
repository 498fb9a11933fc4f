// Package server sets up the HTTP router, routes and graceful shutdown.
//
// It is the composition point of the HTTP layer: cmd/videohub builds the
// services and hands them over in Deps; this package decides which URL
// maps to which handler and which middleware runs where.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/handler"
	"github.com/sakif/videohub/internal/metrics"
	"github.com/sakif/videohub/internal/middleware"
	"github.com/sakif/videohub/internal/service"
)

// apiTimeout bounds JSON endpoints. Uploads and reviews (which may publish
// to YouTube) run without it.
const apiTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port          int
	BaseURL       string
	MaxUploadSize int64
}

// GoogleFlows is both Google OAuth flows. *auth.GoogleProvider implements
// it.
type GoogleFlows interface {
	handler.SignInProvider
	handler.ChannelProvider
}

// Deps are the services and infrastructure the routes are built from.
type Deps struct {
	Identity *service.IdentityService
	Accounts *service.AccountService
	Videos   *service.VideoService
	Reviews  *service.ReviewService
	Tokens   *auth.TokenService
	Google   GoogleFlows
	Metrics  *metrics.Metrics
	Health   func(ctx context.Context) error
}

type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID  assigns the id the logger prints
//  2. RealIP     extracts the client address from proxy headers
//  3. Logger     logs every request with timing info
//  4. Recoverer  turns panics into 500s
func (s *Server) setupRoutes(deps Deps) {
	secure := strings.HasPrefix(s.config.BaseURL, "https://")

	authHandler := handler.NewAuthHandler(deps.Identity, deps.Google, deps.Tokens.TTL(), secure, s.logger)
	userHandler := handler.NewUserHandler(deps.Identity, s.logger)
	accountHandler := handler.NewAccountHandler(deps.Accounts, deps.Google, secure, s.logger)
	videoHandler := handler.NewVideoHandler(deps.Videos, deps.Reviews, s.config.MaxUploadSize, s.logger)
	requireAuth := auth.RequireAuth(deps.Tokens, deps.Identity)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth(deps.Health))
	s.router.Handle("/metrics", deps.Metrics.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(requireAuth).Get("/youtube/callback", accountHandler.HandleChannelCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(apiTimeout))

			r.Get("/me", authHandler.HandleMe)

			r.Post("/users", userHandler.HandleCreate)
			r.Delete("/users/{id}", userHandler.HandleDelete)

			r.Get("/accounts", accountHandler.HandleList)
			r.Post("/accounts", accountHandler.HandleCreate)
			r.Get("/accounts/{id}", accountHandler.HandleGet)
			r.Get("/accounts/{id}/editors", accountHandler.HandleListEditors)
			r.Post("/accounts/{id}/editors", accountHandler.HandleAddEditor)
			r.Delete("/accounts/{id}/editors/{userID}", accountHandler.HandleRemoveEditor)
			r.Get("/accounts/{id}/channel/connect", accountHandler.HandleConnectChannel)

			r.Get("/accounts/{id}/videos", videoHandler.HandleList)
			r.Get("/videos/{id}", videoHandler.HandleGet)
		})

		r.Post("/accounts/{id}/videos", videoHandler.HandleUpload)
		r.Post("/videos/{id}/review", videoHandler.HandleReview)
		r.Post("/videos/{id}/publish", videoHandler.HandlePublish)
	})
}

func (s *Server) handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				s.logger.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully,
// giving in-flight requests 30 seconds to finish.
//
// There is no WriteTimeout: uploads and publication can legitimately take
// minutes. JSON routes are bounded by apiTimeout instead.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
