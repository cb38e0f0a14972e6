package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/frontdesk/internal/api/v1"
	"github.com/gosuda/frontdesk/internal/api/ws"
	"github.com/gosuda/frontdesk/internal/changefeed"
	"github.com/gosuda/frontdesk/internal/config"
	"github.com/gosuda/frontdesk/internal/server/middleware"
)

// HealthChecker reports whether the request store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds the background
// rate-limiter cleanup. rooms may be nil when the room transport is disabled.
func New(ctx context.Context, cfg *config.Config, svc v1.RequestService, cat v1.CatalogService, health HealthChecker, subs changefeed.Subscriber, rooms v1.RoomTokenIssuer) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(subs, svc)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Caller group: unauthenticated, rate limited per IP.
	// 2. Supervisor group: admin token required.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateBurst))

			callerConfig := huma.DefaultConfig("Frontdesk Caller API", "1.0.0")
			callerConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			callerAPI := humachi.New(r, callerConfig)
			registerCallerRoutes(callerAPI, svc, cat, rooms)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireAdmin())
			r.Use(middleware.RateLimit(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateBurst))

			supervisorConfig := huma.DefaultConfig("Frontdesk Supervisor API", "1.0.0")
			supervisorConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			supervisorConfig.OpenAPIPath = "/supervisor/openapi"
			supervisorConfig.DocsPath = "/supervisor/docs"
			supervisorConfig.SchemasPath = "/supervisor/schemas"
			supervisorAPI := humachi.New(r, supervisorConfig)
			registerSupervisorRoutes(supervisorAPI, svc, cat)
		})
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		registerCallerWSRoutes(r, hub)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireAdmin())
			registerSupervisorWSRoutes(r, hub)
		})
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := health.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("health check: store unreachable")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
