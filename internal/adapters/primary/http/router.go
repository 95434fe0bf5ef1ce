package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/taskboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// RouterConfig collects everything the API router is assembled from.
// Rate limiters and the metrics handler are optional.
type RouterConfig struct {
	Logger         *slog.Logger
	Verifier       ports.CredentialVerifier
	StreamGate     *mw.StreamGate
	Health         *HealthHandler
	Projects       *ProjectHandler
	Streams        *StreamHandler
	Metrics        http.Handler
	GeneralLimiter *mw.RateLimiter
	StreamLimiter  *mw.RateLimiter
	AllowedOrigins []string
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader, "Last-Event-ID"},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Subscription endpoints: the stream gate, then a per-user connect limit
		r.Group(func(r chi.Router) {
			r.Use(cfg.StreamGate.Middleware)
			if cfg.StreamLimiter != nil {
				r.Use(cfg.StreamLimiter.Middleware)
			}
			r.Route("/stream", cfg.Streams.RegisterRoutes)
		})

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(cfg.Verifier))
			r.Route("/projects", cfg.Projects.RegisterRoutes)
		})
	})

	return r
}
