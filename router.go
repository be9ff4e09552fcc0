package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/tasktree/internal/config"
	"github.com/s1natex/tasktree/internal/middleware"
	"github.com/s1natex/tasktree/internal/tasks"
)

// newRouter wires the health and metrics endpoints, task routes, and middleware stack
func newRouter(store *tasks.Store, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, traces, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Location", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Mode:        middleware.AuthMode(cfg.Auth.Mode),
		APIKey:      cfg.Auth.APIKey,
		BearerToken: cfg.Auth.BearerToken,
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "tasks": store.Len()})
	})
	r.Handle("/metrics", middleware.MetricsHandler())

	tasks.RegisterRoutes(r, store)

	return r
}
