package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/enki09/borg-collective/internal/api/middleware"
	"github.com/enki09/borg-collective/internal/handlers"
	"github.com/enki09/borg-collective/internal/relay"
	"github.com/enki09/borg-collective/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, rel *relay.Relay, reg *relay.Registry, inbox store.Inbox, snap store.SnapshotStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(256 * 1024)) // captured turns can be long
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - allow all origins (capture agents and control panels call from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handlers.SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(rel, reg, inbox, snap)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Relay boundary: all message frames enter here
	r.Post("/relay", h.Relay)

	// Session lifecycle and broadcast delivery
	r.Post("/sessions", h.RegisterSession)
	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions/{id}/heartbeat", h.Heartbeat)
	r.Get("/sessions/{id}/inbox", h.PollInbox)

	return r
}
