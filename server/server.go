// Package server exposes the extraction pipeline over HTTP: parse
// endpoints, stored event queries, and a health check.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendex/agendex/extract"
	"github.com/agendex/agendex/observability"
	"github.com/agendex/agendex/shield"
	"github.com/agendex/agendex/store"
)

// Config configures the HTTP server.
type Config struct {
	Extractor *extract.Extractor
	Store     *store.Store
	Logger    *slog.Logger

	// Users maps username to bcrypt hash. Empty disables auth and every
	// request runs as "anonymous".
	Users map[string]string

	// MaxBodyBytes caps request bodies (default 25 MB).
	MaxBodyBytes int64

	// RateLimiter is applied to all routes when set.
	RateLimiter *shield.RateLimiter

	// Metrics receives request and usage datapoints when set.
	Metrics *observability.MetricsManager
}

// Server is the HTTP front end.
type Server struct {
	extractor *extract.Extractor
	store     *store.Store
	logger    *slog.Logger
	users     map[string]string
	maxBody   int64
	limiter   *shield.RateLimiter
	metrics   *observability.MetricsManager
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 25 << 20
	}
	return &Server{
		extractor: cfg.Extractor,
		store:     cfg.Store,
		logger:    cfg.Logger,
		users:     cfg.Users,
		maxBody:   cfg.MaxBodyBytes,
		limiter:   cfg.RateLimiter,
		metrics:   cfg.Metrics,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxJSONBody(1 << 20))
	r.Use(s.logRequests)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Post("/v1/parse", s.handleParse)
		r.Get("/v1/events", s.handleListEvents)
		r.Delete("/v1/events/{id}", s.handleDeleteEvent)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
