// Package api exposes the reservation service over HTTP. Every route
// speaks JSON, authenticates through the Api-Key header and appends the
// domain events raised while handling a request to its response body.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	"github.com/marfateam/rcalendar/pkg/observability"
)

// Server is the HTTP server for the reservation API.
type Server struct {
	router  chi.Router
	server  *http.Server
	logger  *slog.Logger
	apiKeys dirdomain.APIKeyRepository
	health  *observability.HealthRegistry
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "0.0.0.0:8080",
		AllowedOrigins: []string{"*"},
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
	}
}

// NewServer creates a new API server.
func NewServer(
	cfg ServerConfig,
	directory *DirectoryHandler,
	calendar *CalendarHandler,
	apiKeys dirdomain.APIKeyRepository,
	health *observability.HealthRegistry,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	s := &Server{
		logger:  logger,
		apiKeys: apiKeys,
		health:  health,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Api-Key"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(traceContext)
	r.Use(requestLogger(logger))
	r.Use(recordMetrics(metrics))
	r.Use(chimiddleware.Recoverer)

	// Probes stay outside authentication so orchestrators can reach
	// them without a key.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(bindEventSink(metrics))

		r.Route("/organization", func(r chi.Router) {
			r.Post("/", directory.CreateOrganization)
			r.Get("/{id}/", directory.GetOrganization)
			r.Delete("/{id}/", directory.DeleteOrganization)
			r.Get("/{id}/intervals/", calendar.OrganizationIntervals)
		})

		r.Route("/manager", func(r chi.Router) {
			r.Post("/", directory.CreateManager)
			r.Post("/add_many/", directory.AddManagers)
			r.Delete("/{id}/", directory.DeleteManager)
		})

		r.Route("/resource", func(r chi.Router) {
			r.Post("/", directory.CreateResource)
			r.Post("/add_many/", directory.AddResources)
			r.Delete("/{id}/", directory.DeleteResource)
			r.Get("/{id}/intervals/", calendar.ResourceIntervals)
			r.Get("/{id}/membership/", calendar.GetMembership)
			r.Put("/{id}/membership/", calendar.JoinMembership)
			r.Delete("/{id}/membership/", calendar.DismissMembership)
			r.Post("/{id}/apply_schedule/", calendar.ApplySchedule)
			r.Post("/{id}/clear_unavailable_interval/", calendar.ClearUnavailable)
		})

		r.Route("/interval", func(r chi.Router) {
			r.Post("/", calendar.CreateInterval)
			r.Delete("/delete_many/", calendar.DeleteMany)
			r.Patch("/{id}/", calendar.UpdateInterval)
			r.Delete("/{id}/", calendar.DeleteInterval)
		})
	})

	s.router = r
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealthz reports process liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReadyz runs the registered dependency checks. Unhealthy means
// the service cannot serve traffic; degraded still answers 200 because
// the core flows only need PostgreSQL.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	health := s.health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response. A nil payload sends the status line
// alone.
func writeJSON(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but can't do much at this point
		slog.Error("failed to encode JSON response", "error", err)
	}
}
