// Package api serves the controller over HTTP as a JSON API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stellarlinkco/mytodo/internal/app"
	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/metrics"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies, including import documents.
const maxBodyBytes = 5 << 20

// PendingLister lists queued alerts; notify.Scheduler implements it.
type PendingLister interface {
	Pending() []notify.Alert
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

func WithPending(p PendingLister) Option {
	return func(s *Server) { s.pending = p }
}

// WithAllowedOrigins enables CORS for browser clients served elsewhere.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

type Server struct {
	ctrl    *app.Controller
	pending PendingLister
	metrics *metrics.Collector
	logger  *zap.Logger
	origins []string
}

func NewServer(ctrl *app.Controller, opts ...Option) *Server {
	s := &Server{ctrl: ctrl, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the API routes. Callers may mount more handlers on it.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Post("/", s.createTask)
			r.Get("/{id}", s.getTask)
			r.Put("/{id}", s.updateTask)
			r.Delete("/{id}", s.deleteTask)
			r.Post("/{id}/toggle", s.toggleTask)
		})
		r.Get("/progress", s.progress)
		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", s.listReminders)
			r.Post("/", s.createReminder)
			r.Delete("/{id}", s.deleteReminder)
		})
		r.Get("/suggestions", s.suggestions)
		r.Get("/view", s.view)
		r.Get("/alerts", s.pendingAlerts)
		r.Get("/export", s.export)
		r.Post("/import", s.importDocument)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrImport):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error(), Kind: apperr.Kind(err)})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
