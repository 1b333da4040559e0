// Package httpapi exposes syllabus extraction, schedule generation and plan
// storage over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

const (
	defaultMaxUpload = 10 << 20
	readyTimeout     = 2 * time.Second
)

// Extractor turns an uploaded document into topics.
type Extractor interface {
	Extract(ctx context.Context, doc syllabus.Document, r syllabus.UnitRange) ([]curriculum.Topic, error)
}

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the server's collaborators.
type Config struct {
	Extractor      Extractor
	Generator      *planner.Generator
	Store          plan.Store
	Events         plan.EventLogger         // default NopEventLogger
	Checks         map[string]HealthChecker // probed by /readyz
	MaxUploadBytes int64                    // default 10 MiB
	Registry       *prometheus.Registry     // default a fresh registry
	Now            func() time.Time         // default time.Now
}

// Server is the HTTP handler for the planner API.
type Server struct {
	extractor Extractor
	generator *planner.Generator
	store     plan.Store
	events    plan.EventLogger
	checks    map[string]HealthChecker
	maxUpload int64
	now       func() time.Time

	schemas *schemas
	metrics *metrics
	mux     *http.ServeMux
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Extractor == nil || cfg.Generator == nil || cfg.Store == nil {
		return nil, fmt.Errorf("extractor, generator and store are required")
	}

	sc, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		extractor: cfg.Extractor,
		generator: cfg.Generator,
		store:     cfg.Store,
		events:    cfg.Events,
		checks:    cfg.Checks,
		maxUpload: cfg.MaxUploadBytes,
		now:       cfg.Now,
		schemas:   sc,
		metrics:   m,
		mux:       http.NewServeMux(),
	}
	if s.events == nil {
		s.events = plan.NopEventLogger{}
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.mux.HandleFunc("GET /healthz", handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.handle("POST /v1/syllabus/extract", s.handleExtract)
	s.handle("POST /v1/schedule/preview", s.handlePreview)
	s.handle("POST /v1/plans", s.handleCreatePlan)
	s.handle("GET /v1/plans/{id}", s.handleGetPlan)
	s.handle("GET /v1/plans/{id}/export.xlsx", s.handleExportPlan)
	s.handle("GET /v1/users/{user}/plans", s.handleListPlans)
	s.handle("GET /v1/users/{user}/today", s.handleToday)
	s.handle("PATCH /v1/tasks/{id}", s.handleToggleTask)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.metrics.instrument(pattern, h))
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  name + " unreachable",
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// logEvent records an analytics event. Failures never fail the request.
func (s *Server) logEvent(e plan.Event) {
	if err := s.events.LogEvent(e); err != nil {
		slog.Warn("failed to log event", "type", e.EventType, "error", err)
	}
}

// errValidation marks request errors that map to 400.
var errValidation = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

func errorStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, syllabus.ErrDocumentParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errValidation), errors.Is(err, curriculum.ErrUnknownDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, plan.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
