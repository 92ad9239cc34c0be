// Package server provides the HTTP API for classification, consolidation,
// and the approval queue.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinkerloft/triage/internal/metrics"
	"github.com/tinkerloft/triage/internal/model"
)

// KnowledgeStore is the storage surface the server needs. *knowledge.Store
// satisfies this interface.
type KnowledgeStore interface {
	AppendEntry(ctx context.Context, entry model.ActivityLogEntry) (model.ActivityLogEntry, error)
	ListFlagged(ctx context.Context, domainID string) ([]model.KnowledgeUnit, error)
	GetUnit(ctx context.Context, id string) (model.KnowledgeUnit, error)
	Decide(ctx context.Context, unitID string, decision model.Decision, now time.Time) error
	Digest(ctx context.Context, date time.Time) (model.Digest, error)
	ListDomains(ctx context.Context) ([]model.KnowledgeDomain, error)
}

// ConsolidationClient starts and inspects consolidation runs. The Temporal
// client wrapper satisfies this interface.
type ConsolidationClient interface {
	StartConsolidation(ctx context.Context, since, until *time.Time) (workflowID, runID string, err error)
	ConsolidationStatus(ctx context.Context, workflowID string) (model.RunStatus, error)
	CancelConsolidation(ctx context.Context, workflowID string) error
}

// Server is the HTTP API server.
type Server struct {
	router         chi.Router
	store          KnowledgeStore
	consolidations ConsolidationClient
	cfg            model.RoutingConfig
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
}

// New creates a new Server. registry may be nil (disables /metrics).
func New(store KnowledgeStore, consolidations ConsolidationClient, cfg model.RoutingConfig, m *metrics.Metrics, registry *prometheus.Registry) *Server {
	s := &Server{
		store:          store,
		consolidations: consolidations,
		cfg:            cfg,
		metrics:        m,
		registry:       registry,
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/domains", s.handleListDomains)

	r.Post("/api/v1/classify", s.handleClassify)
	r.Post("/api/v1/activity", s.handleAppendActivity)

	r.Post("/api/v1/consolidate", s.handleStartConsolidation)
	r.Get("/api/v1/consolidate/{workflow_id}", s.handleConsolidationStatus)
	r.Post("/api/v1/consolidate/{workflow_id}/cancel", s.handleCancelConsolidation)

	r.Get("/api/v1/approvals", s.handleListApprovals)
	r.Post("/api/v1/approvals/{unit_id}/decide", s.handleDecide)

	r.Get("/api/v1/digest", s.handleDigest)

	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.store.ListDomains(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps the error taxonomy to HTTP status codes: invalid input is
// the caller's fault, conflicts and busy runs are retry-after-refetch, and
// transient store failures are retry-later.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case model.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case model.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
