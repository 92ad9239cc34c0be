package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tinkerloft/triage/internal/model"
)

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	domainID := r.URL.Query().Get("domain")
	if domainID != "" {
		if _, ok := s.cfg.Domain(domainID); !ok {
			writeErr(w, &model.ValidationError{Field: "domain", Reason: "unknown domain"})
			return
		}
	}

	units, err := s.store.ListFlagged(r.Context(), domainID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if units == nil {
		units = []model.KnowledgeUnit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": units})
}

// DecideRequest is the input for POST /api/v1/approvals/{unit_id}/decide.
type DecideRequest struct {
	Decision model.Decision `json:"decision"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unit_id")

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Decision.Valid() {
		writeErr(w, &model.ValidationError{Field: "decision", Reason: "must be approved or rejected"})
		return
	}

	if err := s.store.Decide(r.Context(), unitID, req.Decision, time.Now().UTC()); err != nil {
		writeErr(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(string(req.Decision)).Inc()
	}

	unit, err := s.store.GetUnit(r.Context(), unitID)
	if err != nil {
		// The decision landed; return a minimal acknowledgement.
		writeJSON(w, http.StatusOK, map[string]string{"unit_id": unitID, "decision": string(req.Decision)})
		return
	}
	writeJSON(w, http.StatusOK, unit)
}
