package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tinkerloft/triage/internal/model"
)

// ConsolidateRequest carries optional window cutoffs. Omitted cutoffs
// default to "since the last successful run" and "now".
type ConsolidateRequest struct {
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

func (s *Server) handleStartConsolidation(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Since != nil && req.Until != nil && !req.Since.Before(*req.Until) {
		writeErr(w, &model.ValidationError{Field: "since", Reason: "must be before until"})
		return
	}

	workflowID, runID, err := s.consolidations.StartConsolidation(r.Context(), req.Since, req.Until)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"workflow_id": workflowID,
		"run_id":      runID,
	})
}

func (s *Server) handleConsolidationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflow_id")
	status, err := s.consolidations.ConsolidationStatus(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflow_id": id, "status": status})
}

func (s *Server) handleCancelConsolidation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflow_id")
	if err := s.consolidations.CancelConsolidation(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			writeErr(w, &model.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	digest, err := s.store.Digest(r.Context(), date)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, digest)
}
