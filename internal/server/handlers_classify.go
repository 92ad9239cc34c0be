package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tinkerloft/triage/internal/model"
	"github.com/tinkerloft/triage/internal/routing"
)

// ClassifyRequest is the input for POST /api/v1/classify.
type ClassifyRequest struct {
	TaskID  string            `json:"task_id"`
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

// ClassifyResponse is the scored result with the router's disposition.
type ClassifyResponse struct {
	Scores            []scoreOut        `json:"scores"`
	RecommendedDomain string            `json:"recommended_domain"`
	Confidence        float64           `json:"confidence"`
	Disposition       model.Disposition `json:"disposition"`
}

type scoreOut struct {
	DomainID        string  `json:"domain_id"`
	NormalizedScore float64 `json:"normalized_score"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TaskID == "" {
		writeErr(w, &model.ValidationError{Field: "task_id", Reason: "is required"})
		return
	}

	start := time.Now()
	result, err := routing.Classify(model.Task{ID: req.TaskID, Text: req.Text, Context: req.Context}, s.cfg)
	if err != nil {
		writeErr(w, err)
		return
	}
	disposition := routing.Route(result.Scores, result.Confidence, s.cfg.Thresholds)

	if s.metrics != nil {
		s.metrics.ClassifyDuration.Observe(time.Since(start).Seconds())
		s.metrics.ClassifyTotal.WithLabelValues(string(disposition.Action)).Inc()
	}

	scores := make([]scoreOut, 0, len(result.Scores))
	for _, sc := range result.Scores {
		scores = append(scores, scoreOut{DomainID: sc.DomainID, NormalizedScore: sc.NormalizedScore})
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Scores:            scores,
		RecommendedDomain: result.RecommendedDomain,
		Confidence:        result.Confidence,
		Disposition:       disposition,
	})
}

// AppendActivityRequest is the input for POST /api/v1/activity, used by
// domain handlers to record completed actions.
type AppendActivityRequest struct {
	DomainID   string `json:"domain_id"`
	TaskID     string `json:"task_id"`
	ActionText string `json:"action_text"`
	ResultText string `json:"result_text"`
}

func (s *Server) handleAppendActivity(w http.ResponseWriter, r *http.Request) {
	var req AppendActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, ok := s.cfg.Domain(req.DomainID); !ok {
		writeErr(w, &model.ValidationError{Field: "domain_id", Reason: "unknown domain"})
		return
	}

	entry, err := s.store.AppendEntry(r.Context(), model.ActivityLogEntry{
		DomainID:   req.DomainID,
		TaskID:     req.TaskID,
		ActionText: req.ActionText,
		ResultText: req.ResultText,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
