// Package model defines the shared data model for the triage system.
package model

import "time"

// Task is the ephemeral scoring input. It is created by the caller and
// never persisted by the core.
type Task struct {
	ID      string            `json:"id"`
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

// DomainScore is one domain's score for a single classification call.
type DomainScore struct {
	DomainID        string  `json:"domain_id"`
	RawScore        float64 `json:"raw_score"`
	NormalizedScore float64 `json:"normalized_score"`
}

// DispositionAction is the router's decision for a scored task.
type DispositionAction string

const (
	// ActionAutoAssign routes the task directly to the recommended domain.
	ActionAutoAssign DispositionAction = "auto_assign"
	// ActionHold parks the task for secondary scoring or manual confirmation.
	ActionHold DispositionAction = "hold"
	// ActionManualReview sends the task to a human for triage.
	ActionManualReview DispositionAction = "manual_review"
)

// Disposition is the router's output: where the task should go and how.
type Disposition struct {
	DomainID string            `json:"domain_id"`
	Action   DispositionAction `json:"action"`
}

// ActivityLogEntry is one completed action recorded by an external domain
// handler. Entries are append-only and never mutated after write.
type ActivityLogEntry struct {
	ID         string    `json:"id"`
	DomainID   string    `json:"domain_id"`
	TaskID     string    `json:"task_id"`
	ActionText string    `json:"action_text"`
	ResultText string    `json:"result_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// KnowledgeDomain is a registered specialist domain. The registry is seeded
// once at startup and referenced by id everywhere else.
type KnowledgeDomain struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// KnowledgeUnit is a versioned consolidated artifact scoped to one domain
// and task. Exactly one unit exists per (domain_id, task_id, fingerprint).
type KnowledgeUnit struct {
	ID          string    `json:"id"`
	DomainID    string    `json:"domain_id"`
	TaskID      string    `json:"task_id"`
	Content     string    `json:"content"`
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	Flagged     bool      `json:"flagged"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Decision is a reviewer's verdict on a flagged knowledge unit.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is one of the accepted decision values.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// ApprovalDecision records one unit transition out of the flagged state.
type ApprovalDecision struct {
	UnitID    string    `json:"unit_id"`
	Decision  Decision  `json:"decision"`
	DecidedAt time.Time `json:"decided_at"`
}

// Summary is the result of one consolidation run.
type Summary struct {
	EntriesProcessed  int      `json:"entries_processed"`
	UnitsCreated      int      `json:"units_created"`
	UnitsUpdated      int      `json:"units_updated"`
	DomainsTouched    []string `json:"domains_touched"`
	ReinforcedSignals int      `json:"reinforced_signals"`
}

// RunStatus is the lifecycle state of a recorded consolidation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ConsolidationRun is one row of the run ledger. The newest succeeded run
// provides the default cutoff for the next run.
type ConsolidationRun struct {
	ID         string    `json:"id"`
	Since      time.Time `json:"since"`
	Until      time.Time `json:"until"`
	Status     RunStatus `json:"status"`
	Summary    Summary   `json:"summary"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Digest summarizes one day of consolidation output for review.
type Digest struct {
	Date                string `json:"date"`
	DomainsTouched      int    `json:"domains_touched"`
	UnitsCreated        int    `json:"units_created"`
	UnitsFlaggedPending int    `json:"units_flagged_pending"`
}
