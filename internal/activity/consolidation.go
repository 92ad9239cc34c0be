package activity

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/tinkerloft/triage/internal/consolidate"
	"github.com/tinkerloft/triage/internal/knowledge"
	"github.com/tinkerloft/triage/internal/metrics"
	"github.com/tinkerloft/triage/internal/model"
)

// ConsolidationActivities contains the activities behind the Consolidate
// workflow. Summarizer and Metrics are optional.
type ConsolidationActivities struct {
	Store      *knowledge.Store
	Summarizer Summarizer
	Metrics    *metrics.Metrics
}

// NewConsolidationActivities creates a ConsolidationActivities instance.
func NewConsolidationActivities(store *knowledge.Store) *ConsolidationActivities {
	return &ConsolidationActivities{Store: store}
}

// Window is a resolved half-open consolidation window [Since, Until).
type Window struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// ResolveWindowInput carries the caller's optional cutoffs.
type ResolveWindowInput struct {
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

// ResolveWindow fills in window defaults: since falls back to the until
// cutoff of the last successful run (or the zero time when no run has
// succeeded yet), until falls back to now.
func (ca *ConsolidationActivities) ResolveWindow(ctx context.Context, input ResolveWindowInput) (Window, error) {
	var w Window
	if input.Until != nil {
		w.Until = input.Until.UTC()
	} else {
		w.Until = time.Now().UTC()
	}

	if input.Since != nil {
		w.Since = input.Since.UTC()
		return w, nil
	}

	cutoff, err := ca.Store.LastSuccessfulCutoff(ctx)
	switch {
	case err == nil:
		w.Since = cutoff
	case err == model.ErrNotFound:
		w.Since = time.Time{}
	default:
		return Window{}, err
	}
	return w, nil
}

// RunConsolidation executes one consolidation batch: select the window's
// activity entries, group and fingerprint them, optionally summarize each
// group's content, and commit every write in a single transaction. The
// run is recorded in the ledger either way.
//
// Cancellation is cooperative and checked before the commit, never during
// it: a cancelled run leaves nothing behind and is safe to repeat.
func (ca *ConsolidationActivities) RunConsolidation(ctx context.Context, w Window) (model.Summary, error) {
	logger := activity.GetLogger(ctx)

	runID, err := ca.Store.BeginRun(ctx, w.Since, w.Until, time.Now().UTC())
	if err != nil {
		return model.Summary{}, err
	}

	summary, err := ca.consolidate(ctx, w)
	status := model.RunStatusSucceeded
	if err != nil {
		status = model.RunStatusFailed
	}
	if ferr := ca.Store.FinishRun(ctx, runID, status, summary, time.Now().UTC()); ferr != nil {
		logger.Warn("failed to record run outcome", "run_id", runID, "error", ferr)
	}
	if err != nil {
		return model.Summary{}, err
	}

	if ca.Metrics != nil {
		ca.Metrics.UnitsCreatedTotal.Add(float64(summary.UnitsCreated))
		ca.Metrics.UnitsUpdatedTotal.Add(float64(summary.UnitsUpdated))
	}
	logger.Info("consolidation run finished",
		"entries", summary.EntriesProcessed,
		"created", summary.UnitsCreated,
		"updated", summary.UnitsUpdated,
		"reinforced", summary.ReinforcedSignals)
	return summary, nil
}

func (ca *ConsolidationActivities) consolidate(ctx context.Context, w Window) (model.Summary, error) {
	entries, err := ca.Store.SelectEntries(ctx, w.Since, w.Until)
	if err != nil {
		return model.Summary{}, err
	}
	if len(entries) == 0 {
		return model.Summary{}, nil
	}
	heartbeat(ctx, "entries selected")

	groups := consolidate.GroupEntries(entries)
	heartbeat(ctx, "entries grouped")

	// Summarization happens before the transaction and never touches the
	// fingerprint, so an enriched and a raw run dedup identically.
	if ca.Summarizer != nil {
		for i := range groups {
			if summary, ok := ca.Summarizer.SummarizeGroup(ctx, groups[i]); ok {
				groups[i].Content = summary
			}
			heartbeat(ctx, groups[i].DomainID+"/"+groups[i].TaskID)
		}
	}

	if err := ctx.Err(); err != nil {
		return model.Summary{}, err
	}
	return ca.Store.ApplyGroups(ctx, groups, time.Now().UTC())
}

// heartbeat reports liveness between batch steps. Temporal delivers a
// pending cancellation to the activity in the heartbeat response, so the
// ctx.Err() check before the commit only fires if these are sent.
func heartbeat(ctx context.Context, detail string) {
	if activity.IsActivity(ctx) {
		activity.RecordHeartbeat(ctx, detail)
	}
}
