// Package workflow contains the Temporal workflow driving consolidation.
package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/tinkerloft/triage/internal/activity"
	"github.com/tinkerloft/triage/internal/model"
)

// Query names exposed by the Consolidate workflow.
const (
	QueryStatus  = "status"
	QuerySummary = "summary"
)

// ConsolidateInput is the workflow input. Nil cutoffs mean "use defaults":
// since the last successful run, until now.
type ConsolidateInput struct {
	Since         *time.Time `json:"since,omitempty"`
	Until         *time.Time `json:"until,omitempty"`
	NotifyChannel string     `json:"notify_channel,omitempty"`
}

// Consolidate runs one consolidation batch: resolve the window, apply it
// atomically, then post the digest. Mutual exclusion across runs comes
// from the fixed workflow ID the client starts this workflow under, so
// the workflow body itself needs no locking.
func Consolidate(ctx workflow.Context, input ConsolidateInput) (*model.Summary, error) {
	logger := workflow.GetLogger(ctx)

	status := model.RunStatusRunning
	var summary *model.Summary
	_ = workflow.SetQueryHandler(ctx, QueryStatus, func() (model.RunStatus, error) { return status, nil })
	_ = workflow.SetQueryHandler(ctx, QuerySummary, func() (*model.Summary, error) { return summary, nil })

	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		MaximumInterval:    time.Minute,
		BackoffCoefficient: 2.0,
		MaximumAttempts:    3,
	}

	shortCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         retryPolicy,
	})
	// The batch activity heartbeats between steps; cancellation only
	// reaches a running activity through heartbeat responses.
	batchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         retryPolicy,
	})

	var window activity.Window
	err := workflow.ExecuteActivity(shortCtx, activity.ActivityResolveWindow, activity.ResolveWindowInput{
		Since: input.Since,
		Until: input.Until,
	}).Get(ctx, &window)
	if err != nil {
		status = model.RunStatusFailed
		return nil, err
	}
	logger.Info("consolidation window resolved", "since", window.Since, "until", window.Until)

	var result model.Summary
	err = workflow.ExecuteActivity(batchCtx, activity.ActivityRunConsolidation, window).Get(ctx, &result)
	if err != nil {
		status = model.RunStatusFailed
		if temporal.IsCanceledError(err) || errors.Is(ctx.Err(), workflow.ErrCanceled) {
			logger.Info("consolidation cancelled before commit")
		}
		return nil, err
	}
	summary = &result
	status = model.RunStatusSucceeded

	if input.NotifyChannel != "" {
		notifyErr := workflow.ExecuteActivity(shortCtx, activity.ActivityNotifyDigest, activity.NotifyDigestInput{
			Channel: input.NotifyChannel,
			Window:  window,
			Summary: result,
		}).Get(ctx, nil)
		if notifyErr != nil {
			// The batch is already committed; a failed notification is not
			// a failed run.
			logger.Warn("digest notification failed", "error", notifyErr)
		}
	}

	return summary, nil
}
