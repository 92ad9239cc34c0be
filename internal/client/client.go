// Package client provides Temporal client utilities for starting and
// inspecting consolidation runs.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/tinkerloft/triage/internal/model"
	"github.com/tinkerloft/triage/internal/workflow"
)

// TaskQueue is the task queue for consolidation workflows.
const TaskQueue = "triage-consolidation"

// ConsolidationWorkflowID is the fixed workflow ID every consolidation run
// starts under. Temporal rejects a second start while one execution is
// running, which is the single-flight guard: a concurrent run request
// surfaces as model.ErrBusy, never as a queued duplicate.
const ConsolidationWorkflowID = "consolidation"

// ScheduleID is the id of the nightly consolidation schedule.
const ScheduleID = "consolidation-nightly"

// Client wraps the Temporal client to reduce connection churn.
type Client struct {
	temporal client.Client
}

// New creates a Temporal client wrapper using TEMPORAL_ADDRESS.
func New() (*Client, error) {
	addr := os.Getenv("TEMPORAL_ADDRESS")
	if addr == "" {
		addr = "localhost:7233"
	}
	c, err := client.Dial(client.Options{HostPort: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	return &Client{temporal: c}, nil
}

// NewFromTemporal wraps an existing Temporal client (used in tests).
func NewFromTemporal(c client.Client) *Client {
	return &Client{temporal: c}
}

// Close closes the underlying Temporal client connection.
func (c *Client) Close() {
	c.temporal.Close()
}

// StartConsolidation starts a consolidation workflow for the given window.
// Nil cutoffs default inside the workflow. Returns model.ErrBusy when a
// run is already in flight.
func (c *Client) StartConsolidation(ctx context.Context, since, until *time.Time) (workflowID, runID string, err error) {
	options := client.StartWorkflowOptions{
		ID:                       ConsolidationWorkflowID,
		TaskQueue:                TaskQueue,
		WorkflowExecutionTimeout: time.Hour,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
	}

	input := workflow.ConsolidateInput{
		Since:         since,
		Until:         until,
		NotifyChannel: os.Getenv("TRIAGE_SLACK_CHANNEL"),
	}

	we, err := c.temporal.ExecuteWorkflow(ctx, options, workflow.Consolidate, input)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return "", "", model.ErrBusy
		}
		return "", "", fmt.Errorf("failed to start consolidation: %w", err)
	}
	return we.GetID(), we.GetRunID(), nil
}

// ConsolidationStatus queries a consolidation run's status. An unknown
// workflow id is model.ErrNotFound; an unreachable Temporal server is a
// retryable TransientStoreError.
func (c *Client) ConsolidationStatus(ctx context.Context, workflowID string) (model.RunStatus, error) {
	resp, err := c.temporal.QueryWorkflow(ctx, workflowID, "", workflow.QueryStatus)
	if err != nil {
		return "", mapTemporalErr("consolidation status", err)
	}
	var status model.RunStatus
	if err := resp.Get(&status); err != nil {
		return "", fmt.Errorf("failed to decode status: %w", err)
	}
	return status, nil
}

// ConsolidationResult blocks until the workflow completes and returns its
// summary.
func (c *Client) ConsolidationResult(ctx context.Context, workflowID string) (*model.Summary, error) {
	run := c.temporal.GetWorkflow(ctx, workflowID, "")
	var summary model.Summary
	if err := run.Get(ctx, &summary); err != nil {
		return nil, fmt.Errorf("consolidation failed: %w", err)
	}
	return &summary, nil
}

// CancelConsolidation requests cooperative cancellation of a running
// consolidation. The batch aborts before commit; nothing partial persists.
func (c *Client) CancelConsolidation(ctx context.Context, workflowID string) error {
	if err := c.temporal.CancelWorkflow(ctx, workflowID, ""); err != nil {
		return mapTemporalErr("cancel consolidation", err)
	}
	return nil
}

// mapTemporalErr folds Temporal service errors into the error taxonomy:
// a missing workflow is not-found, connectivity failures are retryable,
// anything else passes through wrapped.
func mapTemporalErr(op string, err error) error {
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return model.ErrNotFound
	}
	var unavailable *serviceerror.Unavailable
	if errors.As(err, &unavailable) {
		return &model.TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateNightlySchedule creates the nightly consolidation schedule. cron
// defaults to 03:00 UTC. Overlapping scheduled runs are skipped, matching
// the single-flight contract of on-demand runs.
func (c *Client) CreateNightlySchedule(ctx context.Context, cron string) error {
	if cron == "" {
		cron = "0 3 * * *"
	}
	_, err := c.temporal.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: ScheduleID,
		Spec: client.ScheduleSpec{
			CronExpressions: []string{cron},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        ConsolidationWorkflowID,
			Workflow:  workflow.Consolidate,
			TaskQueue: TaskQueue,
			Args: []any{workflow.ConsolidateInput{
				NotifyChannel: os.Getenv("TRIAGE_SLACK_CHANNEL"),
			}},
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}
