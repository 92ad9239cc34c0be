package activity

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/slack-go/slack"
	"go.temporal.io/sdk/activity"

	"github.com/tinkerloft/triage/internal/model"
)

// NotifyActivities posts consolidation digests to Slack for the human
// review loop.
type NotifyActivities struct {
	client *slack.Client
}

// NewNotifyActivities creates a NotifyActivities using SLACK_BOT_TOKEN.
// With no token configured the notify activity becomes a logged no-op.
func NewNotifyActivities() *NotifyActivities {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return &NotifyActivities{}
	}
	return &NotifyActivities{client: slack.New(token)}
}

// NotifyDigestInput is the input for the NotifyDigest activity.
type NotifyDigestInput struct {
	Channel string        `json:"channel"`
	Window  Window        `json:"window"`
	Summary model.Summary `json:"summary"`
}

// NotifyDigest posts a consolidation summary to the review channel.
func (na *NotifyActivities) NotifyDigest(ctx context.Context, input NotifyDigestInput) error {
	logger := activity.GetLogger(ctx)
	if na.client == nil || input.Channel == "" {
		logger.Info("slack not configured, skipping digest notification")
		return nil
	}

	text := fmt.Sprintf(
		"Consolidation run for %s — %s\nEntries processed: %d\nUnits created: %d, updated: %d\nReinforced signals: %d\nDomains touched: %s",
		input.Window.Since.Format("2006-01-02 15:04"),
		input.Window.Until.Format("2006-01-02 15:04"),
		input.Summary.EntriesProcessed,
		input.Summary.UnitsCreated,
		input.Summary.UnitsUpdated,
		input.Summary.ReinforcedSignals,
		strings.Join(input.Summary.DomainsTouched, ", "))

	_, _, err := na.client.PostMessageContext(ctx, input.Channel,
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting digest to slack: %w", err)
	}
	return nil
}
