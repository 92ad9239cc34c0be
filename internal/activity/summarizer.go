package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/tinkerloft/triage/internal/consolidate"
)

// Summarizer condenses a group's raw activity into knowledge unit text.
// Implementations report ok=false when the raw rendering should be kept.
type Summarizer interface {
	SummarizeGroup(ctx context.Context, g consolidate.Group) (summary string, ok bool)
}

// ClaudeSummarizer summarizes group content with the Anthropic API. It is
// strictly best-effort: any API failure is logged and the raw content is
// kept, so a missing key or an outage never blocks a consolidation batch.
type ClaudeSummarizer struct {
	client anthropic.Client
}

// NewClaudeSummarizer creates a summarizer using ambient API credentials.
func NewClaudeSummarizer() *ClaudeSummarizer {
	return &ClaudeSummarizer{client: anthropic.NewClient()}
}

const summarizePromptFmt = `Condense the following operational activity log for task %q in the %q domain into a short knowledge base entry. Keep concrete commands, systems, and outcomes. Respond with the entry text only.

%s`

// SummarizeGroup asks Claude for a condensed knowledge entry.
func (cs *ClaudeSummarizer) SummarizeGroup(ctx context.Context, g consolidate.Group) (string, bool) {
	prompt := fmt.Sprintf(summarizePromptFmt, g.TaskID, g.DomainID, g.Content)

	msg, err := cs.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaudeHaiku4_5,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					{OfText: &anthropic.TextBlockParam{Text: prompt}},
				},
			},
		},
	})
	if err != nil {
		slog.WarnContext(ctx, "summarizer: Claude API call failed, keeping raw content",
			"domain_id", g.DomainID, "task_id", g.TaskID, "err", err)
		return "", false
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", false
	}
	return summary, true
}
