package consolidate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tinkerloft/triage/internal/model"
)

// Group is the consolidated view of one (domain, task) pair within a
// window. Content is the rendered knowledge text; a summarizer may replace
// it before commit, but Fingerprint is always derived from the raw entries.
type Group struct {
	DomainID    string
	TaskID      string
	Entries     []model.ActivityLogEntry
	Fingerprint string
	Content     string
}

// Reinforced reports whether this pattern recurred within the window.
func (g Group) Reinforced() bool {
	return len(g.Entries) > 1
}

// GroupEntries buckets activity entries by (domain_id, task_id), computes
// each bucket's fingerprint, and renders its content. Groups are returned
// sorted by domain then task so runs are deterministic.
func GroupEntries(entries []model.ActivityLogEntry) []Group {
	buckets := make(map[string]*Group)
	var keys []string
	for _, e := range entries {
		key := e.DomainID + "\x00" + e.TaskID
		g, ok := buckets[key]
		if !ok {
			g = &Group{DomainID: e.DomainID, TaskID: e.TaskID}
			buckets[key] = g
			keys = append(keys, key)
		}
		g.Entries = append(g.Entries, e)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		g := buckets[key]
		sort.Slice(g.Entries, func(i, j int) bool {
			return g.Entries[i].CreatedAt.Before(g.Entries[j].CreatedAt)
		})
		g.Fingerprint = Fingerprint(g.Entries)
		g.Content = RenderContent(g.Entries)
		groups = append(groups, *g)
	}
	return groups
}

// RenderContent renders a group's entries as knowledge unit text, one
// dated line per distinct action/result pair.
func RenderContent(entries []model.ActivityLogEntry) string {
	var b strings.Builder
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("- [%s] %s: %s", e.CreatedAt.UTC().Format("2006-01-02"), e.ActionText, e.ResultText)
		if seen[line] {
			continue
		}
		seen[line] = true
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}

// AppendUpdate appends new content to an existing unit's content as a
// dated update section. The approval that covered the previous content no
// longer applies, which is why the caller re-flags the unit.
func AppendUpdate(existing, update string, at time.Time) string {
	return existing + "\n\n## Update " + at.UTC().Format("2006-01-02") + "\n" + update
}

// CountReinforced counts groups whose pattern recurred within the window.
// Diagnostic only: reinforcement never changes unit state.
func CountReinforced(groups []Group) int {
	n := 0
	for _, g := range groups {
		if g.Reinforced() {
			n++
		}
	}
	return n
}
