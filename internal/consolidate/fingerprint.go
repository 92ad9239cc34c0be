// Package consolidate implements the pure parts of the consolidation job:
// grouping activity log entries, fingerprinting their content, and
// rendering knowledge unit text. Persistence lives in internal/knowledge.
package consolidate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/tinkerloft/triage/internal/model"
)

// Fingerprint derives a stable content key for a set of activity entries.
// Entry texts are normalized, deduplicated, and sorted before hashing, so
// the result does not depend on entry order or on how often the same
// evidence repeats within a window. Matching domain+task+fingerprint means
// the content is already consolidated.
func Fingerprint(entries []model.ActivityLogEntry) string {
	seen := make(map[string]bool, len(entries))
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		t := normalize(e.ActionText + "\n" + e.ResultText)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		texts = append(texts, t)
	}
	sort.Strings(texts)

	h := sha256.New()
	for _, t := range texts {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// normalize lowercases text and collapses all whitespace runs to single
// spaces so cosmetic differences do not change the fingerprint.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
