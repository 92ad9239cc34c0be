// Package routing implements feature-based task classification and the
// disposition router. Both are pure and safe for concurrent use.
package routing

import (
	"sort"
	"strings"

	"github.com/tinkerloft/triage/internal/model"
)

// Result is the full output of one classification call.
type Result struct {
	Scores            []model.DomainScore `json:"scores"`
	RecommendedDomain string              `json:"recommended_domain"`
	Confidence        float64             `json:"confidence"`
	SupportingMatches int                 `json:"supporting_matches"`
}

// Score computes per-domain scores for a task. Scores are returned in
// registration order and normalized so they sum to 100; when every raw
// score is zero each domain receives an equal baseline share instead.
//
// An empty task text is valid input and yields the baseline distribution.
func Score(task model.Task, cfg model.RoutingConfig) ([]model.DomainScore, error) {
	if len(cfg.Domains) == 0 {
		return nil, &model.ConfigurationError{Reason: "no domains registered"}
	}

	text := searchText(task)

	complexityHits := countMatches(text, cfg.ComplexityIndicators)
	priorityHits := countMatches(text, cfg.PriorityIndicators)

	scores := make([]model.DomainScore, 0, len(cfg.Domains))
	var total float64
	for _, d := range cfg.Domains {
		raw := float64(countMatches(text, d.Primary))*d.Weights.Primary +
			float64(countMatches(text, d.Secondary))*d.Weights.Secondary +
			float64(complexityHits)*d.Weights.Complexity +
			float64(priorityHits)*d.Weights.Priority
		total += raw
		scores = append(scores, model.DomainScore{DomainID: d.ID, RawScore: raw})
	}

	if total == 0 {
		baseline := 100.0 / float64(len(scores))
		for i := range scores {
			scores[i].NormalizedScore = baseline
		}
		return scores, nil
	}

	for i := range scores {
		scores[i].NormalizedScore = scores[i].RawScore / total * 100
	}
	return scores, nil
}

// Recommend returns the index of the winning score. Ties are broken by
// registration order, never randomly: the earlier domain wins.
func Recommend(scores []model.DomainScore) int {
	best := 0
	for i, s := range scores {
		if s.NormalizedScore > scores[best].NormalizedScore {
			best = i
		}
	}
	return best
}

// Confidence folds the top score, its margin over the runner-up, and the
// count of supporting keyword matches into a single value in [0, 1].
func Confidence(scores []model.DomainScore, supportingMatches int) float64 {
	if len(scores) == 0 {
		return 0
	}

	norms := make([]float64, len(scores))
	for i, s := range scores {
		norms[i] = s.NormalizedScore
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(norms)))

	top := norms[0]
	margin := top
	if len(norms) > 1 {
		margin = top - norms[1]
	}

	support := float64(supportingMatches)
	if support > 5 {
		support = 5
	}

	c := 0.5*top/100 + 0.4*margin/100 + 0.1*support/5
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Classify runs the full scoring pipeline: per-domain scores, the
// recommended domain, and the confidence in that recommendation.
func Classify(task model.Task, cfg model.RoutingConfig) (Result, error) {
	scores, err := Score(task, cfg)
	if err != nil {
		return Result{}, err
	}

	best := Recommend(scores)
	winner := cfg.Domains[best]

	text := searchText(task)
	supporting := countMatches(text, winner.Primary) + countMatches(text, winner.Secondary)

	return Result{
		Scores:            scores,
		RecommendedDomain: winner.ID,
		Confidence:        Confidence(scores, supporting),
		SupportingMatches: supporting,
	}, nil
}

// searchText lowercases the task text and appends context values so that
// structured hints (labels, source system) contribute evidence too.
// Context keys are visited in sorted order to keep the result stable.
func searchText(task model.Task) string {
	var b strings.Builder
	b.WriteString(task.Text)

	keys := make([]string, 0, len(task.Context))
	for k := range task.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(task.Context[k])
	}
	return strings.ToLower(b.String())
}

// countMatches counts keyword occurrences in text. Repeated occurrences
// count repeatedly: a keyword mentioned twice is stronger evidence than
// one mentioned once.
func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		n += strings.Count(text, kw)
	}
	return n
}
