package model

// ScoreWeights are the evidence weights applied per domain during scoring.
type ScoreWeights struct {
	Primary    float64 `json:"primary" yaml:"primary"`
	Secondary  float64 `json:"secondary" yaml:"secondary"`
	Complexity float64 `json:"complexity" yaml:"complexity"`
	Priority   float64 `json:"priority" yaml:"priority"`
}

// DomainRule is the per-domain classification configuration. Priority is
// the registration order and is the deterministic tie-break key: lower
// values win ties.
type DomainRule struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    int          `json:"priority" yaml:"priority"`
	Primary     []string     `json:"primary" yaml:"primary"`
	Secondary   []string     `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Weights     ScoreWeights `json:"weights" yaml:"weights"`
}

// Thresholds are the router's confidence cut points. At or above High the
// task is auto-assigned; at or above Medium it is held; below Medium it
// goes to manual review.
type Thresholds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// RoutingConfig is the classification and routing configuration loaded at
// startup. ComplexityIndicators and PriorityIndicators are shared across
// domains; keyword sets and weights are per domain.
type RoutingConfig struct {
	Domains              []DomainRule `json:"domains" yaml:"domains"`
	Thresholds           Thresholds   `json:"thresholds" yaml:"thresholds"`
	ComplexityIndicators []string     `json:"complexity_indicators,omitempty" yaml:"complexity_indicators,omitempty"`
	PriorityIndicators   []string     `json:"priority_indicators,omitempty" yaml:"priority_indicators,omitempty"`
}

// Domain returns the rule for the given domain id, or false when the id is
// not registered.
func (c RoutingConfig) Domain(id string) (DomainRule, bool) {
	for _, d := range c.Domains {
		if d.ID == id {
			return d, true
		}
	}
	return DomainRule{}, false
}

// KnowledgeDomains converts the registry rules to their store representation.
func (c RoutingConfig) KnowledgeDomains() []KnowledgeDomain {
	domains := make([]KnowledgeDomain, 0, len(c.Domains))
	for _, d := range c.Domains {
		domains = append(domains, KnowledgeDomain{ID: d.ID, Name: d.Name, Description: d.Description})
	}
	return domains
}
