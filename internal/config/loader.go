// Package config loads the routing configuration: the domain registry,
// keyword sets, scoring weights, and router thresholds.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/triage/internal/model"
)

// SupportedVersions lists all schema versions supported by this loader.
var SupportedVersions = []int{1}

// Default weights applied when a domain omits its weights block.
const (
	defaultPrimaryWeight    = 10
	defaultSecondaryWeight  = 5
	defaultComplexityWeight = 2
	defaultPriorityWeight   = 2
)

// Default router thresholds applied when the thresholds block is omitted.
const (
	defaultHighThreshold   = 0.8
	defaultMediumThreshold = 0.5
)

// versionHeader is used to extract just the version from YAML.
type versionHeader struct {
	Version *int `yaml:"version"`
}

// Load parses a routing config from YAML data with schema version
// validation. The document is also validated against the embedded JSON
// Schema before field-level checks run.
func Load(data []byte) (*model.RoutingConfig, error) {
	var header versionHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse routing config: %w", err)
	}
	if header.Version == nil {
		return nil, errors.New("version field is required")
	}

	switch *header.Version {
	case 1:
		return loadV1(data)
	default:
		return nil, fmt.Errorf("unsupported schema version: %d (supported: %v)", *header.Version, SupportedVersions)
	}
}

// LoadFile loads a routing config from a YAML file path.
func LoadFile(path string) (*model.RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Load(data)
}

// configV1 is the internal representation for schema version 1.
type configV1 struct {
	Version              int            `yaml:"version"`
	Thresholds           *thresholdsV1  `yaml:"thresholds,omitempty"`
	ComplexityIndicators []string       `yaml:"complexity_indicators,omitempty"`
	PriorityIndicators   []string       `yaml:"priority_indicators,omitempty"`
	Domains              []domainRuleV1 `yaml:"domains"`
}

type thresholdsV1 struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
}

type domainRuleV1 struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Primary     []string   `yaml:"primary"`
	Secondary   []string   `yaml:"secondary,omitempty"`
	Weights     *weightsV1 `yaml:"weights,omitempty"`
}

type weightsV1 struct {
	Primary    float64 `yaml:"primary"`
	Secondary  float64 `yaml:"secondary"`
	Complexity float64 `yaml:"complexity"`
	Priority   float64 `yaml:"priority"`
}

// loadV1 loads a version 1 routing config from YAML data.
func loadV1(data []byte) (*model.RoutingConfig, error) {
	if errs := validateSchema(data); len(errs) > 0 {
		return nil, fmt.Errorf("routing config schema validation failed: %v", errs)
	}

	var cv1 configV1
	if err := yaml.Unmarshal(data, &cv1); err != nil {
		return nil, fmt.Errorf("failed to parse routing config v1: %w", err)
	}

	if len(cv1.Domains) == 0 {
		return nil, &model.ConfigurationError{Reason: "at least one domain is required"}
	}

	cfg := &model.RoutingConfig{
		Thresholds:           model.Thresholds{High: defaultHighThreshold, Medium: defaultMediumThreshold},
		ComplexityIndicators: cv1.ComplexityIndicators,
		PriorityIndicators:   cv1.PriorityIndicators,
	}
	if cv1.Thresholds != nil {
		cfg.Thresholds = model.Thresholds{High: cv1.Thresholds.High, Medium: cv1.Thresholds.Medium}
	}
	if cfg.Thresholds.Medium > cfg.Thresholds.High {
		return nil, &model.ConfigurationError{Reason: "medium threshold cannot exceed high threshold"}
	}

	seen := make(map[string]bool, len(cv1.Domains))
	for i, d := range cv1.Domains {
		if d.ID == "" {
			return nil, fmt.Errorf("domain %d: id field is required", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("domain %q is defined twice", d.ID)
		}
		seen[d.ID] = true
		if d.Name == "" {
			return nil, fmt.Errorf("domain %q: name field is required", d.ID)
		}
		if len(d.Primary) == 0 {
			return nil, fmt.Errorf("domain %q: at least one primary keyword is required", d.ID)
		}

		weights := model.ScoreWeights{
			Primary:    defaultPrimaryWeight,
			Secondary:  defaultSecondaryWeight,
			Complexity: defaultComplexityWeight,
			Priority:   defaultPriorityWeight,
		}
		if d.Weights != nil {
			weights = model.ScoreWeights{
				Primary:    d.Weights.Primary,
				Secondary:  d.Weights.Secondary,
				Complexity: d.Weights.Complexity,
				Priority:   d.Weights.Priority,
			}
			if weights.Primary <= 0 {
				return nil, fmt.Errorf("domain %q: primary weight must be positive", d.ID)
			}
		}

		cfg.Domains = append(cfg.Domains, model.DomainRule{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Priority:    i,
			Primary:     d.Primary,
			Secondary:   d.Secondary,
			Weights:     weights,
		})
	}

	return cfg, nil
}
