package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/triage/internal/model"
)

// descriptorFM is the YAML frontmatter of a domain descriptor file.
type descriptorFM struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Primary   []string `yaml:"primary"`
	Secondary []string `yaml:"secondary"`
}

// LoadDescriptorDir reads markdown domain descriptors from dir. Each file
// carries YAML frontmatter (id, name, keyword sets); the markdown body is
// the domain description. Files are visited in name order so Priority is
// stable across loads. A missing directory yields no descriptors.
func LoadDescriptorDir(dir string) ([]model.DomainRule, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading descriptor dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var rules []model.DomainRule
	for i, name := range names {
		rule, err := loadDescriptor(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", name, err)
		}
		rule.Priority = i
		rules = append(rules, rule)
	}
	return rules, nil
}

func loadDescriptor(path string) (model.DomainRule, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.DomainRule{}, err
	}

	var fm descriptorFM
	yamlFormat := frontmatter.NewFormat("---", "---", yaml.Unmarshal)
	body, err := frontmatter.Parse(bytes.NewReader(content), &fm, yamlFormat)
	if err != nil {
		return model.DomainRule{}, fmt.Errorf("parsing frontmatter: %w", err)
	}

	if fm.ID == "" {
		return model.DomainRule{}, fmt.Errorf("frontmatter id is required")
	}
	if fm.Name == "" {
		fm.Name = fm.ID
	}
	if len(fm.Primary) == 0 {
		return model.DomainRule{}, fmt.Errorf("frontmatter primary keywords are required")
	}

	return model.DomainRule{
		ID:          fm.ID,
		Name:        fm.Name,
		Description: strings.TrimSpace(string(body)),
		Primary:     fm.Primary,
		Secondary:   fm.Secondary,
		Weights: model.ScoreWeights{
			Primary:    defaultPrimaryWeight,
			Secondary:  defaultSecondaryWeight,
			Complexity: defaultComplexityWeight,
			Priority:   defaultPriorityWeight,
		},
	}, nil
}

// MergeDescriptors folds descriptor-defined domains into cfg. A descriptor
// whose id matches an existing domain only contributes its description;
// unknown ids are appended as new domains after the YAML-defined ones.
func MergeDescriptors(cfg *model.RoutingConfig, rules []model.DomainRule) {
	for _, r := range rules {
		merged := false
		for i := range cfg.Domains {
			if cfg.Domains[i].ID == r.ID {
				if cfg.Domains[i].Description == "" {
					cfg.Domains[i].Description = r.Description
				}
				merged = true
				break
			}
		}
		if !merged {
			r.Priority = len(cfg.Domains)
			cfg.Domains = append(cfg.Domains, r)
		}
	}
}
