package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSpec mirrors the optional YAML override file. Sections left empty keep
// the built-in defaults.
type fileSpec struct {
	Transactions  map[string]TransactionProfile `yaml:"transactions,omitempty"`
	ErrorPatterns []ErrorPattern                `yaml:"error_patterns,omitempty"`
	StepTemplates map[string][]string           `yaml:"step_templates,omitempty"`
}

// Load returns the built-in knowledge base, overlaid with the YAML file at
// path when one is given.
func Load(path string) (*Base, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}

	var spec fileSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}

	for code, profile := range spec.Transactions {
		base.Profiles[code] = profile
	}
	if len(spec.ErrorPatterns) > 0 {
		base.Patterns = spec.ErrorPatterns
	}
	for code, steps := range spec.StepTemplates {
		base.StepTemplates[code] = steps
	}
	return base, nil
}
