// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ignore

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"toolsaf.dev/toolsaf/internal/property"
)

// fileRule is the YAML shape for one rule entry in a rules file, an
// alternative to the fluent builder for statically declared ignores.
type fileRule struct {
	FileType    string   `yaml:"file_type"`
	Properties  []string `yaml:"properties,omitempty"`
	At          []string `yaml:"at,omitempty"`
	Explanation string   `yaml:"because,omitempty"`
}

// LoadYAML parses a list of rule entries (as produced by `yaml.Marshal`
// of []fileRule) and adds them to r.
func (r *Rules) LoadYAML(data []byte) error {
	var entries []fileRule
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("ignore: parsing rules: %w", err)
	}
	for _, e := range entries {
		rule := r.NewRule(e.FileType)
		for _, p := range e.Properties {
			rule.Properties[property.New(p)] = true
		}
		for _, a := range e.At {
			rule.At[a] = true
		}
		rule.Explanation = e.Explanation
	}
	return nil
}
