// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ignore implements file-type-scoped rules that downgrade a
// property update to Ignore before the inspector applies it (§4.3,
// ignore_rules.py).
package ignore

import "toolsaf.dev/toolsaf/internal/property"

// Rule is a single ignore rule: it applies to a property update on
// fileType evidence, optionally restricted to specific property keys and
// specific system-address locations.
type Rule struct {
	FileType    string
	Properties  map[property.Key]bool // empty means "every property"
	At          map[string]bool       // empty means "everywhere"; parseable system addresses
	Explanation string
}

func (r *Rule) matches(key property.Key, atAddress string) bool {
	if len(r.Properties) > 0 && !r.Properties[key] {
		return false
	}
	if len(r.At) > 0 && !r.At[atAddress] {
		return false
	}
	return true
}

// Rules is a file-type-keyed rule set, built with the same fluent
// New/Properties/At/Because sequence the reference DSL used
// (ignore_rules.py's IgnoreRules).
type Rules struct {
	rules   map[string][]*Rule
	current *Rule
}

// NewRules creates an empty rule set.
func NewRules() *Rules {
	return &Rules{rules: map[string][]*Rule{}}
}

// NewRule starts a new rule for fileType; subsequent Properties/At/Because
// calls configure it.
func (r *Rules) NewRule(fileType string) *Rule {
	rule := &Rule{FileType: fileType, Properties: map[property.Key]bool{}, At: map[string]bool{}}
	r.rules[fileType] = append(r.rules[fileType], rule)
	r.current = rule
	return rule
}

// Properties restricts the current rule to the given property keys.
func (r *Rules) Properties(keys ...property.Key) {
	for _, k := range keys {
		r.current.Properties[k] = true
	}
}

// At restricts the current rule to entities at the given system address
// (its Parseable() string form).
func (r *Rules) At(systemAddress string) {
	r.current.At[systemAddress] = true
}

// Because sets the current rule's explanation, used in place of the
// original value's explanation when the rule fires.
func (r *Rules) Because(explanation string) {
	r.current.Explanation = explanation
}

// ByFileType returns the rule set's rules grouped by file type, for
// serialization (§6.2, model_serializers.py's IgnoreRulesSerializer).
func (r *Rules) ByFileType() map[string][]*Rule {
	return r.rules
}

// UpdateBasedOnRules returns val unchanged, unless a rule for fileType
// matches key and atAddress, in which case it returns an Ignore verdict
// value carrying the rule's explanation (or val's own, if the rule gave
// none) (ignore_rules.py's update_based_on_rules).
func (r *Rules) UpdateBasedOnRules(fileType string, key property.Key, val property.Value, atAddress string) property.Value {
	for _, rule := range r.rules[fileType] {
		if !rule.matches(key, atAddress) {
			continue
		}
		expl := rule.Explanation
		if expl == "" {
			if vv, ok := val.(property.VerdictValue); ok {
				expl = vv.Expl
			}
		}
		return property.VerdictValue{Verdict: property.Ignore, Expl: expl}
	}
	return val
}
