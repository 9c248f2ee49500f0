// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package property

import "sort"

// Key is a dotted-namespace property key, e.g. "check:expected",
// "check:encryption", "component:fw-update", "permission:camera" (§3).
// Model marks keys the model itself declares (as opposed to ones an
// adapter introduces freely): the inspector refuses free-form writes to
// undeclared Model keys on entities that already carry them (§4.3).
type Key struct {
	Name  string
	Model bool
}

// New returns a non-model-declared key with the given dotted name.
func New(name string) Key { return Key{Name: name} }

// NewModelKey returns a model-declared key with the given dotted name.
func NewModelKey(name string) Key { return Key{Name: name, Model: true} }

func (k Key) String() string { return k.Name }

// Less orders keys by name, for stable output (§4.5 collect_*_log_data
// sorts properties).
func (k Key) Less(other Key) bool { return k.Name < other.Name }

// SortKeys returns a sorted copy of keys.
func SortKeys(keys []Key) []Key {
	out := append([]Key(nil), keys...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Value is any property value: VerdictValue, SetValue, or an
// adapter-defined value type. Values describe themselves for logging.
type Value interface {
	Explanation() string
}

// VerdictValue is a property value that directly carries a verdict, e.g.
// the "check:expected" property.
type VerdictValue struct {
	Verdict Verdict
	Expl    string
}

func (v VerdictValue) Explanation() string { return v.Expl }

// GetVerdict implements Verdictable.
func (v VerdictValue) GetVerdict() Verdict { return v.Verdict }

// SetValue is a property value naming a set of sub-keys whose combined
// verdict stands in for this key's own (e.g. a "component:os" roll-up of
// several check:* sub-properties).
type SetValue struct {
	SubKeys []Key
	Expl    string
}

func (v SetValue) Explanation() string { return v.Expl }

// GetOverallVerdict combines the verdicts of this value's sub-keys as
// found in props, skipping sub-keys with no (or no verdict-bearing) value.
// If no sub-key contributed a verdict, the result is Incon, not Ignore —
// Ignore is reserved for a sub-key an ignore rule actually touched.
func (v SetValue) GetOverallVerdict(props map[Key]Value) Verdict {
	r := Ignore
	combined := false
	for _, k := range v.SubKeys {
		val, ok := props[k]
		if !ok {
			continue
		}
		if vb, ok := val.(Verdictable); ok {
			r = Combine(r, vb.GetVerdict())
			combined = true
		}
	}
	if !combined {
		return Incon
	}
	return r
}

// Set stores val at key in props, routing through the registry so
// key-specific update/reset semantics apply (§9 registry note).
func Set(props map[Key]Value, key Key, val Value) {
	if upd := lookupUpdate(key.Name); upd != nil {
		upd(props, val)
		return
	}
	props[key] = val
}

// Get returns the value stored at key in props, if any.
func Get(props map[Key]Value, key Key) (Value, bool) {
	v, ok := props[key]
	return v, ok
}

// GetVerdict returns the verdict stored at key in props, defaulting to
// INCON if the key is absent or its value isn't verdict-bearing.
func GetVerdict(props map[Key]Value, key Key) Verdict {
	v, ok := props[key]
	if !ok {
		return Incon
	}
	if vb, ok := v.(Verdictable); ok {
		return vb.GetVerdict()
	}
	return Incon
}

// Reset returns the value that should survive a model reset for key,
// routing through the registry; by default a property is dropped on
// reset (only keys whose descriptor says otherwise survive).
func Reset(key Key, val Value) (Value, bool) {
	if r := lookupReset(key.Name); r != nil {
		return r(val)
	}
	return nil, false
}
