// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// Children is implemented by anything with sub-entities whose verdicts
// roll up into its own (hosts have services and components, the system
// has hosts) (§3).
type Children interface {
	GetChildren() []Entity
}

// Entity is implemented by every node in the model graph: Host, Service,
// Connection, NodeComponent, and IoTSystem. Go has no class inheritance,
// so each concrete type embeds Base and gets the shared bookkeeping by
// value; concrete types override GetChildren when they have any (§9).
type Entity interface {
	Children

	ConceptName() string
	GetStatus() Status
	SetStatus(Status)
	Properties() map[property.Key]property.Value
	SetProperty(key property.Key, val property.Value)
	GetProperty(key property.Key) (property.Value, bool)

	// SetSeenNow marks the entity observed in live traffic, updating its
	// derived Expected verdict exactly once; it reports whether the
	// verdict changed (§4.3).
	SetSeenNow() bool

	// GetExpectedVerdict returns the verdict stored under the Expected
	// key, or def if none is set.
	GetExpectedVerdict(def property.Verdict) property.Verdict

	// GetVerdict aggregates this entity's own verdict-bearing properties
	// with its children's verdicts (§3, §4.6), using cache to memoize
	// across a single query (cache may be nil to skip memoization).
	GetVerdict(cache map[Entity]property.Verdict) property.Verdict

	IsRelevant() bool
	LongName() string
	SystemAddress() address.Sequence
}

// Base implements the common Entity bookkeeping; embed it in every
// concrete entity type.
type Base struct {
	Name   string
	Status Status
	Props  map[property.Key]property.Value
}

// NewBase returns a Base ready for embedding, starting Expected (the
// default for every declared model entity before any observation) (§4.3).
func NewBase(name string) Base {
	return Base{Name: name, Status: Expected, Props: map[property.Key]property.Value{}}
}

func (b *Base) ConceptName() string { return b.Name }
func (b *Base) GetStatus() Status   { return b.Status }
func (b *Base) SetStatus(s Status)  { b.Status = s }

func (b *Base) Properties() map[property.Key]property.Value {
	if b.Props == nil {
		b.Props = map[property.Key]property.Value{}
	}
	return b.Props
}

func (b *Base) SetProperty(key property.Key, val property.Value) {
	property.Set(b.Properties(), key, val)
}

func (b *Base) GetProperty(key property.Key) (property.Value, bool) {
	return property.Get(b.Properties(), key)
}

func (b *Base) GetExpectedVerdict(def property.Verdict) property.Verdict {
	v, ok := b.GetProperty(property.Expected)
	if !ok {
		return def
	}
	if vb, ok := v.(property.Verdictable); ok {
		return vb.GetVerdict()
	}
	return def
}

// Reset drops every property whose key's registered Reset handler does
// not say otherwise (§4.3's model reset, entity.py's Entity.reset).
func (b *Base) Reset() {
	kept := map[property.Key]property.Value{}
	for k, v := range b.Properties() {
		if nv, ok := property.Reset(k, v); ok {
			kept[k] = nv
		}
	}
	b.Props = kept
}

// GetChildren is the default (no children); concrete types with children
// override it.
func (b *Base) GetChildren() []Entity { return nil }

// IsRelevant reports whether this entity should count toward verdict
// aggregation and scan checks. The default is always true (entity.py's
// base Entity.is_relevant); Host and Service narrow this to
// Expected/Unexpected only, and Connection has its own rule — see
// AddressableBase.IsRelevant and Connection.IsRelevant.
func (b *Base) IsRelevant() bool { return true }

func (b *Base) LongName() string { return b.Name }

// AggregateVerdict combines own's verdict-bearing properties with the
// verdicts of children, honoring cache if given, and applies the
// check:expected veto: if every other signal passes but check:expected is
// Fail, the overall verdict is Fail (§3, §4.6).
func AggregateVerdict(self Entity, children []Entity, cache map[Entity]property.Verdict) property.Verdict {
	if cache != nil {
		if v, ok := cache[self]; ok {
			return v
		}
	}
	r := property.Ignore
	combined := false
	var expVerdict property.Verdict
	hasExp := false
	for k, v := range self.Properties() {
		vb, ok := v.(property.Verdictable)
		if !ok {
			if sv, ok := v.(property.SetValue); ok {
				r = property.Combine(r, sv.GetOverallVerdict(self.Properties()))
				combined = true
			}
			continue
		}
		if k == property.Expected {
			expVerdict = vb.GetVerdict()
			hasExp = true
			continue // applied last, as a veto
		}
		r = property.Combine(r, vb.GetVerdict())
		combined = true
	}
	for _, c := range children {
		if !c.IsRelevant() {
			continue
		}
		r = property.Combine(r, c.GetVerdict(cache))
		combined = true
	}
	if hasExp {
		if r == property.Pass || r == property.Ignore {
			r = expVerdict
		} else if expVerdict == property.Fail {
			r = property.Fail
		}
		combined = true
	}
	if !combined {
		// nothing was ever combined: default to inconclusive, not
		// ignore — ignore is reserved for entities an ignore rule
		// actually touched (entity.py's `v = v or Verdict.INCON`).
		r = property.Incon
	}
	if cache != nil {
		cache[self] = r
	}
	return r
}
