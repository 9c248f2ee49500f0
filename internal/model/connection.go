// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// Connection is a declared or synthesized link between two Addressable
// endpoints (§3).
type Connection struct {
	Base
	Source         Addressable
	Target         Addressable
	ConnectionType ConnectionType
}

// NewConnection creates an Expected connection between source and target.
func NewConnection(source, target Addressable) *Connection {
	return &Connection{
		Base:   NewBase(""),
		Source: source,
		Target: target,
	}
}

func (c *Connection) ConceptName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Source.LongName() + " -> " + c.Target.LongName()
}

func (c *Connection) LongName() string { return c.ConceptName() }

func (c *Connection) SetSeenNow() bool {
	if c.Status != Expected && c.Status != Unexpected {
		return false
	}
	v := property.Pass
	if c.Status == Unexpected {
		v = property.Fail
	}
	if cur, ok := c.GetProperty(property.Expected); ok {
		if vv, ok := cur.(property.VerdictValue); ok && vv.Verdict == v {
			return false
		}
	}
	c.SetProperty(property.Expected, property.ExpectedValue(v))
	return true
}

func (c *Connection) GetVerdict(cache map[Entity]property.Verdict) property.Verdict {
	return AggregateVerdict(c, nil, cache)
}

// IsRelevant overrides Base.IsRelevant: a placeholder connection is
// never relevant; an Expected or Unexpected one always is; beyond that
// (typically External) it is relevant if it was seen to fail, or else if
// either endpoint itself is relevant (model.py's Connection.is_relevant).
func (c *Connection) IsRelevant() bool {
	if c.Status == Placeholder {
		return false
	}
	if c.Status == Expected || c.Status == Unexpected {
		return true
	}
	if c.GetExpectedVerdict(property.Incon) == property.Fail {
		return true
	}
	return c.Source.IsRelevant() || c.Target.IsRelevant()
}

func (c *Connection) SystemAddress() address.Sequence {
	return address.ConnectionSequence(c.Source.SystemAddress(), c.Target.SystemAddress())
}
