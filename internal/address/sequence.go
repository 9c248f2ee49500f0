// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import "strings"

// Segment is one labeled hop in an AddressSequence, e.g. "source=..." or
// "cookies=...".
type Segment struct {
	Address Address
	Type    string // empty when untyped
}

// Parseable returns "type=value", or just "value" when Type is empty.
func (s Segment) Parseable() string {
	if s.Type != "" {
		return s.Type + "=" + s.Address.Parseable()
	}
	return s.Address.Parseable()
}

func (s Segment) String() string {
	if s.Type != "" {
		return s.Type + "=" + s.Address.String()
	}
	return s.Address.String()
}

// Equal compares two segments by address and type.
func (s Segment) Equal(other Segment) bool {
	return s.Address == other.Address && s.Type == other.Type
}

// Sequence is a system address: an ordered chain of segments identifying
// an entity by its position in the model graph (e.g. system/host/service,
// or source&target for a connection) (§3, §4.4).
type Sequence struct {
	base
	Segments []Segment
}

// NewSequence builds a Sequence from bare (untyped) addresses.
func NewSequence(addrs ...Address) Sequence {
	segs := make([]Segment, len(addrs))
	for i, a := range addrs {
		segs[i] = Segment{Address: a}
	}
	return Sequence{Segments: segs}
}

// ServiceSequence appends an untyped service-address segment to parent.
func ServiceSequence(parent Sequence, service Address) Sequence {
	return Sequence{Segments: append(append([]Segment{}, parent.Segments...), Segment{Address: service})}
}

// ComponentSequence appends a typed component-tag segment to parent.
func ComponentSequence(parent Sequence, tag EntityTag, segmentType string) Sequence {
	return Sequence{Segments: append(append([]Segment{}, parent.Segments...), Segment{Address: tag, Type: segmentType})}
}

// ConnectionSequence builds a source&target system address from the
// endpoints' own sequences, re-typing their first segments "source" and
// "target".
func ConnectionSequence(source, target Sequence) Sequence {
	src := make([]Segment, len(source.Segments))
	copy(src, source.Segments)
	tgt := make([]Segment, len(target.Segments))
	copy(tgt, target.Segments)
	for i := range src {
		src[i].Type = ""
	}
	for i := range tgt {
		tgt[i].Type = ""
	}
	if len(src) > 0 {
		src[0].Type = "source"
	}
	if len(tgt) > 0 {
		tgt[0].Type = "target"
	}
	return Sequence{Segments: append(src, tgt...)}
}

// SystemSequence builds the root system's own address, a single tagged
// segment.
func SystemSequence(name, segmentType string) Sequence {
	return Sequence{Segments: []Segment{{Address: EntityTag{Tag: name}, Type: segmentType}}}
}

// Tail returns a copy with the first segment removed.
func (s Sequence) Tail() Sequence {
	if len(s.Segments) == 0 {
		return s
	}
	return Sequence{Segments: s.Segments[1:]}
}

func (s Sequence) Host() Address              { return s }
func (s Sequence) ChangeHost(Address) Address { return s }
func (s Sequence) Priority() int              { return 3 }

func (s Sequence) Parseable() string {
	parts := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		parts[i] = stripWildcardSlash(seg.Parseable())
	}
	return strings.Join(parts, "&")
}

func (s Sequence) String() string { return s.Parseable() }

func stripWildcardSlash(segment string) string {
	return strings.ReplaceAll(segment, "*/", "")
}

// Equal compares two sequences segment-by-segment.
func (s Sequence) Equal(other Sequence) bool {
	if len(s.Segments) != len(other.Segments) {
		return false
	}
	for i := range s.Segments {
		if !s.Segments[i].Equal(other.Segments[i]) {
			return false
		}
	}
	return true
}
