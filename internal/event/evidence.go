// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package event defines the evidence-carrying events an adapter feeds to
// the inspector: flows, scans, property updates, and name learning
// (§6.1).
package event

import (
	"time"

	"github.com/google/uuid"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// Source identifies where an event's evidence came from: a capture file,
// a scanner run, or a DSL statement (§6.1). Two sources are the same
// source only by identity (ID), never by name.
type Source struct {
	ID        uuid.UUID
	Name      string
	Label     string
	BaseRef   string // directory/file this source was read from, if any
	Target    string
	Timestamp time.Time

	// AddressMap remembers, per source, which entity a given address
	// resolved to, so repeated evidence from the same source resolves
	// ambiguous addresses consistently (matcher.py's
	// EvidenceNetworkSource.address_map).
	AddressMap map[address.Address]Entity
}

// Entity is the minimal entity-identity surface event/evidence code
// needs; internal/model.Entity satisfies it.
type Entity interface {
	SystemAddress() address.Sequence
}

// NewSource creates a fresh, uniquely-identified evidence source.
func NewSource(name string) *Source {
	return &Source{ID: uuid.New(), Name: name, AddressMap: map[address.Address]Entity{}}
}

// Evidence pairs an event with the source it came from, and an optional
// tail reference (e.g. a line number within that source) for log
// cross-referencing (§6.1).
type Evidence struct {
	Source  *Source
	TailRef string
}

// NewEvidence creates Evidence pointing at source with no tail reference.
func NewEvidence(source *Source) Evidence { return Evidence{Source: source} }

// Event is implemented by every kind of evidence the inspector consumes.
type Event interface {
	GetEvidence() Evidence
	ValueString() string
}

// base is embedded by every concrete Event.
type base struct {
	Evidence   Evidence
	Timestamp  time.Time
	Properties map[property.Key]property.Value
}

func (b base) GetEvidence() Evidence { return b.Evidence }
