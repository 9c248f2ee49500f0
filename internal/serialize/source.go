// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package serialize renders events and evidence sources to and from the
// batch wire format: one JSON object per line, field names matching the
// original's serializer module exactly so exported batches stay
// interchangeable (§6.2, event_serializers.py).
package serialize

import (
	"encoding/json"
	"time"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

type addressMapEntryWire struct {
	Address string `json:"address"`
	Entity  string `json:"entity"`
}

type sourceWire struct {
	Type       string                 `json:"type"`
	Name       string                 `json:"name"`
	Label      string                 `json:"label,omitempty"`
	Target     string                 `json:"target,omitempty"`
	BaseRef    string                 `json:"base_ref,omitempty"`
	Timestamp  string                 `json:"timestamp,omitempty"`
	AddressMap []addressMapEntryWire  `json:"address_map,omitempty"`
}

// EncodeSource renders src as a "source" wire object (event_serializers.py's
// EvidenceSourceSerializer).
func EncodeSource(src *event.Source) ([]byte, error) {
	w := sourceWire{
		Type:    "source",
		Name:    src.Name,
		Label:   src.Label,
		Target:  src.Target,
		BaseRef: src.BaseRef,
	}
	if !src.Timestamp.IsZero() {
		w.Timestamp = src.Timestamp.Format(time.RFC3339)
	}
	for addr, ent := range src.AddressMap {
		tag := ent.SystemAddress().Parseable()
		if tag == addr.Parseable() {
			continue // pointless to store, matches the original's shortcut
		}
		w.AddressMap = append(w.AddressMap, addressMapEntryWire{Address: addr.Parseable(), Entity: tag})
	}
	return json.Marshal(w)
}

// DecodeSource parses a "source" wire object, resolving its address map
// against system (event_serializers.py's EvidenceSourceSerializer.read).
func DecodeSource(data []byte, system *model.IoTSystem) (*event.Source, error) {
	var w sourceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrapf(err, errors.KindParse, "decoding evidence source")
	}
	src := event.NewSource(w.Name)
	src.Label = w.Label
	src.Target = w.Target
	src.BaseRef = w.BaseRef
	if w.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindParse, "decoding source timestamp")
		}
		src.Timestamp = ts
	}
	for _, entry := range w.AddressMap {
		addr, err := address.ParseEndpoint(entry.Address)
		if err != nil {
			return nil, err
		}
		seq, err := address.ParseSystemAddress(entry.Entity)
		if err != nil {
			return nil, err
		}
		ent := system.FindEntity(seq)
		if ent == nil {
			return nil, errors.Errorf(errors.KindParse, "cannot resolve entity %q", entry.Entity)
		}
		src.AddressMap[addr] = ent
	}
	return src, nil
}
