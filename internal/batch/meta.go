// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package batch

import (
	"encoding/json"
	"fmt"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

// MetaInfo describes one directory's 00meta.json batch descriptor
// (batch_import.py's FileMetaInfo).
type MetaInfo struct {
	Label          string
	Name           string
	Description    string
	Location       string
	FileType       string
	FromPipe       bool
	LoadBaseline   bool
	DefaultInclude bool
	FileLoadOrder  []string
	Source         *event.Source
}

// NewMetaInfo builds a fresh MetaInfo, inheriting parent's address map
// (batch_import.py's FileMetaInfo.__init__ address_map/activity_map
// inheritance; this port only inherits the address map, since
// per-entity activity overrides are applied directly to model nodes
// rather than carried on the source).
func NewMetaInfo(label, fileType string, parent *MetaInfo) *MetaInfo {
	src := event.NewSource(fileType)
	if parent != nil && parent.Source != nil {
		for addr, ent := range parent.Source.AddressMap {
			src.AddressMap[addr] = ent
		}
	}
	return &MetaInfo{Label: label, Name: label, FileType: fileType, DefaultInclude: true, Source: src}
}

type metaWire struct {
	Label            string            `json:"label"`
	Name             string            `json:"name"`
	FileType         string            `json:"file_type"`
	Description      string            `json:"description"`
	Location         string            `json:"location"`
	FromPipe         bool              `json:"from_pipe"`
	LoadBaseline     bool              `json:"load_baseline"`
	FileOrder        []string          `json:"file_order"`
	Include          *bool             `json:"include"`
	Addresses        map[string]string `json:"addresses"`
	ExternalActivity map[string]string `json:"external_activity"`
}

// ParseMeta decodes a 00meta.json document, resolving its "addresses"
// and "external_activity" maps against system (batch_import.py's
// BatchData.parse_from_json).
func ParseMeta(data []byte, directoryName string, system *model.IoTSystem, parent *MetaInfo) (*MetaInfo, error) {
	var w metaWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrapf(err, errors.KindConfiguration, "decoding batch descriptor")
	}
	label := w.Label
	if label == "" {
		label = directoryName
	}
	info := NewMetaInfo(label, w.FileType, parent)
	info.Description = w.Description
	info.Location = w.Location
	info.Name = label
	if w.Name != "" {
		info.Name = w.Name
	}
	info.FromPipe = w.FromPipe
	info.LoadBaseline = w.LoadBaseline
	info.FileLoadOrder = w.FileOrder
	info.DefaultInclude = true
	if w.Include != nil {
		info.DefaultInclude = *w.Include
	}

	for addrStr, entStr := range w.Addresses {
		addr, err := address.ParseEndpoint(addrStr)
		if err != nil {
			return nil, err
		}
		entAddr, err := address.ParseEndpoint(entStr)
		if err != nil {
			return nil, err
		}
		entity := system.GetEndpoint(entAddr, nil)
		info.Source.AddressMap[addr] = entity
	}

	for entStr, policyName := range w.ExternalActivity {
		entAddr, err := address.ParseEndpoint(entStr)
		if err != nil {
			return nil, err
		}
		policy, ok := model.ParseExternalActivity(policyName)
		if !ok {
			return nil, errors.Errorf(errors.KindConfiguration, "unknown external_activity %q", policyName)
		}
		node := system.GetEndpoint(entAddr, nil)
		node.SetExternalActivity(policy)
	}

	return info, nil
}

func (m *MetaInfo) String() string {
	return fmt.Sprintf("%s: file_type: %s, label: %s", m.Name, m.FileType, m.Label)
}
