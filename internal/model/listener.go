// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import "toolsaf.dev/toolsaf/internal/property"

// ModelListener is notified of model-graph changes by the inspector and
// matcher (§4.3, §4.5). Embed ModelListenerBase to get no-op defaults and
// override only what you need.
type ModelListener interface {
	ConnectionChange(c *Connection)
	HostChange(h *Host)
	ServiceChange(s *Service)
	AddressChange(h *Host)
	PropertyChange(e Entity, kv PropertyKV)
}

// PropertyKV pairs a property key with its new value, as delivered to
// ModelListener.PropertyChange.
type PropertyKV struct {
	Key   property.Key
	Value property.Value
}

// ModelListenerBase implements ModelListener with no-op methods; embed it
// and override only the callbacks you care about.
type ModelListenerBase struct{}

func (ModelListenerBase) ConnectionChange(*Connection)       {}
func (ModelListenerBase) HostChange(*Host)                   {}
func (ModelListenerBase) ServiceChange(*Service)              {}
func (ModelListenerBase) AddressChange(*Host)                 {}
func (ModelListenerBase) PropertyChange(Entity, PropertyKV)   {}
