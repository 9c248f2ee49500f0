// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"toolsaf.dev/toolsaf/internal/address"
)

// Addressable is shared by Host and Service: anything the matcher can
// bind a flow endpoint to (§3, §4.2). Go has no inheritance, so Host and
// Service each embed AddressableBase and add their own children.
type AddressableBase struct {
	Base
	HostType         HostType
	ExternalActivity ExternalActivity
	Addresses        []address.Address
	Networks         []address.Network
	Parent           Addressable // nil for a top-level Host
	System           *IoTSystem
}

// Addressable is implemented by *Host and *Service.
type Addressable interface {
	Entity

	GetAddresses() []address.Address
	AddAddress(address.Address)
	GetParentHost() *Host
	GetNetworksFor(address.Address) []address.Network
	IsMulticast() bool
	IsHostReachable() bool
	SetExternalActivity(ExternalActivity)
}

// IsRelevant overrides Base.IsRelevant: a Host or Service only counts
// toward verdict aggregation and scan checks while Expected or
// Unexpected — External is reachable but never itself checked, and
// Placeholder is not yet real (model.py's NetworkNode.is_relevant).
func (a *AddressableBase) IsRelevant() bool {
	return a.Status == Expected || a.Status == Unexpected
}

func (a *AddressableBase) GetAddresses() []address.Address { return a.Addresses }

func (a *AddressableBase) AddAddress(addr address.Address) {
	for _, existing := range a.Addresses {
		if existing == addr {
			return
		}
	}
	a.Addresses = append(a.Addresses, addr)
}

// GetNetworksFor returns the networks addr is local to, falling back to
// every network this node belongs to when none match (matches the
// reference implementation's liberal network resolution). A node with no
// networks of its own uses its parent's, or the system's for a top-level
// host.
func (a *AddressableBase) GetNetworksFor(addr address.Address) []address.Network {
	if len(a.Networks) == 0 {
		switch {
		case a.Parent != nil:
			return a.Parent.GetNetworksFor(addr)
		case a.System != nil:
			return a.System.GetNetworksFor(addr)
		}
	}
	var out []address.Network
	for _, n := range a.Networks {
		if n.IsLocal(addr) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return a.Networks
	}
	return out
}

// IsMulticast reports whether any of this node's addresses is multicast.
func (a *AddressableBase) IsMulticast() bool {
	_, ok := address.GetMulticast(a.Addresses)
	return ok
}

// IsHostReachable reports whether this entity (or its parent host) can be
// addressed directly, i.e. is not purely a Placeholder/tag-only stub.
func (a *AddressableBase) IsHostReachable() bool {
	return a.Status != Placeholder
}

// SetExternalActivity overrides this node's external-activity policy,
// e.g. from a batch descriptor's per-entity override
// (batch_import.py's `node.external_activity = policy`).
func (a *AddressableBase) SetExternalActivity(ea ExternalActivity) {
	a.ExternalActivity = ea
}
