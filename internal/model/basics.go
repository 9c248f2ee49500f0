// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package model implements the entity/model graph: hosts, services,
// connections, node components, and the IoT-system root that owns them
// (§3).
package model

// Status is an entity's lifecycle label (§3).
type Status int

const (
	// Placeholder marks an entity synthesized by the matcher before the
	// inspector has confirmed it against real traffic.
	Placeholder Status = iota
	Expected
	Unexpected
	External
)

func (s Status) String() string {
	switch s {
	case Expected:
		return "Expected"
	case Unexpected:
		return "Unexpected"
	case External:
		return "External"
	default:
		return "Placeholder"
	}
}

// ExternalActivity is a total order governing how freely an entity may
// originate or accept unmodeled ("unexpected") traffic (§4.2, REDESIGN
// supplement). Banned < Passive < Open < Unlimited.
type ExternalActivity int

const (
	Banned ExternalActivity = iota
	Passive
	Open
	Unlimited
)

func (e ExternalActivity) String() string {
	switch e {
	case Passive:
		return "Passive"
	case Open:
		return "Open"
	case Unlimited:
		return "Unlimited"
	default:
		return "Banned"
	}
}

// ParseExternalActivity looks up an external-activity level by its
// String() name (batch_import.py's `ExternalActivity[policy_n]`). ok is
// false for an unrecognized name.
func ParseExternalActivity(name string) (ExternalActivity, bool) {
	switch name {
	case "Banned":
		return Banned, true
	case "Passive":
		return Passive, true
	case "Open":
		return Open, true
	case "Unlimited":
		return Unlimited, true
	default:
		return Banned, false
	}
}

// HostType classifies a Host for default-policy purposes.
type HostType int

const (
	Generic HostType = iota
	Device
	Mobile
	Browser
	Remote
	Administrative
)

// DefaultExternalActivity returns the external-activity default a fresh
// host of this type should carry, before any explicit model statement
// overrides it. Mobile and Browser hosts (user-controlled, widely
// roaming endpoints) default more permissively than a fixed Device.
func (h HostType) DefaultExternalActivity() ExternalActivity {
	switch h {
	case Mobile, Browser:
		return Open
	case Remote:
		return Unlimited
	default:
		return Banned
	}
}

// ConnectionType classifies a Connection for default-policy purposes,
// mirroring HostType.
type ConnectionType int

const (
	ConnectionGeneric ConnectionType = iota
	ConnectionAdministrative
	ConnectionEncrypted
)
