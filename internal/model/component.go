// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import "toolsaf.dev/toolsaf/internal/address"

// NodeComponent is a non-addressable facet attached to a Host: software,
// cookies, the OS, or persisted data (§3). Components contribute their
// own verdict-bearing properties but never match network traffic
// directly.
type NodeComponent interface {
	Entity
	ComponentType() string
	Host() *Host
}

// ComponentBase is embedded by every concrete NodeComponent.
type ComponentBase struct {
	Base
	Type     string
	HostNode *Host
}

func (c *ComponentBase) ComponentType() string { return c.Type }
func (c *ComponentBase) Host() *Host            { return c.HostNode }

func (c *ComponentBase) SystemAddress() address.Sequence {
	tag := address.SanitizeEntityTag(c.Name)
	if c.HostNode == nil {
		return address.NewSequence(tag)
	}
	return address.ComponentSequence(c.HostNode.SystemAddress(), tag, c.Type)
}

// Software models installed/observed software releases on a host (§3).
type Software struct {
	ComponentBase
}

// NewSoftware creates a Software component owned by host; it does not add
// itself to host.Components.
func NewSoftware(host *Host, name string) *Software {
	return &Software{ComponentBase{Base: NewBase(name), Type: "sw", HostNode: host}}
}

// Cookies models the set of cookies a web-facing host has been observed
// setting (§3).
type Cookies struct {
	ComponentBase
	Names []string
}

func NewCookies(host *Host) *Cookies {
	return &Cookies{ComponentBase: ComponentBase{Base: NewBase("Cookies"), Type: "cookies", HostNode: host}}
}

// OS models the host's declared or observed operating system (§3).
type OS struct {
	ComponentBase
}

func NewOS(host *Host, name string) *OS {
	return &OS{ComponentBase{Base: NewBase(name), Type: "os", HostNode: host}}
}

// StoredData models data the host is declared to persist, e.g. for a
// privacy-relevant data-at-rest check (§3).
type StoredData struct {
	ComponentBase
	Personal bool
}

func NewStoredData(host *Host, name string, personal bool) *StoredData {
	return &StoredData{
		ComponentBase: ComponentBase{Base: NewBase(name), Type: "data", HostNode: host},
		Personal:      personal,
	}
}
