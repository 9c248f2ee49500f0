// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package event

import (
	"fmt"

	"toolsaf.dev/toolsaf/internal/address"
)

// NameEvent reports that a DNS name or entity tag resolves to an address,
// as observed in a DNS reply or a DSL name statement (§4.7's DNS service
// behavior). Exactly one of Name or Tag must be set.
type NameEvent struct {
	base
	Service Entity // the DNS service that observed this, if any
	Name    *address.DNSName
	Tag     *address.EntityTag
	Address address.Address        // the address the name resolves to, if known
	Peers   []Entity               // the communicating peers this name was seen between
}

// NewNameEvent creates a NameEvent naming either name or tag (exactly one
// must be non-nil).
func NewNameEvent(evidence Evidence, service Entity, name *address.DNSName, tag *address.EntityTag) *NameEvent {
	return &NameEvent{base: base{Evidence: evidence}, Service: service, Name: name, Tag: tag}
}

func (n *NameEvent) ValueString() string {
	label := n.label()
	if n.Address != nil {
		return fmt.Sprintf("%s=%s", label, n.Address)
	}
	return label
}

func (n *NameEvent) label() string {
	if n.Name != nil {
		return n.Name.Name
	}
	if n.Tag != nil {
		return n.Tag.Tag
	}
	return "?"
}
