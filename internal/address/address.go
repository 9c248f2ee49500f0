// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import "fmt"

// Address is the sum type implemented by every address kind: hardware
// addresses, IP addresses, DNS names, entity tags, pseudo-addresses,
// endpoint (host+protocol+port) addresses, and address sequences.
//
// Concrete types embed base, which supplies the conservative defaults, and
// override only the methods where their semantics differ (§3, §4.1).
type Address interface {
	fmt.Stringer

	// AsIP returns the IP address carried by this address, if any.
	AsIP() (IPAddr, bool)
	// AsHW returns the hardware address carried by this address, if any.
	AsHW() (HWAddr, bool)
	// Host returns the host-identifying part of this address (itself,
	// unless this is an EndpointAddr).
	Host() Address
	// ProtocolPort returns the protocol and port this address names, if any.
	ProtocolPort() (Protocol, int, bool)

	IsNull() bool
	IsWildcard() bool
	IsMulticast() bool
	IsLoopback() bool
	IsHardware() bool
	IsGlobal() bool
	IsTag() bool

	// ChangeHost returns a copy of this address with its host part replaced,
	// or itself when the concept does not apply.
	ChangeHost(host Address) Address

	// Priority ranks addresses when one must be chosen to represent a node
	// (§4.1): higher priority wins.
	Priority() int

	// Parseable returns the canonical, round-trippable string form.
	Parseable() string
}

// base supplies the default Address behavior; embed it in every concrete
// address type and override what differs.
type base struct{}

func (base) AsIP() (IPAddr, bool)                 { return IPAddr{}, false }
func (base) AsHW() (HWAddr, bool)                 { return HWAddr{}, false }
func (base) ProtocolPort() (Protocol, int, bool)   { return AnyProtocol, 0, false }
func (base) IsNull() bool                          { return false }
func (base) IsWildcard() bool                      { return false }
func (base) IsMulticast() bool                     { return false }
func (base) IsLoopback() bool                      { return false }
func (base) IsHardware() bool                      { return false }
func (base) IsGlobal() bool                        { return false }
func (base) IsTag() bool                           { return false }
