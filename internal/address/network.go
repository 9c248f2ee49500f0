// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import "net/netip"

// Network names one of the IoT system's networks (§3). Equality and
// ordering are by Name only, matching the reference implementation.
type Network struct {
	Name   string
	Prefix netip.Prefix // zero value: no IP address is local to the network
}

// IsLocal reports whether address belongs to this network: multicast,
// null, and non-IP addresses are always considered local; otherwise the
// address must fall within the network's prefix.
func (n Network) IsLocal(a Address) bool {
	h := a.Host()
	if h.IsMulticast() || h.IsNull() {
		return true
	}
	ip, ok := h.AsIP()
	if !ok {
		return true
	}
	if n.Prefix.IsValid() {
		return n.Prefix.Contains(ip.Netip())
	}
	return false
}

// Less orders networks by name.
func (n Network) Less(other Network) bool { return n.Name < other.Name }

func (n Network) String() string { return n.Name }

// AddressAtNetwork pairs an address with the network it was observed on,
// used as the matcher's primary index key (§4.2).
type AddressAtNetwork struct {
	Address Address
	Network Network
}

func (a AddressAtNetwork) String() string {
	return a.Address.String() + "@" + a.Network.String()
}
