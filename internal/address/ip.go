// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	"net/netip"
	"strings"

	"toolsaf.dev/toolsaf/internal/errors"
)

// IPAddr is an IPv4 or IPv6 address, backed by netip.Addr so values remain
// comparable and usable as map keys.
type IPAddr struct {
	base
	data netip.Addr
}

// NullIP and BroadcastIP are the well-known null and limited-broadcast
// IPv4 addresses.
var (
	NullIP      = IPAddr{data: netip.MustParseAddr("0.0.0.0")}
	BroadcastIP = IPAddr{data: netip.MustParseAddr("255.255.255.255")}
)

// NewIPAddr parses an IP address, accepting a bracketed IPv6 literal.
func NewIPAddr(value string) (IPAddr, error) {
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = value[1 : len(value)-1]
	}
	a, err := netip.ParseAddr(value)
	if err != nil {
		return IPAddr{}, errors.Wrapf(err, errors.KindParse, "bad IP address %q", value)
	}
	return IPAddr{data: a}, nil
}

func (a IPAddr) AsIP() (IPAddr, bool)              { return a, true }
func (a IPAddr) Host() Address                     { return a }
func (a IPAddr) IsNull() bool                      { return a.data == NullIP.data }
func (a IPAddr) IsMulticast() bool                 { return a.data.IsMulticast() || a.data == BroadcastIP.data }
func (a IPAddr) IsGlobal() bool                    { return a.data.IsGlobalUnicast() && !a.data.IsPrivate() }
func (a IPAddr) IsLoopback() bool                  { return a.data.IsLoopback() }
func (a IPAddr) ChangeHost(host Address) Address   { return a }
func (a IPAddr) Priority() int                     { return 2 }
func (a IPAddr) Parseable() string                 { return a.data.String() }
func (a IPAddr) String() string                    { return a.data.String() }

// Equal reports whether two IP addresses are identical.
func (a IPAddr) Equal(other IPAddr) bool { return a.data == other.data }

// Netip exposes the underlying netip.Addr for callers that need it (e.g.
// network membership checks).
func (a IPAddr) Netip() netip.Addr { return a.data }
