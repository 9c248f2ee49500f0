// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package broadcast declares multicast/broadcast listener targets for the
// model: wildcard IPv4 address ranges and the fixed-or-ranged multicast
// addresses a host or service is declared to listen on, feeding the
// inspector's broadcast cascade (§4.7, address_ranges.py).
package broadcast

import (
	"fmt"
	"strconv"
	"strings"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/errors"
)

// octetRange is an inclusive [low, high] byte range for one IPv4 octet.
type octetRange struct {
	low, high byte
}

// AddressRange matches IPv4 addresses against a 4-octet pattern where any
// octet may be a wildcard or a range (address_ranges.py's AddressRange).
type AddressRange struct {
	parts [4]octetRange
}

// ParseRange parses a dotted-quad specification where each octet is
// either a fixed number or "*" (matching 0-255), e.g. "239.255.*.*".
func ParseRange(specification string) (AddressRange, error) {
	parts := strings.Split(specification, ".")
	if len(parts) != 4 {
		return AddressRange{}, errors.Errorf(errors.KindParse, "bad address range %q: need 4 octets", specification)
	}
	var r AddressRange
	for i, part := range parts {
		if part == "*" {
			r.parts[i] = octetRange{0, 255}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return AddressRange{}, errors.Errorf(errors.KindParse, "bad octet %q in range %q", part, specification)
		}
		r.parts[i] = octetRange{byte(n), byte(n)}
	}
	return r, nil
}

// IsMatch reports whether addr is an IPv4 address whose every octet falls
// within the corresponding part of r.
func (r AddressRange) IsMatch(addr address.Address) bool {
	ip, ok := addr.(address.IPAddr)
	if !ok {
		return false
	}
	a4 := ip.Netip()
	if !a4.Is4() {
		return false
	}
	bytes := a4.As4()
	for i, octet := range bytes {
		if octet < r.parts[i].low || octet > r.parts[i].high {
			return false
		}
	}
	return true
}

func (r AddressRange) String() string {
	parts := make([]string, 4)
	for i, p := range r.parts {
		switch {
		case p.low == 0 && p.high == 255:
			parts[i] = "*"
		case p.low == p.high:
			parts[i] = strconv.Itoa(int(p.low))
		default:
			parts[i] = fmt.Sprintf("%d-%d", p.low, p.high)
		}
	}
	return strings.Join(parts, ".")
}

// MulticastTarget matches either one fixed address or every address in a
// range, whichever was given (address_ranges.py's MulticastTarget).
// Exactly one of FixedAddress or Range is set.
type MulticastTarget struct {
	FixedAddress address.Address
	Range        *AddressRange
}

// NewFixedTarget declares a multicast target matching exactly addr.
func NewFixedTarget(addr address.Address) MulticastTarget {
	return MulticastTarget{FixedAddress: addr}
}

// NewRangeTarget declares a multicast target matching every address in r.
func NewRangeTarget(r AddressRange) MulticastTarget {
	return MulticastTarget{Range: &r}
}

// IsMatch reports whether addr falls within this target.
func (t MulticastTarget) IsMatch(addr address.Address) bool {
	if t.FixedAddress != nil {
		return t.FixedAddress == addr
	}
	if t.Range != nil {
		return t.Range.IsMatch(addr)
	}
	return false
}

func (t MulticastTarget) String() string {
	if t.FixedAddress != nil {
		return fmt.Sprintf("Multicast: %s", t.FixedAddress)
	}
	if t.Range != nil {
		return fmt.Sprintf("Multicast: %s", t.Range)
	}
	return "Multicast: <unset>"
}
