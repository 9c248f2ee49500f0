// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	"fmt"
	"strings"

	"toolsaf.dev/toolsaf/internal/errors"
)

// HWAddr is a hardware (e.g. Ethernet) address, stored as the canonical
// lower-case "dd:dd:dd:dd:dd:dd" form.
type HWAddr struct {
	base
	data string
}

// NullHW and BroadcastHW are the well-known null and broadcast hardware
// addresses.
var (
	NullHW      = HWAddr{data: "00:00:00:00:00:00"}
	BroadcastHW = HWAddr{data: "ff:ff:ff:ff:ff:ff"}
)

// NewHWAddr parses a hardware address, zero-padding single-digit octets
// the way the reference implementation does.
func NewHWAddr(data string) (HWAddr, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 6 {
		return HWAddr{}, errors.Errorf(errors.KindParse, "bad HW address %q", data)
	}
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		} else if len(p) != 2 {
			return HWAddr{}, errors.Errorf(errors.KindParse, "bad HW address %q", data)
		}
	}
	return HWAddr{data: strings.ToLower(strings.Join(parts, ":"))}, nil
}

// HWAddrFromIP synthesizes a testing HW address for an IP address
// (40:00:<last 4 bytes of the IP, hex>), mirroring the reference
// implementation's test-data generator.
func HWAddrFromIP(ip IPAddr) HWAddr {
	b := ip.data.As4()
	return HWAddr{data: fmt.Sprintf("40:00:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3])}
}

func (h HWAddr) AsHW() (HWAddr, bool)               { return h, true }
func (h HWAddr) Host() Address                      { return h }
func (h HWAddr) IsNull() bool                       { return h.data == NullHW.data }
func (h HWAddr) IsMulticast() bool                  { return h.data == BroadcastHW.data }
func (h HWAddr) IsHardware() bool                   { return true }
func (h HWAddr) ChangeHost(host Address) Address    { return h }
func (h HWAddr) Priority() int {
	if h.IsMulticast() {
		return 11
	}
	return 1
}
func (h HWAddr) Parseable() string { return h.data + "|hw" }
func (h HWAddr) String() string    { return h.data }

// Equal reports whether two hardware addresses are the same.
func (h HWAddr) Equal(other HWAddr) bool { return h.data == other.data }
