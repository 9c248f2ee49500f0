// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	"strconv"
	"strings"
	"unicode"

	"toolsaf.dev/toolsaf/internal/errors"
)

// GetPrioritized picks the highest-Priority address from addrs, optionally
// excluding IP/HW/DNS kinds, skipping tags entirely. Returns NullIP if
// nothing qualifies (§4.1).
func GetPrioritized(addrs []Address, allowIP, allowHW, allowDNS bool) Address {
	var best Address
	for _, a := range addrs {
		if a.IsTag() {
			continue
		}
		if !allowIP {
			if _, ok := a.(IPAddr); ok {
				continue
			}
		}
		if !allowHW {
			if _, ok := a.(HWAddr); ok {
				continue
			}
		}
		if !allowDNS {
			if _, ok := a.(DNSName); ok {
				continue
			}
		}
		if best == nil || best.Priority() < a.Priority() {
			best = a
		}
	}
	if best == nil {
		return NullIP
	}
	return best
}

// GetMulticast returns the first multicast address in addrs, if any.
func GetMulticast(addrs []Address) (Address, bool) {
	for _, a := range addrs {
		if a.IsMulticast() {
			return a, true
		}
	}
	return nil, false
}

// GetTag returns the first EntityTag in addrs, if any.
func GetTag(addrs []Address) (EntityTag, bool) {
	for _, a := range addrs {
		if t, ok := a.(EntityTag); ok {
			return t, true
		}
	}
	return EntityTag{}, false
}

// ParseAddress parses "value|type" (type in ip/hw/name/tag); with no "|"
// suffix, a leading digit means IP, otherwise it is a bare tag.
func ParseAddress(value string) (Address, error) {
	v, t, hasType := cutLastPipe(value)
	if v == "" && hasType {
		if len(t) > 0 && unicode.IsDigit(rune(t[0])) {
			return NewIPAddr(t)
		}
		return EntityTag{Tag: t}, nil
	}
	if !hasType {
		if len(value) > 0 && unicode.IsDigit(rune(value[0])) {
			if ip, err := NewIPAddr(value); err == nil {
				return ip, nil
			}
		}
		return EntityTag{Tag: value}, nil
	}
	switch t {
	case "tag":
		return EntityTag{Tag: v}, nil
	case "ip":
		return NewIPAddr(v)
	case "hw":
		return NewHWAddr(v)
	case "name":
		return DNSName{Name: v}, nil
	default:
		return nil, errors.Errorf(errors.KindParse, "unknown address type %q, allowed are ip, hw, name, and tag", t)
	}
}

func cutLastPipe(value string) (before, after string, found bool) {
	i := strings.LastIndex(value, "|")
	if i < 0 {
		return value, "", false
	}
	return value[:i], value[i+1:], true
}

// ParseEndpoint parses an address, optionally suffixed "/protocol:port" or
// "/protocol".
func ParseEndpoint(value string) (Address, error) {
	a, p, hasSlash := strings.Cut(value, "/")
	addr, err := ParseAddress(a)
	if err != nil {
		return nil, err
	}
	if !hasSlash {
		return addr, nil
	}
	prot, port, hasColon := strings.Cut(p, ":")
	if !hasColon {
		return EndpointAddr{HostAddr: addr, Protocol: ParseProtocol(prot, Other), Port: -1}, nil
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindParse, "bad port %q", port)
	}
	return EndpointAddr{HostAddr: addr, Protocol: ParseProtocol(prot, Other), Port: n}, nil
}

// ParseSystemAddress parses a "&"-joined, optionally "type="-prefixed
// system address into a Sequence.
func ParseSystemAddress(value string) (Sequence, error) {
	var segs []Segment
	for _, part := range strings.Split(value, "&") {
		if split := strings.Split(part, "="); len(split) == 2 {
			a, err := ParseEndpoint(split[1])
			if err != nil {
				return Sequence{}, err
			}
			segs = append(segs, Segment{Address: a, Type: split[0]})
			continue
		}
		a, err := ParseEndpoint(part)
		if err != nil {
			return Sequence{}, err
		}
		segs = append(segs, Segment{Address: a})
	}
	return Sequence{Segments: segs}, nil
}
