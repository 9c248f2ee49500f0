// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/property"
)

// Service is a Host's network-facing endpoint: a (protocol, port) pair,
// possibly client-side (this host only ever originates such traffic)
// (§3, §4.7).
type Service struct {
	AddressableBase
	Protocol        address.Protocol
	Port            int
	ClientSide      bool
	MulticastSource bool // true for a declared broadcast/multicast source (§4.2, §4.7); see DESIGN.md naming note
	Description     string
	ConnectionType  ConnectionType
	CaptivePortal   bool // DNS service redirects every name to itself (§4.7's services.py DNSService)

	// OnConnection, when set, is invoked by the inspector for every flow
	// matched to a connection terminating at this service, in the
	// direction (target=true) or source (target=false) role. DHCP/DNS
	// behavior hooks into this (§4.7's services.py new_connection).
	OnConnection func(conn *Connection, flow event.Flow, target bool)
}

func (s *Service) GetParentHost() *Host {
	if h, ok := s.Parent.(*Host); ok {
		return h
	}
	return nil
}

func (s *Service) SetSeenNow() bool {
	if s.Status != Expected && s.Status != Unexpected {
		return false
	}
	v := property.Pass
	if s.Status == Unexpected {
		v = property.Fail
	}
	if cur, ok := s.GetProperty(property.Expected); ok {
		if vv, ok := cur.(property.VerdictValue); ok && vv.Verdict == v {
			return false
		}
	}
	s.SetProperty(property.Expected, property.ExpectedValue(v))
	return true
}

func (s *Service) GetVerdict(cache map[Entity]property.Verdict) property.Verdict {
	return AggregateVerdict(s, nil, cache)
}

// IsTCPService reports whether this is a TCP-based service, used by
// host-scan's server-side-only check (§4.3).
func (s *Service) IsTCPService() bool { return s.Protocol == address.TCP }

func (s *Service) SystemAddress() address.Sequence {
	host := address.Any
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	ep := address.EndpointAddr{HostAddr: host, Protocol: s.Protocol, Port: s.Port}
	parent := address.NewSequence()
	if h := s.GetParentHost(); h != nil {
		parent = h.SystemAddress()
	}
	return address.ServiceSequence(parent, ep)
}
