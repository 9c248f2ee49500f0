// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	"fmt"
)

// EndpointAddr names a host (or wildcard) together with a protocol and
// port, e.g. 192.168.1.1/tcp:443 (§3, §4.1).
type EndpointAddr struct {
	base
	HostAddr Address
	Protocol Protocol
	Port     int // -1 means "no specific port"
}

// AnyEndpoint builds a wildcard-host endpoint for protocol/port, used to
// describe "any host offering this service" (e.g. DHCP's UDP/67).
func AnyEndpoint(protocol Protocol, port int) EndpointAddr {
	return EndpointAddr{HostAddr: Any, Protocol: protocol, Port: port}
}

// IPEndpoint builds an endpoint at a specific IP address.
func IPEndpoint(ip IPAddr, protocol Protocol, port int) EndpointAddr {
	return EndpointAddr{HostAddr: ip, Protocol: protocol, Port: port}
}

// HWEndpoint builds an endpoint at a specific hardware address.
func HWEndpoint(hw HWAddr, protocol Protocol, port int) EndpointAddr {
	return EndpointAddr{HostAddr: hw, Protocol: protocol, Port: port}
}

func (e EndpointAddr) AsIP() (IPAddr, bool) { return e.HostAddr.AsIP() }
func (e EndpointAddr) AsHW() (HWAddr, bool) { return e.HostAddr.AsHW() }
func (e EndpointAddr) Host() Address        { return e.HostAddr }

func (e EndpointAddr) ProtocolPort() (Protocol, int, bool) {
	if e.Protocol == AnyProtocol && e.Port < 0 {
		return AnyProtocol, 0, false
	}
	return e.Protocol, e.Port, true
}

func (e EndpointAddr) ChangeHost(host Address) Address {
	if host == nil {
		host = e.HostAddr
	}
	return EndpointAddr{HostAddr: host, Protocol: e.Protocol, Port: e.Port}
}

func (e EndpointAddr) IsNull() bool      { return e.HostAddr.IsNull() }
func (e EndpointAddr) IsMulticast() bool { return e.HostAddr.IsMulticast() }
func (e EndpointAddr) IsGlobal() bool    { return e.HostAddr.IsGlobal() }
func (e EndpointAddr) IsTag() bool       { return e.HostAddr.IsTag() }
func (e EndpointAddr) IsLoopback() bool  { return e.HostAddr.IsLoopback() }
func (e EndpointAddr) IsWildcard() bool  { return e.HostAddr.IsWildcard() }
func (e EndpointAddr) Priority() int     { return e.HostAddr.Priority() + 1 }

func (e EndpointAddr) Parseable() string {
	port := ""
	if e.Port >= 0 {
		port = fmt.Sprintf(":%d", e.Port)
	}
	prot := ""
	if e.Protocol != AnyProtocol {
		prot = "/" + string(e.Protocol)
	}
	return e.HostAddr.Parseable() + prot + port
}

func (e EndpointAddr) String() string {
	port := ""
	if e.Port >= 0 {
		port = fmt.Sprintf(":%d", e.Port)
	}
	prot := ""
	if e.Protocol != AnyProtocol {
		prot = "/" + string(e.Protocol)
	}
	return e.HostAddr.String() + prot + port
}

// ProtocolPortString formats a (protocol, port) pair the way endpoint
// addresses do, omitting the port when negative.
func ProtocolPortString(p Protocol, port int) string {
	if port >= 0 {
		return fmt.Sprintf("%s:%d", p, port)
	}
	return string(p)
}

// Equal reports whether two endpoint addresses are identical.
func (e EndpointAddr) Equal(other EndpointAddr) bool {
	return e.HostAddr == other.HostAddr && e.Protocol == other.Protocol && e.Port == other.Port
}
