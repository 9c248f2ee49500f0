// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package event

import (
	"fmt"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// Flow is implemented by every observed-traffic event the matcher can
// bind to a Connection (§4.1, §4.2). Stack returns the addresses (most
// to least specific) identifying one side of the flow; Port returns that
// side's port, or -1 if the flow carries none (matcher_engine.py's
// Flow.stack/Flow.port, generalized across flow kinds).
type Flow interface {
	Event
	FlowProtocol() address.Protocol
	Stack(target bool) []address.Address
	Port(target bool) int
	AllProperties() map[property.Key]property.Value
}

// Endpoint is a (hardware, IP, port) triple as observed on the wire; the
// HW address may be the null address when unknown (§4.1).
type Endpoint struct {
	HW   address.HWAddr
	IP   address.IPAddr
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s/%s:%d", e.HW, e.IP, e.Port)
}

// IPFlow is a single direction of IP traffic between two endpoints
// (§4.1). Construct with NewIPFlow; Reverse() gives the opposite
// direction.
type IPFlow struct {
	base
	Protocol address.Protocol
	Source   Endpoint
	Target   Endpoint
}

// NewIPFlow creates an IPFlow with the given evidence, protocol, and
// endpoints.
func NewIPFlow(evidence Evidence, protocol address.Protocol, source, target Endpoint) *IPFlow {
	return &IPFlow{base: base{Evidence: evidence}, Protocol: protocol, Source: source, Target: target}
}

func (f *IPFlow) FlowProtocol() address.Protocol { return f.Protocol }

func (f *IPFlow) ValueString() string {
	return fmt.Sprintf("%s %s >> %s", f.Protocol, f.Source, f.Target)
}

// Reverse returns the opposite-direction flow over the same evidence,
// used by the matcher's reverse-direction tie-break (matcher_engine.py).
func (f *IPFlow) Reverse() *IPFlow {
	return &IPFlow{base: f.base, Protocol: f.Protocol, Source: f.Target, Target: f.Source}
}

// Stack returns [IP, HW] for the requested side, most specific first;
// the matcher, the DHCP service and the event log read endpoint
// addresses through it.
func (f *IPFlow) Stack(target bool) []address.Address {
	ep := f.Source
	if target {
		ep = f.Target
	}
	return []address.Address{ep.IP, ep.HW}
}

func (f *IPFlow) Port(target bool) int {
	if target {
		return f.Target.Port
	}
	return f.Source.Port
}

// EthernetFlow is a raw link-layer flow carrying no IP information, used
// for protocols the matcher only needs to see at the HW-address level
// (§4.1).
type EthernetFlow struct {
	base
	Protocol address.Protocol
	Source   address.HWAddr
	Target   address.HWAddr
	Payload  int
}

func NewEthernetFlow(evidence Evidence, protocol address.Protocol, source, target address.HWAddr) *EthernetFlow {
	return &EthernetFlow{base: base{Evidence: evidence}, Protocol: protocol, Source: source, Target: target, Payload: -1}
}

func (f *EthernetFlow) FlowProtocol() address.Protocol { return f.Protocol }

func (f *EthernetFlow) ValueString() string {
	return fmt.Sprintf("%s %s >> %s", f.Protocol, f.Source, f.Target)
}

func (f *EthernetFlow) Stack(target bool) []address.Address {
	if target {
		return []address.Address{f.Target}
	}
	return []address.Address{f.Source}
}

func (f *EthernetFlow) Port(target bool) int { return -1 }

// BLEAdvertisementFlow is a single BLE advertisement observed from a
// source hardware address (§4.1).
type BLEAdvertisementFlow struct {
	base
	Source    address.HWAddr
	EventType int
}

func NewBLEAdvertisementFlow(evidence Evidence, source address.HWAddr, eventType int) *BLEAdvertisementFlow {
	return &BLEAdvertisementFlow{base: base{Evidence: evidence}, Source: source, EventType: eventType}
}

func (f *BLEAdvertisementFlow) FlowProtocol() address.Protocol { return address.BLE }

func (f *BLEAdvertisementFlow) ValueString() string {
	return fmt.Sprintf("BLE-ad %s type=%d", f.Source, f.EventType)
}

// Stack returns the source address for both sides: BLE advertisements
// have no addressed target, they are broadcast observations.
func (f *BLEAdvertisementFlow) Stack(target bool) []address.Address {
	return []address.Address{f.Source}
}

func (f *BLEAdvertisementFlow) Port(target bool) int { return -1 }

// SetProperty records a property value on the flow itself (as opposed to
// the entity it eventually resolves to), e.g. a MITM verdict observed
// directly on a capture (§4.1).
func (b *base) SetProperty(key property.Key, val property.Value) {
	if b.Properties == nil {
		b.Properties = map[property.Key]property.Value{}
	}
	b.Properties[key] = val
}

func (b *base) GetProperty(key property.Key) (property.Value, bool) {
	v, ok := b.Properties[key]
	return v, ok
}

// AllProperties returns every property value the flow itself carries
// (as opposed to the entity it eventually resolves to), for the
// inspector to carry onto the matched connection (inspector.py's
// connection() copying flow.properties onto conn.properties).
func (b *base) AllProperties() map[property.Key]property.Value {
	return b.Properties
}
