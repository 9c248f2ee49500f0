// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package event

// Consumer is implemented by the inspector: every concrete event kind
// maps to one of these methods (§4.3). Callers normally use Consume
// rather than calling a single method directly.
type Consumer interface {
	Connection(flow Flow) (Entity, error)
	Name(evt *NameEvent) (Entity, error)
	PropertyUpdate(evt *PropertyEvent) (Entity, error)
	PropertyAddressUpdate(evt *PropertyAddressEvent) (Entity, error)
	ServiceScan(scan *ServiceScan) (Entity, error)
	HostScan(scan *HostScan) (Entity, error)
}

// Consume dispatches event to the Consumer method matching its concrete
// type, the way event_interface.py's EventInterface.consume does.
func Consume(c Consumer, evt Event) (Entity, error) {
	switch e := evt.(type) {
	case Flow:
		return c.Connection(e)
	case *NameEvent:
		return c.Name(e)
	case *PropertyEvent:
		return c.PropertyUpdate(e)
	case *PropertyAddressEvent:
		return c.PropertyAddressUpdate(e)
	case *ServiceScan:
		return c.ServiceScan(e)
	case *HostScan:
		return c.HostScan(e)
	default:
		return nil, nil
	}
}

// TypeName returns the wire name for an event's concrete type, for
// serialization (§6.2's EventMap).
func TypeName(evt Event) string {
	switch evt.(type) {
	case *EthernetFlow:
		return "flow-eth"
	case *IPFlow:
		return "flow-ip"
	case *BLEAdvertisementFlow:
		return "flow-ble"
	case *PropertyEvent:
		return "prop-ent"
	case *PropertyAddressEvent:
		return "prop-add"
	case *NameEvent:
		return "name"
	case *ServiceScan:
		return "scan-service"
	case *HostScan:
		return "scan-host"
	default:
		return ""
	}
}
