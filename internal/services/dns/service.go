// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dns declares the model-graph behavior of a DNS server service
// and decodes DNS wire messages into name-resolution events for the
// inspector (§4.7, services.py's DNSService/NameEvent).
package dns

import (
	"github.com/miekg/dns"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

// NewService declares an Expected DNS service on host (services.py's
// DNSService). captivePortal marks a service known to answer every query
// with its own address, so the inspector should not treat that as
// evidence of a genuinely new peer (§4.3's Inspector.name).
func NewService(host *model.Host, captivePortal bool) *model.Service {
	s := &model.Service{
		AddressableBase: model.AddressableBase{
			Base:             model.NewBase(host.FreeChildName("DNS")),
			HostType:         model.Administrative,
			ExternalActivity: model.Passive,
			Parent:           host,
			System:           host.System,
		},
		Protocol:       address.UDP,
		Port:           53,
		Description:    "DNS service",
		ConnectionType: model.ConnectionAdministrative,
		CaptivePortal:  captivePortal,
	}
	s.Addresses = []address.Address{address.AnyEndpoint(address.UDP, 53)}
	host.Services = append(host.Services, s)
	host.System.MessageListeners[s] = address.DNS
	return s
}

// Resolution is one name-to-address pairing decoded from a DNS reply
// message's answer section.
type Resolution struct {
	Name    address.DNSName
	Address address.Address
}

// DecodeReply parses a raw DNS wire message and returns every A/AAAA/CNAME
// answer it carries as a Resolution, for adapters turning a capture's raw
// DNS reply bytes into NameEvents (services.py's NameEvent, built from the
// decoded query name and each answer's target).
func DecodeReply(data []byte) ([]Resolution, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(data); err != nil {
		return nil, errors.Wrapf(err, errors.KindParse, "decoding DNS message")
	}
	if !msg.Response {
		return nil, nil
	}
	var out []Resolution
	for _, rr := range msg.Answer {
		name := address.DNSName{Name: stripTrailingDot(rr.Header().Name)}
		switch rec := rr.(type) {
		case *dns.A:
			ip, err := address.NewIPAddr(rec.A.String())
			if err != nil {
				continue
			}
			out = append(out, Resolution{Name: name, Address: ip})
		case *dns.AAAA:
			ip, err := address.NewIPAddr(rec.AAAA.String())
			if err != nil {
				continue
			}
			out = append(out, Resolution{Name: name, Address: ip})
		case *dns.CNAME:
			out = append(out, Resolution{Name: name, Address: address.DNSName{Name: stripTrailingDot(rec.Target)}})
		}
	}
	return out, nil
}

// NameEventsFor builds one event.NameEvent per resolution, attributed to
// svc and the given evidence, for feeding into the inspector (the Go
// equivalent of services.py's NameEvent construction from a decoded
// reply).
func NameEventsFor(evidence event.Evidence, svc event.Entity, peers []event.Entity, resolutions []Resolution) []*event.NameEvent {
	out := make([]*event.NameEvent, 0, len(resolutions))
	for _, r := range resolutions {
		name := r.Name
		evt := event.NewNameEvent(evidence, svc, &name, nil)
		evt.Address = r.Address
		evt.Peers = peers
		out = append(out, evt)
	}
	return out
}

func stripTrailingDot(name string) string {
	if n := len(name); n > 0 && name[n-1] == '.' {
		return name[:n-1]
	}
	return name
}
