// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"fmt"
	"strings"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// Host is a top-level addressable node: a device, backend, mobile app, or
// browser declared in the model, or synthesized by the matcher from
// unmodeled traffic (§3).
type Host struct {
	AddressableBase
	Services           []*Service
	Components         []NodeComponent
	Connections        []*Connection
	IgnoreNameRequests map[string]bool // DNS names this host may be asked for without becoming External
}

// NewHost creates an Expected host owned directly by system.
func NewHost(system *IoTSystem, name string, hostType HostType) *Host {
	h := &Host{
		AddressableBase: AddressableBase{
			Base:             NewBase(name),
			HostType:         hostType,
			ExternalActivity: hostType.DefaultExternalActivity(),
			System:           system,
		},
		IgnoreNameRequests: map[string]bool{},
	}
	return h
}

func (h *Host) GetChildren() []Entity {
	out := make([]Entity, 0, len(h.Services)+len(h.Components))
	for _, s := range h.Services {
		out = append(out, s)
	}
	for _, c := range h.Components {
		out = append(out, c)
	}
	return out
}

func (h *Host) GetParentHost() *Host { return h }

func (h *Host) SetSeenNow() bool {
	changed := h.Status == Unexpected || h.Status == Expected
	var v property.Verdict
	switch h.Status {
	case Expected:
		v = property.Pass
	case Unexpected:
		v = property.Fail
	default:
		return false
	}
	cur, ok := h.GetProperty(property.Expected)
	if ok {
		if vv, ok := cur.(property.VerdictValue); ok && vv.Verdict == v {
			return false
		}
	}
	h.SetProperty(property.Expected, property.ExpectedValue(v))
	return changed
}

func (h *Host) GetVerdict(cache map[Entity]property.Verdict) property.Verdict {
	return AggregateVerdict(h, h.GetChildren(), cache)
}

// SystemAddress returns this host's full system address: the owning
// system's own segment followed by the host's sanitized name, so
// IoTSystem.FindEntity (which expects a leading system-tag segment) can
// resolve it back (model.py's entities addressed as "system/host/...").
func (h *Host) SystemAddress() address.Sequence {
	tag := address.SanitizeEntityTag(h.Name)
	parent := address.Sequence{}
	if h.System != nil {
		parent = h.System.SystemAddress()
	}
	return address.ServiceSequence(parent, tag)
}

// FreeChildName returns a name guaranteed unique among this host's
// services and components, porting the reference implementation's
// suffixing algorithm exactly: the first collision appends " 2"; if the
// base name was already taken unsuffixed, that original occupant is
// retroactively renamed "base 1" (§4.4).
func (h *Host) FreeChildName(base string) string {
	names := map[string]Entity{}
	for _, s := range h.Services {
		names[s.Name] = s
	}
	for _, c := range h.Components {
		names[c.ConceptName()] = c
	}
	if _, taken := names[base]; !taken {
		return base
	}
	if occupant, ok := names[base]; ok {
		renameEntity(occupant, base+" 1")
	}
	n := 2
	for {
		candidate := fmt.Sprintf("%s %d", base, n)
		if _, taken := names[candidate]; !taken {
			return candidate
		}
		n++
	}
}

func renameEntity(e Entity, name string) {
	switch v := e.(type) {
	case *Service:
		v.Name = name
	case NodeComponent:
		if cb, ok := v.(interface{ setName(string) }); ok {
			cb.setName(name)
		}
	}
}

func (c *ComponentBase) setName(name string) { c.Name = name }

// GetEndpoint finds (or creates) the Service at addr's protocol/port on
// this host, as the matcher does when resolving a bare address to a
// specific service endpoint (§4.2).
func (h *Host) GetEndpoint(addr address.Address, at *address.Network) Addressable {
	prot, port, ok := addr.ProtocolPort()
	if !ok {
		return h
	}
	for _, s := range h.Services {
		if s.Protocol == prot && s.Port == port {
			return s
		}
	}
	return h.CreateService(prot, port)
}

// CreateService adds a new, Placeholder-status service to this host.
func (h *Host) CreateService(prot address.Protocol, port int) *Service {
	name := h.FreeChildName(strings.ToUpper(string(prot)))
	s := &Service{
		AddressableBase: AddressableBase{
			Base:             Base{Name: name, Status: Placeholder, Props: map[property.Key]property.Value{}},
			HostType:         h.HostType,
			ExternalActivity: h.ExternalActivity,
			Parent:           h,
			System:           h.System,
		},
		Protocol: prot,
		Port:     port,
	}
	s.Addresses = []address.Address{address.EndpointAddr{HostAddr: address.Any, Protocol: prot, Port: port}}
	h.Services = append(h.Services, s)
	return s
}
