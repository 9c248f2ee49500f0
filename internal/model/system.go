// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"fmt"

	"github.com/google/uuid"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// connKey identifies a connection by its endpoint pair, used as the
// system's connection map key (model.py's Connections dict keyed by
// (source, target)).
type connKey struct {
	Source Addressable
	Target Addressable
}

// EvidenceSource identifies where an event came from: a capture file, a
// scanner run, a DSL statement (§6.1).
type EvidenceSource struct {
	ID    uuid.UUID
	Name  string
	Label string
	Base  string // base_ref: directory/file this source was read from
}

// NewEvidenceSource creates a fresh, uniquely-identified evidence source.
func NewEvidenceSource(name, label string) EvidenceSource {
	return EvidenceSource{ID: uuid.New(), Name: name, Label: label}
}

// NetworkSource is an EvidenceSource that additionally remembers an
// address->entity map private to that source, so repeated runs of the
// same capture resolve ambiguous addresses the same way (§6.1,
// matcher.py's EvidenceNetworkSource/address_map).
type NetworkSource struct {
	EvidenceSource
	AddressMap map[address.Address]Addressable
}

// NewNetworkSource creates a NetworkSource with an empty address map.
func NewNetworkSource(name, label string) *NetworkSource {
	return &NetworkSource{EvidenceSource: NewEvidenceSource(name, label), AddressMap: map[address.Address]Addressable{}}
}

// IoTSystem is the root of the model graph: it owns every Host and
// Connection, routes matcher/inspector notifications to ModelListeners,
// and resolves addresses to entities (§3, §4.4).
type IoTSystem struct {
	Base
	Hosts            []*Host
	Connections      map[connKey]*Connection
	Networks         []address.Network
	ModelListeners   []ModelListener
	MessageListeners map[Addressable]address.Protocol
	OnlineResources  []OnlineResource

	originalHosts       []*Host
	originalConnections map[connKey]*Connection
}

// OnlineResource documents a URL the system's builder declared the
// system depends on (e.g. a cloud API, a privacy policy page), carried
// for reporting only — it never participates in matching (§6.2,
// online_resources.py's OnlineResource).
type OnlineResource struct {
	Name     string
	URL      string
	Keywords []string
}

// NewIoTSystem creates an empty system named name, with a single default
// network.
func NewIoTSystem(name string, defaultNetwork address.Network) *IoTSystem {
	return &IoTSystem{
		Base:             NewBase(name),
		Connections:      map[connKey]*Connection{},
		Networks:         []address.Network{defaultNetwork},
		MessageListeners: map[Addressable]address.Protocol{},
	}
}

func (s *IoTSystem) GetHosts() []*Host { return s.Hosts }

func (s *IoTSystem) GetConnections() []*Connection {
	out := make([]*Connection, 0, len(s.Connections))
	for _, c := range s.Connections {
		out = append(out, c)
	}
	return out
}

func (s *IoTSystem) GetChildren() []Entity {
	out := make([]Entity, 0, len(s.Hosts))
	for _, h := range s.Hosts {
		out = append(out, h)
	}
	return out
}

func (s *IoTSystem) GetParentHost() *Host { return nil }

func (s *IoTSystem) SetSeenNow() bool { return false }

func (s *IoTSystem) GetVerdict(cache map[Entity]property.Verdict) property.Verdict {
	children := append(s.GetChildren(), connectionsAsEntities(s.GetConnections())...)
	return AggregateVerdict(s, children, cache)
}

func connectionsAsEntities(cs []*Connection) []Entity {
	out := make([]Entity, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func (s *IoTSystem) SystemAddress() address.Sequence {
	return address.SystemSequence(s.Name, "system")
}

// IterateAll walks the system, every host, its services/components, and
// every connection (inspector.py's iterate_all, used to seed known
// entities on construction and reset).
func (s *IoTSystem) IterateAll() []Entity {
	var out []Entity
	out = append(out, s)
	for _, h := range s.Hosts {
		out = append(out, h)
		out = append(out, h.GetChildren()...)
	}
	for _, c := range s.GetConnections() {
		out = append(out, c)
	}
	return out
}

// CallListeners invokes fn for every registered ModelListener, in
// registration order (inspector.py notifies deterministically).
func (s *IoTSystem) CallListeners(fn func(ModelListener)) {
	for _, l := range s.ModelListeners {
		fn(l)
	}
}

// GetDefaultNetwork returns the system's first (default) network.
func (s *IoTSystem) GetDefaultNetwork() address.Network {
	if len(s.Networks) == 0 {
		return address.Network{Name: "default"}
	}
	return s.Networks[0]
}

// GetNetworksFor returns the networks addr is local to, or every network
// if none match.
func (s *IoTSystem) GetNetworksFor(addr address.Address) []address.Network {
	var out []address.Network
	for _, n := range s.Networks {
		if n.IsLocal(addr) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return s.Networks
	}
	return out
}

// IsExternal reports whether addr does not belong to any of the system's
// declared networks (matcher.py's new_endpoint IP-vs-external check).
func (s *IoTSystem) IsExternal(addr address.Address) bool {
	ip, ok := addr.AsIP()
	if !ok {
		return false
	}
	for _, n := range s.Networks {
		if n.IsLocal(ip) {
			return false
		}
	}
	return true
}

// GetEndpoint finds or creates the top-level Host that addr names, the
// way matcher.py's MatchingContext.new_endpoint/get_endpoint and
// model.py's IoTSystem.get_endpoint do: external or multicast addresses
// become Remote/Administrative hosts, everything else Generic, all
// starting Unexpected with Unlimited external activity since their real
// behavior is unknown.
func (s *IoTSystem) GetEndpoint(addr address.Address, at *address.Network) Addressable {
	host := addr.Host()
	for _, h := range s.Hosts {
		for _, a := range h.Addresses {
			if a == host {
				return h
			}
		}
	}
	hostType := Generic
	switch {
	case s.IsExternal(host):
		hostType = Remote
	case host.IsMulticast():
		hostType = Administrative
	}
	h := NewHost(s, host.String(), hostType)
	h.Status = Unexpected
	h.ExternalActivity = Unlimited
	h.AddAddress(host)
	if at != nil {
		h.Networks = []address.Network{*at}
	}
	s.Hosts = append(s.Hosts, h)
	return h
}

// FindEntity resolves a system address (as produced by Entity.SystemAddress)
// back to the entity it names, walking the sequence segment by segment
// (model.py's find_entity/find_endpoint).
func (s *IoTSystem) FindEntity(seq address.Sequence) Entity {
	if len(seq.Segments) == 0 {
		return s
	}
	tag, ok := seq.Segments[0].Address.(address.EntityTag)
	if !ok || tag.Tag != s.Name {
		return nil
	}
	rest := seq.Tail()
	if len(rest.Segments) == 0 {
		return s
	}
	for _, h := range s.Hosts {
		if sanitizedEqual(h.Name, rest.Segments[0].Address) {
			if len(rest.Segments) == 1 {
				return h
			}
			return findInHost(h, rest.Tail())
		}
	}
	return nil
}

func sanitizedEqual(name string, addr address.Address) bool {
	tag, ok := addr.(address.EntityTag)
	if !ok {
		return false
	}
	return address.SanitizeEntityTag(name).Tag == tag.Tag
}

func findInHost(h *Host, rest address.Sequence) Entity {
	if len(rest.Segments) == 0 {
		return h
	}
	seg := rest.Segments[0]
	for _, svc := range h.Services {
		if svc.SystemAddress().Parseable() == address.ServiceSequence(h.SystemAddress(), seg.Address).Parseable() {
			return svc
		}
	}
	for _, c := range h.Components {
		if sanitizedEqual(c.ConceptName(), seg.Address) {
			return c
		}
	}
	return nil
}

// LearnNamedAddress records that name (a DNSName or EntityTag) resolves to
// addr, porting model.py's learn_named_address branch by branch (§4.4).
// A host is matched by name or by addr, never both, per host — so when
// both a by-name and a by-address host turn up, they are always two
// distinct hosts:
//   - a host is known by name only (no addr given, or addr is already
//     among its addresses): returned unchanged;
//   - a host is known by name only, and addr is new to it: addr is added;
//   - no host is known by name, but one is known by addr: that host
//     absorbs name, renaming it from its address-derived name to name
//     when it was still using one;
//   - neither is known: a new host is created (or, for an EntityTag,
//     none is — unknown tags never synthesize hosts);
//   - both are known, as two distinct hosts: if the by-name host carries
//     no address of its own, it is dropped entirely and the by-address
//     host absorbs name instead; otherwise addr moves from the
//     by-address host to the by-name host (the latest capture wins).
// Returns the host and whether anything changed.
func (s *IoTSystem) LearnNamedAddress(name address.Address, addr address.Address) (*Host, bool) {
	var named, byAddr *Host
	for _, h := range s.Hosts {
		if addressListContains(h.Addresses, name) {
			named = h
		} else if addr != nil && addressListContains(h.Addresses, addr) {
			byAddr = h
		}
	}

	if named != nil && addr == nil {
		return named, false
	}

	if named == nil && byAddr != nil {
		byAddr.AddAddress(name)
		if addr != nil && byAddr.Name == addr.String() {
			byAddr.Name = s.freeHostName(name.String())
		}
		return byAddr, true
	}

	if named == nil {
		if _, ok := name.(address.EntityTag); ok {
			return nil, false
		}
		h := NewHost(s, name.String(), Generic)
		h.Status = Unexpected
		h.ExternalActivity = Unlimited
		h.AddAddress(name)
		s.Hosts = append(s.Hosts, h)
		named = h
	}

	if byAddr == nil {
		if addr == nil {
			return named, true
		}
		if addressListContains(named.Addresses, addr) {
			return named, false
		}
		named.AddAddress(addr)
		return named, true
	}

	if len(named.Addresses) == 1 {
		// named host carries no address of its own yet; drop it and let
		// the by-address host absorb the name instead.
		s.Hosts = removeHost(s.Hosts, named)
		byAddr.AddAddress(name)
		return byAddr, true
	}

	// addr is shared by two hosts: the latest capture wins.
	byAddr.Addresses = removeAddress(byAddr.Addresses, addr)
	named.AddAddress(addr)
	return named, true
}

func removeHost(hosts []*Host, victim *Host) []*Host {
	out := make([]*Host, 0, len(hosts))
	for _, h := range hosts {
		if h != victim {
			out = append(out, h)
		}
	}
	return out
}

func removeAddress(addrs []address.Address, a address.Address) []address.Address {
	out := make([]address.Address, 0, len(addrs))
	for _, x := range addrs {
		if x != a {
			out = append(out, x)
		}
	}
	return out
}

// freeHostName returns base, suffixed with " 2", " 3", ... if another
// host already carries it (host.go's FreeChildName, applied at the
// system's host list instead of one host's children).
func (s *IoTSystem) freeHostName(base string) string {
	taken := map[string]bool{}
	for _, h := range s.Hosts {
		taken[h.Name] = true
	}
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s %d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func addressListContains(list []address.Address, a address.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// LearnIPAddress adds ip to host's known addresses if not already present
// (services.py's DHCPService.new_connection reply-learning hook).
func (s *IoTSystem) LearnIPAddress(host *Host, ip address.IPAddr) {
	if host == nil {
		return
	}
	if !addressListContains(host.Addresses, ip) {
		host.AddAddress(ip)
	}
}

// NewConnection creates and registers a new connection between source and
// target, appending it to both endpoints' parent hosts' Connections list
// (matcher.py's MatchingContext.new_connection).
func (s *IoTSystem) NewConnection(source, target Addressable) *Connection {
	c := NewConnection(source, target)
	s.Connections[connKey{Source: source, Target: target}] = c
	if sh := source.GetParentHost(); sh != nil {
		sh.Connections = append(sh.Connections, c)
	}
	if th := target.GetParentHost(); th != nil && th != source.GetParentHost() {
		th.Connections = append(th.Connections, c)
	}
	return c
}

// Finish snapshots the current host/connection set as the "originals" a
// later Reset restores to (§4.3 supplement, REDESIGN/original_source
// EntityDatabase semantics: this is the state captured right after model
// build, before any inspection).
func (s *IoTSystem) Finish() {
	s.originalHosts = append([]*Host(nil), s.Hosts...)
	s.originalConnections = map[connKey]*Connection{}
	for k, v := range s.Connections {
		s.originalConnections[k] = v
	}
}

// Reset restores the host/connection set captured by Finish, clears every
// entity's non-surviving properties, and returns to the Expected baseline
// (§4.3).
func (s *IoTSystem) Reset() {
	if s.originalHosts != nil {
		s.Hosts = append([]*Host(nil), s.originalHosts...)
	}
	if s.originalConnections != nil {
		s.Connections = map[connKey]*Connection{}
		for k, v := range s.originalConnections {
			s.Connections[k] = v
		}
	}
	for _, e := range s.IterateAll() {
		if r, ok := e.(interface{ Reset() }); ok {
			r.Reset()
		}
	}
}
