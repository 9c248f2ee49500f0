// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package matcher

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

// FlowMatcher scores every known Connection and Addressable against a
// single flow, then deduces the best connection (or endpoint pair) the
// flow belongs to (§4.2's matcher_engine.py FlowMatcher).
type FlowMatcher struct {
	engine *Engine
	flow   event.Flow
	net    address.Network

	sources *MatchingState
	targets *MatchingState

	resolved     bool
	connection   *model.Connection
	sourceEnd    model.Addressable
	targetEnd    model.Addressable
	reverse      bool
	sourceAddr   address.Address
	targetAddr   address.Address
}

// NewFlowMatcher scores flow against engine's indices immediately.
func NewFlowMatcher(engine *Engine, flow event.Flow) *FlowMatcher {
	net := engine.system.GetDefaultNetwork()
	m := &FlowMatcher{engine: engine, flow: flow, net: net, sources: NewMatchingState(), targets: NewMatchingState()}

	if ip, ok := flow.(*event.IPFlow); ok {
		m.mapIPFlow(ip)
	} else {
		for _, addr := range flow.Stack(false) {
			m.mapAddress(m.sources, address.AddressAtNetwork{Address: addr, Network: net}, flow.FlowProtocol(), flow.Port(false), false)
		}
		for _, addr := range flow.Stack(true) {
			m.mapAddress(m.targets, address.AddressAtNetwork{Address: addr, Network: net}, flow.FlowProtocol(), flow.Port(true), false)
		}
	}
	return m
}

// mapIPFlow replicates the reference matcher's "use IP unless the HW
// address is the more specific known endpoint" decision per side (§4.2):
// prefer IP when it is already indexed, external, or multicast; fall
// back to HW otherwise (e.g. same-LAN traffic to an unlisted IP).
func (m *FlowMatcher) mapIPFlow(flow *event.IPFlow) {
	m.mapIPSide(m.sources, flow.Source, flow.Protocol)
	m.mapIPSide(m.targets, flow.Target, flow.Protocol)
}

func (m *FlowMatcher) mapIPSide(state *MatchingState, ep event.Endpoint, protocol address.Protocol) {
	isMulticast := ep.HW.IsMulticast()
	_, known := m.engine.addresses[address.AddressAtNetwork{Address: ep.IP, Network: m.net}]
	useIP := known || m.engine.system.IsExternal(ep.IP) || isMulticast
	if useIP {
		m.mapAddress(state, address.AddressAtNetwork{Address: ep.IP, Network: m.net}, protocol, ep.Port, isMulticast)
	} else {
		m.mapAddress(state, address.AddressAtNetwork{Address: ep.HW, Network: m.net}, protocol, ep.Port, false)
	}
}

func (m *FlowMatcher) mapAddress(state *MatchingState, at address.AddressAtNetwork, protocol address.Protocol, port int, multicast bool) {
	for _, clue := range m.engine.addresses[at] {
		clue.Update(state, at, protocol, port, false, false)
	}
	for _, clue := range m.engine.wildcard {
		clue.Update(state, at, protocol, port, multicast, true)
	}
}

// GetConnection deduces the Connection (or, failing that, the candidate
// source/target Addressable pair) this flow best matches (§4.2). Safe to
// call repeatedly; the result is cached after the first call.
func (m *FlowMatcher) GetConnection() (*model.Connection, model.Addressable, model.Addressable) {
	if m.resolved {
		return m.connection, m.sourceEnd, m.targetEnd
	}
	m.resolved = true

	sourceItems := m.sources.AllSorted()
	targetItems := m.targets.AllSorted()

	maxEndpointWeight := 0
	for _, e := range sourceItems {
		if !isConnectionKey(e.Key) {
			maxEndpointWeight = e.Value.Weight
			break
		}
	}
	for _, e := range targetItems {
		if !isConnectionKey(e.Key) {
			if e.Value.Weight > maxEndpointWeight {
				maxEndpointWeight = e.Value.Weight
			}
			break
		}
	}

	var best *model.Connection
	bestWeight := 0
	reverse := false
	var bestSourceAt, bestTargetAt *address.AddressAtNetwork
	seen := map[*model.Connection]bool{}

	for _, e := range targetItems {
		conn, ok := e.Key.(*model.Connection)
		if !ok || seen[conn] {
			continue
		}
		seen[conn] = true

		sv := m.sources.Get(connEnd{AsTarget: false, Conn: conn})
		tv := m.targets.Get(connEnd{AsTarget: true, Conn: conn})
		weight := 0
		if sv.Weight > 0 && tv.Weight > 0 {
			weight = sv.Weight + tv.Weight
		}
		rsv := m.sources.Get(connEnd{AsTarget: true, Conn: conn})
		rtv := m.targets.Get(connEnd{AsTarget: false, Conn: conn})
		rWeight := 0
		if rsv.Weight > 0 && rtv.Weight > 0 {
			rWeight = rsv.Weight + rtv.Weight
		}
		bWeight := weight
		if rWeight > bWeight {
			bWeight = rWeight
		}
		if conn.GetStatus() != model.Expected && bWeight < maxEndpointWeight {
			continue
		}
		if bWeight <= bestWeight {
			continue
		}
		bestWeight = bWeight
		reverse = weight < rWeight
		if !reverse {
			if at, ok := sv.Reference.(address.AddressAtNetwork); ok {
				bestSourceAt = &at
			}
			if at, ok := tv.Reference.(address.AddressAtNetwork); ok {
				bestTargetAt = &at
			}
		} else {
			if at, ok := rtv.Reference.(address.AddressAtNetwork); ok {
				bestSourceAt = &at
			}
			if at, ok := rsv.Reference.(address.AddressAtNetwork); ok {
				bestTargetAt = &at
			}
		}
		best = conn
	}

	if best != nil {
		m.connection = best
		m.reverse = reverse
		if bestSourceAt != nil {
			m.sourceAddr = bestSourceAt.Address
		}
		if bestTargetAt != nil {
			m.targetAddr = bestTargetAt.Address
		}
		return m.connection, nil, nil
	}

	// No connection matched: find the two strongest endpoint candidates,
	// one on each side of the flow.
	all := append(append([]entry(nil), sourceItems...), targetItems...)
	var firstEnd model.Addressable
	var firstAt *address.AddressAtNetwork
	bestWeight = 0
	for _, e := range all {
		addr, ok := e.Key.(model.Addressable)
		if !ok || e.Value.Weight <= bestWeight {
			continue
		}
		firstEnd = addr
		if at, ok := e.Value.Reference.(address.AddressAtNetwork); ok {
			firstAt = &at
		}
		bestWeight = e.Value.Weight
	}
	if firstEnd == nil || firstAt == nil {
		return nil, nil, nil
	}

	sourceSet := map[address.Address]bool{}
	for _, a := range m.flow.Stack(false) {
		sourceSet[a] = true
	}
	isFirstSource := sourceSet[firstAt.Address.Host()]

	var secondEnd model.Addressable
	var secondAt *address.AddressAtNetwork
	bestWeight = 0
	for _, e := range all {
		addr, ok := e.Key.(model.Addressable)
		if !ok || e.Value.Weight <= bestWeight {
			continue
		}
		at, ok := e.Value.Reference.(address.AddressAtNetwork)
		if !ok {
			continue
		}
		if sourceSet[at.Address.Host()] == isFirstSource {
			continue
		}
		if addr.GetParentHost() == firstEnd.GetParentHost() {
			continue
		}
		secondEnd = addr
		secondAt = &at
		bestWeight = e.Value.Weight
	}

	if isFirstSource {
		m.sourceEnd, m.targetEnd = firstEnd, secondEnd
		m.sourceAddr = firstAt.Address
		if secondAt != nil {
			m.targetAddr = secondAt.Address
		}
	} else {
		m.sourceEnd, m.targetEnd = secondEnd, firstEnd
		m.targetAddr = firstAt.Address
		if secondAt != nil {
			m.sourceAddr = secondAt.Address
		}
	}
	return nil, m.sourceEnd, m.targetEnd
}

func isConnectionKey(key any) bool {
	_, ok := key.(*model.Connection)
	return ok
}

// EndAddresses returns the host addresses GetConnection deduced for each
// side, for building a new EndpointAddr when a synthesized Host is
// needed (§4.2).
func (m *FlowMatcher) EndAddresses() (address.Address, address.Address) {
	return m.sourceAddr, m.targetAddr
}

// Reversed reports whether the matched connection runs opposite to the
// flow's own source/target order.
func (m *FlowMatcher) Reversed() bool { return m.reverse }
