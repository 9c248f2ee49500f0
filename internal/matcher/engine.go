// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package matcher binds observed traffic (Flows) to the model graph:
// Hosts, Services, and Connections (§4.2). It never creates entities
// itself — that is the inspector's job — but tells the inspector which
// existing entity, if any, a flow most plausibly belongs to, weighted by
// how specific the match is.
package matcher

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/model"
)

// Weight table for AddressClue.Update, highest-specificity match wins
// (§4.2).
const (
	weightExpectedServiceMatch          = 128
	weightExpectedMulticastServiceMatch = 128
	weightExpectedAddressMatch          = 64
	weightExpectedServiceWildcard       = 32
	weightExternalService               = 16
	weightExpectedWildcard              = 8
	weightExternalWildcard              = 4
	weightUnexpectedService             = 2
	weightUnexpectedOrWildcard          = 1
)

// endpointKey is a (protocol, port) pair identifying a service slot.
type endpointKey struct {
	Protocol address.Protocol
	Port     int
}

// Engine indexes the model graph for matching: every Addressable's known
// addresses, per-network, plus wildcard ("any host") entries and the
// connections between them (§4.2's matcher_engine.py MatcherEngine).
type Engine struct {
	system      *model.IoTSystem
	endpoints   map[model.Addressable]*AddressClue
	addresses   map[address.AddressAtNetwork][]*AddressClue
	wildcard    []*AddressClue
	connections map[*model.Connection]*ConnectionClue
}

// NewEngine creates an empty Engine bound to system.
func NewEngine(system *model.IoTSystem) *Engine {
	return &Engine{
		system:      system,
		endpoints:   map[model.Addressable]*AddressClue{},
		addresses:   map[address.AddressAtNetwork][]*AddressClue{},
		connections: map[*model.Connection]*ConnectionClue{},
	}
}

// FindHost returns the Host registered under addr's host part, on any
// network it is local to.
func (e *Engine) FindHost(addr address.Address) *model.Host {
	host := addr.Host()
	for _, net := range e.system.GetNetworksFor(host) {
		for _, clue := range e.addresses[address.AddressAtNetwork{Address: host, Network: net}] {
			if h, ok := clue.Entity.(*model.Host); ok {
				return h
			}
		}
	}
	return nil
}

// AddAddressable registers entity (and its parent host, and its child
// services) into the engine, returning its clue (matcher_engine.py's
// add_addressable).
func (e *Engine) AddAddressable(entity model.Addressable) *AddressClue {
	if clue, ok := e.endpoints[entity]; ok {
		return clue
	}
	clue := newAddressClue(entity)
	e.endpoints[entity] = clue

	if parent := entity.GetParentHost(); parent != nil {
		var parentAddressable model.Addressable = parent
		if parentAddressable != entity {
			e.AddAddressable(parentAddressable)
		}
	}

	addresses := false
	for _, addr := range entity.GetAddresses() {
		for _, net := range entity.GetNetworksFor(addr) {
			switch a := addr.(type) {
			case address.EntityTag:
				continue
			case address.EndpointAddr:
				prot, port, ok := a.ProtocolPort()
				if !ok {
					continue
				}
				epKey := endpointKey{prot, port}
				clue.Endpoints[epKey] = struct{}{}
				host := a.Host()
				if host == address.Any && entity.GetParentHost() != nil {
					var pa model.Addressable = entity.GetParentHost()
					if pa != entity {
						hostClue := e.AddAddressable(pa)
						hostClue.Services[epKey] = clue
						addresses = true
						continue
					}
				}
				key := address.AddressAtNetwork{Address: host, Network: net}
				e.addresses[key] = append(e.addresses[key], clue)
				clue.Addresses[key] = struct{}{}
			default:
				key := address.AddressAtNetwork{Address: addr, Network: net}
				e.addresses[key] = append(e.addresses[key], clue)
				clue.Addresses[key] = struct{}{}
			}
			addresses = true
		}
	}

	if svc, ok := entity.(*model.Service); ok && svc.MulticastSource {
		nets := svc.Networks
		if len(nets) == 0 {
			nets = []address.Network{e.system.GetDefaultNetwork()}
		}
		for _, n := range nets {
			clue.MulticastSource[n] = true
		}
	}

	if isAnyHost(entity) || !addresses || len(clue.MulticastSource) > 0 {
		e.wildcard = append(e.wildcard, clue)
	}

	for _, c := range entity.GetChildren() {
		if svc, ok := c.(*model.Service); ok {
			e.AddAddressable(svc)
		}
	}

	return clue
}

// isAnyHost reports whether entity matches any address on its network,
// i.e. is the catch-all "rest of the internet" placeholder (spotted by a
// bare wildcard address among its addresses).
func isAnyHost(entity model.Addressable) bool {
	for _, a := range entity.GetAddresses() {
		if a.IsWildcard() {
			return true
		}
	}
	return false
}

// AddConnection registers connection's endpoints and links the
// connection's clue into both (matcher_engine.py's add_connection).
func (e *Engine) AddConnection(conn *model.Connection) {
	if _, ok := e.connections[conn]; ok {
		return
	}
	clue := &ConnectionClue{Connection: conn}
	e.connections[conn] = clue

	e.AddAddressable(conn.Source)
	e.AddAddressable(conn.Target)

	if src := e.endpoints[conn.Source]; src != nil {
		src.SourceFor = append(src.SourceFor, clue)
	}
	if tgt := e.endpoints[conn.Target]; tgt != nil {
		tgt.TargetFor = append(tgt.TargetFor, clue)
	}
}

// RemoveConnection drops connection and its clue links.
func (e *Engine) RemoveConnection(conn *model.Connection) {
	clue, ok := e.connections[conn]
	if !ok {
		return
	}
	delete(e.connections, conn)
	if src := e.endpoints[conn.Source]; src != nil {
		src.SourceFor = removeClue(src.SourceFor, clue)
	}
	if tgt := e.endpoints[conn.Target]; tgt != nil {
		tgt.TargetFor = removeClue(tgt.TargetFor, clue)
	}
}

func removeClue(list []*ConnectionClue, target *ConnectionClue) []*ConnectionClue {
	out := list[:0]
	for _, c := range list {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}
