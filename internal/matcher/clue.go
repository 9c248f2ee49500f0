// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package matcher

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/model"
)

// AddressClue is everything the engine knows about one Addressable:
// which addresses/networks it answers to, which connections it is the
// source or target of, and (for a multicast-receiving service) which
// networks it listens on (§4.2).
type AddressClue struct {
	Entity          model.Addressable
	Services        map[endpointKey]*AddressClue
	Addresses       map[address.AddressAtNetwork]struct{}
	Endpoints       map[endpointKey]struct{}
	SourceFor       []*ConnectionClue
	TargetFor       []*ConnectionClue
	MulticastSource map[address.Network]bool
}

func newAddressClue(entity model.Addressable) *AddressClue {
	return &AddressClue{
		Entity:          entity,
		Services:        map[endpointKey]*AddressClue{},
		Addresses:       map[address.AddressAtNetwork]struct{}{},
		Endpoints:       map[endpointKey]struct{}{},
		MulticastSource: map[address.Network]bool{},
	}
}

// Update records that addr/protocol/port was observed reaching this
// clue's entity, scoring the match by specificity and propagating the
// result to every connection this entity participates in (§4.2's
// AddressClue.update).
func (c *AddressClue) Update(state *MatchingState, at address.AddressAtNetwork, protocol address.Protocol, port int, multicast, wildcard bool) {
	_, isService := c.Entity.(*model.Service)
	key := endpointKey{protocol, port}
	if len(c.Endpoints) > 0 {
		if _, ok := c.Endpoints[key]; !ok {
			return
		}
	}

	multicastMatch := false
	if c.MulticastSource[at.Network] {
		if !at.Address.IsMulticast() {
			return
		}
		multicastMatch = true
	}

	status := c.Entity.GetStatus()
	var w int
	switch {
	case status == model.Expected && isService && !wildcard:
		w = weightExpectedServiceMatch
	case status == model.Expected && isService && multicastMatch:
		w = weightExpectedMulticastServiceMatch
	case status == model.Expected && !wildcard:
		w = weightExpectedAddressMatch
	case status == model.Expected && isService:
		w = weightExpectedServiceWildcard
	case status == model.External && isService:
		w = weightExternalService
	case status == model.Expected:
		w = weightExpectedWildcard
	case status == model.External:
		w = weightExternalWildcard
	case status == model.Unexpected && isService:
		w = weightUnexpectedService
	default:
		w = weightUnexpectedOrWildcard
	}

	if isService || !wildcard {
		v := state.Get(c.Entity)
		if w > v.Weight {
			v.Weight = w
			v.Reference = at
		}
	}
	for _, conn := range c.SourceFor {
		conn.Update(state, w, &at, nil)
	}
	for _, conn := range c.TargetFor {
		conn.Update(state, w, nil, &at)
	}
	if svc := c.Services[key]; svc != nil {
		svc.Update(state, at, protocol, port, multicast, wildcard)
	}
}

// ConnectionClue tracks a single Connection's accumulated match weight
// during a single flow match (§4.2's ConnectionClue).
type ConnectionClue struct {
	Connection *model.Connection
}

// connEnd is the state key for one direction ((true,conn) = as target,
// (false,conn) = as source), mirroring matcher_engine.py's end_key tuple.
type connEnd struct {
	AsTarget bool
	Conn     *model.Connection
}

func (c *ConnectionClue) Update(state *MatchingState, weight int, source, target *address.AddressAtNetwork) {
	end := connEnd{AsTarget: target != nil, Conn: c.Connection}
	v := state.Get(end)
	if weight > v.Weight {
		v.Weight = weight
		if source != nil {
			v.Reference = *source
		} else if target != nil {
			v.Reference = *target
		}
	}
	sum := state.Get(c.Connection)
	ss := state.Get(connEnd{AsTarget: true, Conn: c.Connection})
	ts := state.Get(connEnd{AsTarget: false, Conn: c.Connection})
	sum.Weight = ss.Weight + ts.Weight
}

// StateValue is the deduced weight/reference-address pair for one
// matching-state key.
type StateValue struct {
	Weight    int
	Reference any
}

// MatchingState accumulates StateValues for a single flow-matching pass,
// keyed by whatever the caller uses: an Addressable, a *Connection, or a
// connEnd (matcher_engine.py's MatchingState).
type MatchingState struct {
	values map[any]*StateValue
}

func NewMatchingState() *MatchingState {
	return &MatchingState{values: map[any]*StateValue{}}
}

func (s *MatchingState) Get(key any) *StateValue {
	if v, ok := s.values[key]; ok {
		return v
	}
	v := &StateValue{}
	s.values[key] = v
	return v
}

func (s *MatchingState) GetIf(key any) (*StateValue, bool) {
	v, ok := s.values[key]
	return v, ok
}

// entry pairs a state key with its value, for sorted iteration.
type entry struct {
	Key   any
	Value *StateValue
}

// AllSorted returns every recorded (key, value) pair, highest weight
// first.
func (s *MatchingState) AllSorted() []entry {
	out := make([]entry, 0, len(s.values))
	for k, v := range s.values {
		out = append(out, entry{k, v})
	}
	sortEntriesByWeightDesc(out)
	return out
}

func sortEntriesByWeightDesc(entries []entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Value.Weight > entries[j-1].Value.Weight; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
