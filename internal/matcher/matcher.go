// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package matcher

import (
	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

// ConnectionMatch is the result of matching a flow: the Connection it
// belongs to, the host addresses each side actually used, and whether
// the flow ran opposite the connection's declared direction (§4.2).
type ConnectionMatch struct {
	Connection *model.Connection
	Source     address.Address
	Target     address.Address
	Reply      bool
}

// Matcher is a model.ModelListener that maintains one matching context
// per evidence source, binding observed flows to the model graph (§4.2,
// §4.3's matcher.py SystemMatcher).
type Matcher struct {
	model.ModelListenerBase
	system   *model.IoTSystem
	contexts map[*event.Source]*Context
}

// NewMatcher creates a Matcher bound to system and registers it as a
// model listener.
func NewMatcher(system *model.IoTSystem) *Matcher {
	m := &Matcher{system: system, contexts: map[*event.Source]*Context{}}
	system.ModelListeners = append(system.ModelListeners, m)
	return m
}

// Reset clears every per-source matching context and resets the system
// model back to its original snapshot.
func (m *Matcher) Reset() {
	m.contexts = map[*event.Source]*Context{}
	m.system.Reset()
}

// AddressChange re-indexes host's addresses in every open context.
func (m *Matcher) AddressChange(h *model.Host) {
	for _, ctx := range m.contexts {
		ctx.engine.updateHost(h)
	}
}

// Connection finds (or creates) the Connection flow belongs to.
func (m *Matcher) Connection(flow event.Flow) *ConnectionMatch {
	ctx := m.context(flow.GetEvidence().Source)
	return ctx.GetConnection(flow)
}

// Endpoint finds (or creates) the Addressable addr names, within the
// context of the evidence source that observed it.
func (m *Matcher) Endpoint(addr address.Address, source *event.Source) model.Addressable {
	return m.context(source).GetEndpoint(addr)
}

func (m *Matcher) context(source *event.Source) *Context {
	ctx, ok := m.contexts[source]
	if !ok {
		ctx = newContext(m, source)
		m.contexts[source] = ctx
	}
	return ctx
}

// Context is the per-evidence-source matching state: an Engine loaded
// with the current model plus that source's own learned address
// mappings, and a cache of already-resolved flows (§4.2).
type Context struct {
	matcher  *Matcher
	source   *event.Source
	engine   *Engine
	observed map[event.Flow]*ConnectionMatch
}

func newContext(m *Matcher, source *event.Source) *Context {
	engine := NewEngine(m.system)
	for _, c := range m.system.GetConnections() {
		engine.AddConnection(c)
	}
	for _, h := range m.system.GetHosts() {
		engine.AddAddressable(h)
	}
	if source != nil {
		for addr, ent := range source.AddressMap {
			if a, ok := ent.(model.Addressable); ok {
				engine.addAddressMapping(addr, a)
			}
		}
	}
	return &Context{matcher: m, source: source, engine: engine, observed: map[event.Flow]*ConnectionMatch{}}
}

// GetConnection resolves flow to a Connection, synthesizing one (and any
// endpoint hosts it needs) if nothing in the model matches well enough
// (§4.2).
func (c *Context) GetConnection(flow event.Flow) *ConnectionMatch {
	if m, ok := c.observed[flow]; ok {
		return m
	}

	fm := NewFlowMatcher(c.engine, flow)
	conn, sourceEnd, targetEnd := fm.GetConnection()
	sourceAddr, targetAddr := fm.EndAddresses()

	if conn != nil {
		m := &ConnectionMatch{Connection: conn, Source: sourceAddr, Target: targetAddr, Reply: fm.Reversed()}
		c.observed[flow] = m
		return m
	}

	if sourceEnd == nil {
		sourceEnd, sourceAddr = c.newEndpoint(flow, false)
	}
	if targetEnd == nil {
		targetEnd, targetAddr = c.newEndpoint(flow, true)
	}

	m := c.newConnection(sourceEnd, sourceAddr, targetEnd, targetAddr)
	c.observed[flow] = m
	return m
}

// GetEndpoint finds (or creates) the Addressable addr names, preferring
// an existing service slot over a bare host (§4.2's MatchingContext.get_endpoint).
func (c *Context) GetEndpoint(addr address.Address) model.Addressable {
	found := c.engine.FindHost(addr)
	nets := c.matcher.system.GetNetworksFor(addr)
	if found != nil {
		if _, _, ok := addr.ProtocolPort(); !ok {
			return found
		}
		var at *address.Network
		if len(nets) > 0 {
			at = &nets[0]
		}
		ep := found.GetEndpoint(addr, at)
		c.engine.AddAddressable(ep)
		return ep
	}
	ep := c.matcher.system.GetEndpoint(addr, nil)
	c.engine.AddAddressable(ep)
	return ep
}

// newEndpoint synthesizes a new top-level Host for one side of flow,
// choosing the most specific address in that side's stack as the one
// the new host is keyed on (matcher.py's new_endpoint).
func (c *Context) newEndpoint(flow event.Flow, target bool) (model.Addressable, address.Address) {
	system := c.matcher.system
	stack := flow.Stack(target)
	useAddr := stack[0]
	for _, a := range stack[1:] {
		if ip, ok := a.(address.IPAddr); ok {
			if system.IsExternal(ip) || ip.IsMulticast() {
				useAddr = ip
				break
			}
		}
		if useAddr.IsNull() && !a.IsNull() {
			useAddr = a
		}
	}
	host := system.GetEndpoint(useAddr, nil)
	c.engine.AddAddressable(host)
	matchAddr := address.EndpointAddr{HostAddr: useAddr, Protocol: flow.FlowProtocol(), Port: flow.Port(target)}
	return host, matchAddr
}

// newConnection creates a fresh Unexpected (or, per external-activity
// policy, External) connection between source and target, and indexes
// it into the matching engine (matcher.py's new_connection).
func (c *Context) newConnection(source model.Addressable, sourceAddr address.Address, target model.Addressable, targetAddr address.Address) *ConnectionMatch {
	system := c.matcher.system
	conn := system.NewConnection(source, target)
	c.setConnectionStatus(conn, source, target)
	c.engine.AddConnection(conn)
	return &ConnectionMatch{Connection: conn, Source: sourceAddr, Target: targetAddr}
}

// setConnectionStatus applies the external-activity cascade: a fresh
// connection starts Unexpected; if both ends' ExternalActivity policy
// allows it, the connection (and the entities it touches) are promoted
// to External instead (§4.2, §4.3's set_connection_status).
func (c *Context) setConnectionStatus(conn *model.Connection, source, target model.Addressable) {
	conn.Status = model.Unexpected

	sourceActivity := addressableActivity(source)
	targetActivity := addressableActivity(target)

	if sourceActivity > model.Banned && targetActivity > model.Banned {
		reply := conn.Source == target
		if sourceActivity >= model.Unlimited {
			conn.Status = model.External
			setExternal(conn.Source)
		} else if reply && sourceActivity >= model.Open {
			conn.Status = model.External
			setExternal(conn.Source)
		}
		if conn.Status == model.External && targetActivity >= model.Passive {
			setExternal(conn.Target)
		}
	}
}

func addressableActivity(a model.Addressable) model.ExternalActivity {
	switch v := a.(type) {
	case *model.Host:
		return v.ExternalActivity
	case *model.Service:
		return v.ExternalActivity
	default:
		return model.Banned
	}
}

// setExternal promotes a fresh Unexpected entity to External, cascading
// to its parent host when that parent is itself still fresh and
// Unexpected (matcher.py's nested set_external).
func setExternal(a model.Addressable) {
	if a == nil {
		return
	}
	if a.GetStatus() == model.Unexpected && a.GetExpectedVerdict(-1) == -1 {
		a.SetStatus(model.External)
		if parent := a.GetParentHost(); parent != nil {
			var parentAddressable model.Addressable = parent
			if parentAddressable != a {
				setExternal(parentAddressable)
			}
		}
	}
}

// addAddressMapping registers an out-of-band address->entity mapping
// learned from a prior run against this same evidence source
// (matcher_engine.py's add_address_mapping).
func (e *Engine) addAddressMapping(addr address.Address, entity model.Addressable) {
	nets := entity.GetNetworksFor(addr)
	if len(nets) == 0 {
		nets = []address.Network{e.system.GetDefaultNetwork()}
	}
	clue := e.AddAddressable(entity)
	for _, net := range nets {
		key := address.AddressAtNetwork{Address: addr, Network: net}
		clue.Addresses[key] = struct{}{}
		e.addresses[key] = []*AddressClue{clue}
	}
	if !isAnyHost(entity) {
		filtered := e.wildcard[:0]
		for _, wc := range e.wildcard {
			if wc.Entity != entity || len(wc.MulticastSource) > 0 {
				filtered = append(filtered, wc)
			}
		}
		e.wildcard = filtered
	}
}

// updateHost re-derives the engine's address index for host after its
// address set changed (matcher_engine.py's update_host, simplified:
// rebuild the clue's address set from scratch rather than diffing).
func (e *Engine) updateHost(host *model.Host) {
	clue, ok := e.endpoints[host]
	if !ok {
		e.AddAddressable(host)
		return
	}
	for key := range clue.Addresses {
		clues := e.addresses[key]
		filtered := clues[:0]
		for _, c := range clues {
			if c != clue {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			delete(e.addresses, key)
		} else {
			e.addresses[key] = filtered
		}
	}
	clue.Addresses = map[address.AddressAtNetwork]struct{}{}
	for _, addr := range host.GetAddresses() {
		if _, isTag := addr.(address.EntityTag); isTag {
			continue
		}
		for _, net := range host.GetNetworksFor(addr) {
			key := address.AddressAtNetwork{Address: addr, Network: net}
			clue.Addresses[key] = struct{}{}
			e.addresses[key] = append(e.addresses[key], clue)
		}
	}
}
