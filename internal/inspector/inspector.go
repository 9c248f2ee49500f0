// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package inspector applies observed evidence to the model graph: it
// turns matcher results into entity status changes, carries properties
// onto connections and entities, and notifies model listeners of every
// change (§4.3, inspector.py).
package inspector

import (
	"fmt"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/ignore"
	"toolsaf.dev/toolsaf/internal/logging"
	"toolsaf.dev/toolsaf/internal/matcher"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
	"toolsaf.dev/toolsaf/internal/telemetry"
)

// Inspector is the event.Consumer that drives model-graph updates from
// observed evidence (§4.3).
type Inspector struct {
	matcher         *matcher.Matcher
	system          *model.IoTSystem
	ignoreRules     *ignore.Rules
	connectionCount map[*model.Connection]int
	direction       map[event.Flow]bool // false = request, true = reply
	knownEntities   map[model.Entity]bool
	log             *logging.Logger
	telemetry       *telemetry.Recorder
}

// SetTelemetry attaches a metrics recorder; every consume method reports
// to it from then on. A nil recorder (the default) disables reporting.
func (i *Inspector) SetTelemetry(r *telemetry.Recorder) { i.telemetry = r }

// NewInspector creates an Inspector bound to system. If ignoreRules is
// nil, an empty rule set is used.
func NewInspector(system *model.IoTSystem, ignoreRules *ignore.Rules) *Inspector {
	if ignoreRules == nil {
		ignoreRules = ignore.NewRules()
	}
	i := &Inspector{
		matcher:         matcher.NewMatcher(system),
		system:          system,
		ignoreRules:     ignoreRules,
		connectionCount: map[*model.Connection]int{},
		direction:       map[event.Flow]bool{},
		knownEntities:   map[model.Entity]bool{},
		log:             logging.WithComponent("inspector"),
	}
	i.listHosts()
	return i
}

// System returns the model graph this inspector drives.
func (i *Inspector) System() *model.IoTSystem { return i.system }

// Reset clears every recorded evidence effect, restoring the model to its
// post-build baseline.
func (i *Inspector) Reset() {
	i.matcher.Reset()
	i.connectionCount = map[*model.Connection]int{}
	i.direction = map[event.Flow]bool{}
	i.listHosts()
}

func (i *Inspector) listHosts() {
	i.knownEntities = map[model.Entity]bool{}
	for _, e := range i.system.IterateAll() {
		i.knownEntities[e] = true
	}
}

// checkEntity registers entity as known if it wasn't already, firing the
// matching model-listener change notification, and reports whether it
// was new.
func (i *Inspector) checkEntity(entity model.Entity) bool {
	if entity == nil {
		return false
	}
	if i.knownEntities[entity] {
		i.telemetry.MatcherHit()
		return false
	}
	i.telemetry.MatcherMiss()
	i.knownEntities[entity] = true
	switch e := entity.(type) {
	case *model.Connection:
		i.system.CallListeners(func(ln model.ModelListener) { ln.ConnectionChange(e) })
	case *model.Host:
		i.system.CallListeners(func(ln model.ModelListener) { ln.HostChange(e) })
	case *model.Service:
		i.system.CallListeners(func(ln model.ModelListener) { ln.ServiceChange(e) })
	}
	return true
}

// Connection applies an observed flow: it resolves (or synthesizes) the
// Connection it belongs to, updates seen-status on both ends, carries the
// flow's own properties onto an Expected connection, and notifies
// listeners of every entity whose derived verdict changed (§4.3).
func (i *Inspector) Connection(flow event.Flow) (event.Entity, error) {
	i.telemetry.EventIngested("flow")
	i.log.Debug("inspect flow", "flow", flow.ValueString())
	match := i.matcher.Connection(flow)
	conn := match.Connection
	if conn.Status == model.Placeholder {
		return nil, fmt.Errorf("inspector: matched connection is still a placeholder: %s", conn.ConceptName())
	}
	reply := match.Reply

	connC := i.connectionCount[conn] + 1
	i.connectionCount[conn] = connC
	newConn := connC == 1

	_, hasDir := i.direction[flow]
	newDirection := !hasDir
	if newDirection {
		i.direction[flow] = reply
	}

	if !newConn && !newDirection {
		return nil, nil // old connection, old direction: discard
	}

	updated := map[model.Entity]bool{}

	updateSeenStatus := func(entity model.Addressable) bool {
		changed := entity.SetSeenNow()
		if changed {
			updated[entity] = true
		}
		return changed
	}

	updateAllBroadcastListeners := func(target model.Addressable) bool {
		if !updateSeenStatus(target) {
			return false
		}
		mc, ok := address.GetMulticast(target.GetAddresses())
		if !ok {
			return true
		}
		for _, c := range i.system.GetConnections() {
			if !addressListContains(c.Target.GetAddresses(), mc) {
				continue
			}
			if c.SetSeenNow() {
				i.checkEntity(c)
				updated[c] = true
			}
			if c.Target.SetSeenNow() {
				i.checkEntity(c.Target)
				updated[c.Target] = true
			}
		}
		return true
	}

	// A matched connection's endpoints cannot remain placeholders.
	source, target := conn.Source, conn.Target
	if source.GetStatus() == model.Placeholder {
		source.SetStatus(conn.Status)
	}
	if target.GetStatus() == model.Placeholder {
		target.SetStatus(conn.Status)
	}

	if newConn {
		conn.SetSeenNow()
		updated[conn] = true
	}

	if newDirection {
		if !reply {
			updateSeenStatus(source)
			switch {
			case target.GetStatus() == model.Unexpected:
				// unexpected target fails instantly
				updateSeenStatus(target)
			case target.IsRelevant() && target.IsMulticast():
				updateAllBroadcastListeners(target)
			case target.GetStatus() == model.External:
				// external target, send update even though verdict stays inconclusive
				if _, ok := target.GetProperty(property.Expected); !ok {
					target.SetProperty(property.Expected, property.ExpectedValue(property.Incon))
				}
			}
		} else {
			updateSeenStatus(target)
		}
	}

	notifyOnConnection(source, conn, flow, false)
	notifyOnConnection(target, conn, flow, true)

	sourceParent := source.GetParentHost()
	targetParent := target.GetParentHost()
	entities := []model.Entity{conn, source}
	if sourceParent != nil {
		entities = append(entities, sourceParent)
	}
	entities = append(entities, target)
	if targetParent != nil {
		entities = append(entities, targetParent)
	}

	for _, ent := range entities {
		if i.checkEntity(ent) {
			delete(updated, ent) // freshly-announced entity needs no separate update
		}
	}

	if conn.Status == model.Expected {
		for key, val := range flow.AllProperties() {
			property.Set(conn.Properties(), key, val)
			i.system.CallListeners(func(ln model.ModelListener) {
				ln.PropertyChange(conn, model.PropertyKV{Key: key, Value: val})
			})
		}
	}

	for _, ent := range entities {
		if !updated[ent] {
			continue
		}
		expVerdict := ent.GetExpectedVerdict(property.Incon)
		kv := model.PropertyKV{Key: property.Expected, Value: property.ExpectedValue(expVerdict)}
		i.system.CallListeners(func(ln model.ModelListener) { ln.PropertyChange(ent, kv) })
		delete(updated, ent)
	}

	return conn, nil
}

// Name applies a DNS name resolution, possibly creating a new Host for a
// name never seen before and deciding whether that host can be treated as
// External based on the activity policy of the peers that asked for it
// (§4.3, §4.7).
func (i *Inspector) Name(evt *event.NameEvent) (event.Entity, error) {
	i.telemetry.EventIngested("name-event")
	resolved := evt.Address
	if svcEnt, ok := evt.Service.(model.Addressable); ok {
		if svc, ok := svcEnt.(*model.Service); ok && svc.CaptivePortal && resolved != nil {
			if parent := svc.GetParentHost(); parent != nil && addressListContains(parent.GetAddresses(), resolved) {
				resolved = nil // just redirecting to itself
			}
		}
	}

	var name address.Address
	switch {
	case evt.Tag != nil:
		name = *evt.Tag
	case evt.Name != nil:
		name = *evt.Name
	default:
		return nil, fmt.Errorf("inspector: name event without tag or name")
	}

	h, changed := i.system.LearnNamedAddress(name, resolved)

	isNew := h != nil && !i.knownEntities[h]
	if isNew {
		if h.Status == model.Unexpected {
			settled := false
			for _, peerEnt := range evt.Peers {
				peer, ok := peerEnt.(model.Addressable)
				if !ok {
					continue
				}
				if dns, ok := name.(address.DNSName); ok {
					if parent := peer.GetParentHost(); parent != nil && parent.IgnoreNameRequests[dns.Name] {
						continue // this name is explicitly ok
					}
				}
				if addressableActivity(peer) < model.Open {
					// should not ask or reply with unknown names
					h.SetSeenNow()
					settled = true
					break
				}
			}
			if !settled {
				// either unknown requester or peers can be externally active
				h.SetStatus(model.External)
			}
		}
		i.knownEntities[h] = true
	} else if !changed {
		// old host and nothing learned: stop here
		return nil, nil
	}

	if h != nil {
		i.system.CallListeners(func(ln model.ModelListener) { ln.AddressChange(h) })
	}
	return h, nil
}

// PropertyUpdate applies a property directly named on a known entity.
// Placeholder and Unexpected entities never receive properties; a
// model-declared key the entity does not already carry is refused before
// ignore rules are even consulted (§4.3).
func (i *Inspector) PropertyUpdate(evt *event.PropertyEvent) (event.Entity, error) {
	i.telemetry.EventIngested("property-event")
	if vv, ok := evt.Value.(property.VerdictValue); ok {
		i.telemetry.VerdictObserved(vv.Verdict)
	}
	s, ok := evt.Entity.(model.Entity)
	if !ok {
		return nil, fmt.Errorf("inspector: property update entity is not a model entity")
	}
	if s.GetStatus() == model.Placeholder || s.GetStatus() == model.Unexpected {
		return s, nil
	}
	key, val := evt.Key, evt.Value
	if key.Model {
		if _, declared := s.Properties()[key]; !declared {
			i.log.Debug("value for model property ignored, not in model", "key", key.Name)
			return nil, nil
		}
	}
	val = i.ignoreRules.UpdateBasedOnRules(sourceLabel(evt.GetEvidence()), key, val, s.SystemAddress().Parseable())
	property.Set(s.Properties(), key, val)
	i.system.CallListeners(func(ln model.ModelListener) { ln.PropertyChange(s, model.PropertyKV{Key: key, Value: val}) })
	return s, nil
}

// PropertyAddressUpdate applies a property to whatever entity addr
// resolves to. Ignore rules are consulted before the model-declared-key
// check, the opposite order from PropertyUpdate: an address-keyed update
// has no entity yet when the rule needs to look at it (§4.3).
func (i *Inspector) PropertyAddressUpdate(evt *event.PropertyAddressEvent) (event.Entity, error) {
	i.telemetry.EventIngested("property-address-event")
	if vv, ok := evt.Value.(property.VerdictValue); ok {
		i.telemetry.VerdictObserved(vv.Verdict)
	}
	s, err := i.getSeenEntity(evt.Address, evt.GetEvidence().Source)
	if err != nil {
		return nil, err
	}
	if s.GetStatus() == model.Placeholder || s.GetStatus() == model.Unexpected {
		return s, nil
	}
	key, val := evt.Key, evt.Value
	val = i.ignoreRules.UpdateBasedOnRules(sourceLabel(evt.GetEvidence()), key, val, s.SystemAddress().Parseable())
	if key.Model {
		if _, declared := s.Properties()[key]; !declared {
			i.log.Debug("value for model property ignored, not in model", "key", key.Name)
			return s, nil
		}
	}
	property.Set(s.Properties(), key, val)
	i.system.CallListeners(func(ln model.ModelListener) { ln.PropertyChange(s, model.PropertyKV{Key: key, Value: val}) })
	return s, nil
}

// ServiceScan reports that an address offers a service: the owning host
// (and, if the host was already known, the service itself) is announced
// to listeners.
func (i *Inspector) ServiceScan(scan *event.ServiceScan) (event.Entity, error) {
	i.telemetry.EventIngested("service-scan")
	s, err := i.getSeenEntity(scan.Endpoint, scan.GetEvidence().Source)
	if err != nil {
		return nil, err
	}
	svc, ok := s.(*model.Service)
	if !ok {
		return nil, fmt.Errorf("inspector: service scan endpoint %s is not a service", scan.Endpoint)
	}
	host := svc.GetParentHost()
	if !i.checkEntity(host) {
		// known host, but what about the service
		i.checkEntity(svc)
	}
	return svc, nil
}

// HostScan reports every service endpoint a host exposes; any other
// server-side TCP service not among them is marked Fail, since the scan
// should have found it had it been listening. Client-side and non-TCP
// services are exempt: a scan cannot observe them (§4.3).
func (i *Inspector) HostScan(scan *event.HostScan) (event.Entity, error) {
	i.telemetry.EventIngested("host-scan")
	s, err := i.getSeenEntity(scan.Host, scan.GetEvidence().Source)
	if err != nil {
		return nil, err
	}
	host, ok := s.(*model.Host)
	if !ok {
		return nil, fmt.Errorf("inspector: host scan address %s is not a host", scan.Host)
	}
	for _, svc := range host.Services {
		if svc.ClientSide || !svc.IsTCPService() {
			continue // only server TCP services are scannable
		}
		if !svc.IsRelevant() {
			continue // verdict does not need checking
		}
		found := false
		for _, a := range svc.GetAddresses() {
			if endpointScanned(a, scan.Endpoints) {
				found = true
				break
			}
			if a.IsWildcard() {
				if ep, ok := a.ChangeHost(scan.Host).(address.EndpointAddr); ok && endpointScanned(ep, scan.Endpoints) {
					found = true
					break
				}
			}
		}
		if !found {
			svc.SetProperty(property.Expected, property.ExpectedValue(property.Fail))
		}
	}
	i.knownEntities[host] = true
	i.system.CallListeners(func(ln model.ModelListener) { ln.HostChange(host) })
	return host, nil
}

// notifyOnConnection dispatches to end's OnConnection hook, if end is a
// service that declares one (DHCP's reply-address learning, DNS's
// captive-portal bookkeeping). target reports whether end is conn's
// target side (inspector.py's new_connection call on both endpoints).
func notifyOnConnection(end model.Addressable, conn *model.Connection, flow event.Flow, target bool) {
	svc, ok := end.(*model.Service)
	if !ok || svc.OnConnection == nil {
		return
	}
	svc.OnConnection(conn, flow, target)
}

func endpointScanned(a address.Address, endpoints []address.EndpointAddr) bool {
	ep, ok := a.(address.EndpointAddr)
	if !ok {
		return false
	}
	for _, e := range endpoints {
		if ep == e {
			return true
		}
	}
	return false
}

// getSeenEntity resolves addr to its matched entity (within source's
// matching context) and marks it seen, notifying listeners if the entity
// was still Expected (§4.3's _get_seen_entity).
func (i *Inspector) getSeenEntity(addr address.Address, source *event.Source) (model.Addressable, error) {
	ent := i.matcher.Endpoint(addr, source)
	if ent == nil {
		return nil, fmt.Errorf("inspector: no entity for address %s", addr)
	}
	changed := ent.SetSeenNow()
	if changed && ent.GetStatus() == model.Expected {
		val, _ := ent.GetProperty(property.Expected)
		i.system.CallListeners(func(ln model.ModelListener) {
			ln.PropertyChange(ent, model.PropertyKV{Key: property.Expected, Value: val})
		})
	}
	return ent, nil
}

func addressListContains(list []address.Address, a address.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// addressableActivity reads an Addressable's external-activity policy,
// the way the matcher's own activity check does (§4.2, §4.3).
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

func sourceLabel(ev event.Evidence) string {
	if ev.Source == nil {
		return ""
	}
	return ev.Source.Label
}
