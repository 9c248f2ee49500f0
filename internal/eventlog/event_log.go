// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package eventlog intercepts every event the inspector processes and
// keeps a verdict-annotated log of them, for later querying by entity or
// property key and for rendering a readable evidence/entity log (§4.5,
// event_logger.py).
package eventlog

import (
	"github.com/pmezard/go-difflib/difflib"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/inspector"
	"toolsaf.dev/toolsaf/internal/logging"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
)

// LoggingEvent is one stored log entry: the event itself, the entity it
// ultimately resolved to (if any), and whatever property value the
// inspector's listener notification attached to it while it was current
// (event_logger.py's LoggingEvent).
type LoggingEvent struct {
	Event         event.Event
	Entity        model.Entity
	PropertyKey   property.Key
	PropertyValue property.Value
	hasProperty   bool
	verdict       property.Verdict
}

func newLoggingEvent(evt event.Event) *LoggingEvent {
	return &LoggingEvent{Event: evt, verdict: property.Incon}
}

// pickStatusVerdict records entity's current check:expected verdict,
// called right after the inspector resolves an event to an entity.
func (l *LoggingEvent) pickStatusVerdict(entity model.Entity) {
	if entity == nil {
		return
	}
	l.Entity = entity
	l.verdict = property.GetVerdict(entity.Properties(), property.Expected)
}

// resolveVerdict returns the status verdict if one was picked, else
// derives one from whatever property value this event carried.
func (l *LoggingEvent) resolveVerdict() property.Verdict {
	if l.verdict != property.Incon {
		return l.verdict
	}
	if l.hasProperty {
		if vb, ok := l.PropertyValue.(property.Verdictable); ok {
			return vb.GetVerdict()
		}
		if sv, ok := l.PropertyValue.(property.SetValue); ok && l.Entity != nil {
			return sv.GetOverallVerdict(l.Entity.Properties())
		}
	}
	return property.Incon
}

// properties returns the implicit and explicit property keys this event
// touched, defaulting to check:expected when none applied.
func (l *LoggingEvent) properties() map[property.Key]bool {
	r := map[property.Key]bool{}
	if l.hasProperty {
		r[l.PropertyKey] = true
	}
	switch e := l.Event.(type) {
	case *event.PropertyEvent:
		r[e.Key] = true
	case *event.PropertyAddressEvent:
		r[e.Key] = true
	}
	if len(r) == 0 {
		r[property.Expected] = true
	}
	return r
}

func (l *LoggingEvent) String() string {
	v := l.Event.ValueString()
	if l.Entity != nil {
		v = l.Entity.LongName() + " " + v
	}
	return v
}

// LoggedData is one entry of a rendered evidence or entity log: a
// resolved verdict, a human-readable description, and the property keys
// it touched (event_logger.py's LoggedData).
type LoggedData struct {
	Verdict    property.Verdict
	Info       string
	Properties []property.Key
}

// FlowObservation pairs an observed Flow with the most specific
// source/target address it carried, for CollectFlows.
type FlowObservation struct {
	Source address.Address
	Target address.Address
	Flow   event.Flow
}

// EventLogger is a model.ModelListener that records every event the
// inspector processes, by wrapping every event.Consumer method
// (event_logger.py's EventLogger).
type EventLogger struct {
	model.ModelListenerBase
	inspector       *inspector.Inspector
	logs            []*LoggingEvent
	current         *LoggingEvent
	debug           bool
	log             *logging.Logger
	prevExplanation map[entityPropertyKey]string
}

// entityPropertyKey identifies one (entity, property key) slot, used to
// remember the last explanation logged for it so a later change can be
// rendered as a diff.
type entityPropertyKey struct {
	Entity model.Entity
	Key    property.Key
}

// NewEventLogger creates an EventLogger wrapping insp and subscribes it
// to insp's system as a model listener (to capture the final property
// value written for each event).
func NewEventLogger(insp *inspector.Inspector) *EventLogger {
	l := &EventLogger{inspector: insp, log: logging.WithComponent("events")}
	system := insp.System()
	system.ModelListeners = append(system.ModelListeners, l)
	return l
}

// SetDebug turns on (or off) per-event debug printing via this logger's
// own logging.Logger.
func (l *EventLogger) SetDebug(on bool) { l.debug = on }

func (l *EventLogger) printEvent(lo *LoggingEvent) {
	if !l.debug {
		return
	}
	name := ""
	if lo.Entity != nil {
		name = lo.Entity.LongName()
	}
	verdict := lo.resolveVerdict()
	vs := ""
	if verdict != property.Incon {
		vs = verdict.String()
	}
	l.log.Debug(lo.Event.ValueString(), "entity", name, "verdict", vs)
}

func (l *EventLogger) add(evt event.Event) *LoggingEvent {
	le := newLoggingEvent(evt)
	l.logs = append(l.logs, le)
	l.current = le
	return le
}

// Reset clears the log and resets the wrapped inspector.
func (l *EventLogger) Reset() {
	l.logs = nil
	l.inspector.Reset()
}

// System returns the model graph the wrapped inspector drives.
func (l *EventLogger) System() *model.IoTSystem { return l.inspector.System() }

// PropertyChange records the final property value attached to whatever
// event is currently being processed (event_logger.py's property_change).
func (l *EventLogger) PropertyChange(entity model.Entity, kv model.PropertyKV) {
	if l.current == nil {
		l.log.Warn("property change without event to assign it", "key", kv.Key.Name)
		return
	}
	l.current.PropertyKey = kv.Key
	l.current.PropertyValue = kv.Value
	l.current.hasProperty = true
}

// Connection wraps Inspector.Connection, logging the flow (§4.5).
func (l *EventLogger) Connection(flow event.Flow) (event.Entity, error) {
	lo := l.add(flow)
	e, err := l.inspector.Connection(flow)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	if ent, ok := e.(model.Entity); ok {
		lo.pickStatusVerdict(ent)
	}
	l.printEvent(lo)
	l.current = nil
	return e, nil
}

// Name wraps Inspector.Name, logging the name resolution.
func (l *EventLogger) Name(evt *event.NameEvent) (event.Entity, error) {
	lo := l.add(evt)
	e, err := l.inspector.Name(evt)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil // redundant event, no action
	}
	if ent, ok := e.(model.Entity); ok {
		lo.pickStatusVerdict(ent)
	}
	l.printEvent(lo)
	l.current = nil
	return e, nil
}

// PropertyUpdate wraps Inspector.PropertyUpdate, logging the update.
func (l *EventLogger) PropertyUpdate(evt *event.PropertyEvent) (event.Entity, error) {
	lo := l.add(evt)
	e, err := l.inspector.PropertyUpdate(evt)
	if err != nil {
		return nil, err
	}
	if ent, ok := e.(model.Entity); ok {
		lo.Entity = ent
	}
	l.printEvent(lo)
	l.current = nil
	return e, nil
}

// PropertyAddressUpdate wraps Inspector.PropertyAddressUpdate, logging
// the update.
func (l *EventLogger) PropertyAddressUpdate(evt *event.PropertyAddressEvent) (event.Entity, error) {
	lo := l.add(evt)
	e, err := l.inspector.PropertyAddressUpdate(evt)
	if err != nil {
		return nil, err
	}
	if ent, ok := e.(model.Entity); ok {
		lo.Entity = ent
	}
	l.printEvent(lo)
	l.current = nil
	return e, nil
}

// ServiceScan wraps Inspector.ServiceScan, logging the scan result.
func (l *EventLogger) ServiceScan(scan *event.ServiceScan) (event.Entity, error) {
	lo := l.add(scan)
	e, err := l.inspector.ServiceScan(scan)
	if err != nil {
		return nil, err
	}
	if ent, ok := e.(model.Entity); ok {
		lo.pickStatusVerdict(ent)
	}
	l.printEvent(lo)
	l.current = nil
	return e, nil
}

// HostScan wraps Inspector.HostScan, logging the scan result.
func (l *EventLogger) HostScan(scan *event.HostScan) (event.Entity, error) {
	lo := l.add(scan)
	e, err := l.inspector.HostScan(scan)
	if err != nil {
		return nil, err
	}
	if ent, ok := e.(model.Entity); ok {
		lo.pickStatusVerdict(ent)
	}
	l.printEvent(lo)
	l.current = nil
	return e, nil
}

// CollectFlows groups every logged pure-flow observation (property
// updates excluded) by the connection it resolved to, seeding every
// current connection with an empty slice so connections without traffic
// still appear (event_logger.py's collect_flows).
func (l *EventLogger) CollectFlows() map[*model.Connection][]FlowObservation {
	r := map[*model.Connection][]FlowObservation{}
	for _, c := range l.inspector.System().GetConnections() {
		r[c] = nil
	}
	for _, lo := range l.logs {
		flow, ok := lo.Event.(event.Flow)
		if !ok || lo.hasProperty {
			continue // only pure flows, not property updates
		}
		conn, ok := lo.Entity.(*model.Connection)
		if !ok {
			continue
		}
		var src, tgt address.Address
		if s := flow.Stack(false); len(s) > 0 {
			src = s[0]
		}
		if t := flow.Stack(true); len(t) > 0 {
			tgt = t[0]
		}
		r[conn] = append(r[conn], FlowObservation{Source: src, Target: tgt, Flow: flow})
	}
	return r
}

// GetLog returns every logged event, optionally filtered to one entity
// (and its children) and/or one property key.
func (l *EventLogger) GetLog(entity model.Entity, key *property.Key) []*LoggingEvent {
	var entSet map[model.Entity]bool
	if entity != nil {
		entSet = map[model.Entity]bool{}
		var add func(model.Entity)
		add = func(n model.Entity) {
			entSet[n] = true
			for _, c := range n.GetChildren() {
				add(c)
			}
		}
		add(entity)
	}
	var out []*LoggingEvent
	for _, lo := range l.logs {
		if entity != nil && !entSet[lo.Entity] {
			continue
		}
		if key != nil && !lo.properties()[*key] {
			continue
		}
		out = append(out, lo)
	}
	return out
}

// GetPropertySources returns, for each of keys that entity's log
// mentions, the evidence source that last touched it.
func (l *EventLogger) GetPropertySources(entity model.Entity, keys map[property.Key]bool) map[property.Key]*event.Source {
	r := map[property.Key]*event.Source{}
	for _, lo := range l.logs {
		if lo.Entity != entity {
			continue
		}
		for k := range lo.properties() {
			if keys != nil && !keys[k] {
				continue
			}
			r[k] = lo.Event.GetEvidence().Source
		}
	}
	return r
}

// GetAllPropertySources returns, for every property key ever logged, the
// entities it was applied to grouped by evidence source.
func (l *EventLogger) GetAllPropertySources() map[property.Key]map[*event.Source][]model.Entity {
	r := map[property.Key]map[*event.Source][]model.Entity{}
	for _, lo := range l.logs {
		if lo.Entity == nil {
			continue
		}
		for k := range lo.properties() {
			bySource := r[k]
			if bySource == nil {
				bySource = map[*event.Source][]model.Entity{}
				r[k] = bySource
			}
			src := lo.Event.GetEvidence().Source
			bySource[src] = append(bySource[src], lo.Entity)
		}
	}
	return r
}

// CollectEvidenceLogData renders every event sourced from source as a
// LoggedData entry, keyed by the evidence it was part of (a batch's
// single line of input may produce several events sharing one Evidence).
func (l *EventLogger) CollectEvidenceLogData(source *event.Source) map[event.Evidence][]*LoggedData {
	r := map[event.Evidence][]*LoggedData{}
	for _, lo := range l.logs {
		ev := lo.Event.GetEvidence()
		if ev.Source != source {
			continue
		}
		r[ev] = append(r[ev], l.render(lo))
	}
	return r
}

// CollectEntityLogData renders every event sourced from source that
// resolved to an entity, keyed by that entity.
func (l *EventLogger) CollectEntityLogData(source *event.Source) map[model.Entity][]*LoggedData {
	r := map[model.Entity][]*LoggedData{}
	for _, lo := range l.logs {
		ev := lo.Event.GetEvidence()
		if ev.Source != source || lo.Entity == nil {
			continue
		}
		r[lo.Entity] = append(r[lo.Entity], l.render(lo))
	}
	return r
}

func (l *EventLogger) render(lo *LoggingEvent) *LoggedData {
	keys := make([]property.Key, 0, len(lo.properties()))
	for k := range lo.properties() {
		keys = append(keys, k)
	}
	info := lo.Event.ValueString()
	if lo.hasProperty && lo.Entity != nil {
		epk := entityPropertyKey{Entity: lo.Entity, Key: lo.PropertyKey}
		newExpl := lo.PropertyValue.Explanation()
		if prev, ok := l.prevExplanation[epk]; ok && prev != newExpl {
			if diff := explanationDiff(prev, newExpl); diff != "" {
				info += "\n" + diff
			}
		}
		if l.prevExplanation == nil {
			l.prevExplanation = map[entityPropertyKey]string{}
		}
		l.prevExplanation[epk] = newExpl
	}
	return &LoggedData{Verdict: lo.resolveVerdict(), Info: info, Properties: property.SortKeys(keys)}
}

// explanationDiff renders a unified diff between a property's previous
// and current explanation text, so a verdict flip's reasoning is visible
// at a glance in the rendered log rather than just its latest value.
func explanationDiff(before, after string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}
