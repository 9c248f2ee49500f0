// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package serialize

import (
	"bufio"
	"encoding/json"
	"io"
	"net/netip"
	"strconv"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/ignore"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
)

// ModelWriter streams an IoTSystem's model graph to JSON lines, one
// object per line, each tagged {id, type, at?} the way EncodeEvent and
// EncodeSource tag theirs (§6.2, model_serializers.py). "at" holds the
// wire id of the object's parent within this same stream; references to
// entities elsewhere in the model (a connection's source/target) instead
// carry that entity's system address sequence, since those may resolve
// to an entity this stream never writes (a synthesized host the
// inspector created but the caller chose not to dump).
type ModelWriter struct {
	enc     *json.Encoder
	nextID  int
	verdict map[model.Entity]property.Verdict
}

// NewModelWriter returns a ModelWriter emitting to w.
func NewModelWriter(w io.Writer) *ModelWriter {
	return &ModelWriter{enc: json.NewEncoder(w), verdict: map[model.Entity]property.Verdict{}}
}

func (mw *ModelWriter) id() string {
	mw.nextID++
	return strconv.Itoa(mw.nextID)
}

func (mw *ModelWriter) emit(m map[string]any) (string, error) {
	id := mw.id()
	m["id"] = id
	if err := mw.enc.Encode(m); err != nil {
		return "", errors.Wrapf(err, errors.KindAdapter, "writing model object")
	}
	return id, nil
}

// WriteSystem streams system's full graph: the system object, its
// declared networks, every host with its services and components, every
// connection, each online resource, and rules's ignore-rule set (pass
// nil for rules to omit it).
func (mw *ModelWriter) WriteSystem(system *model.IoTSystem, rules *ignore.Rules) error {
	sysFields := mw.commonFields(system, "system")
	sysID, err := mw.emit(sysFields)
	if err != nil {
		return err
	}

	for _, n := range system.Networks {
		if _, err := mw.emit(mw.networkFields(n, sysID)); err != nil {
			return err
		}
	}

	for _, h := range system.Hosts {
		if err := mw.writeHost(h, sysID); err != nil {
			return err
		}
	}

	for _, c := range system.GetConnections() {
		if err := mw.writeConnection(c, sysID); err != nil {
			return err
		}
	}

	for _, r := range system.OnlineResources {
		m := map[string]any{"type": "online-resource", "at": sysID, "name": r.Name, "url": r.URL, "keywords": r.Keywords}
		if _, err := mw.emit(m); err != nil {
			return err
		}
	}

	if rules != nil {
		if _, err := mw.emit(mw.ignoreRulesFields(rules, sysID)); err != nil {
			return err
		}
	}
	return nil
}

func (mw *ModelWriter) writeHost(h *model.Host, atID string) error {
	m := mw.commonFields(h, "host")
	m["at"] = atID
	m["addresses"] = addressStrings(h.Addresses)
	m["host_type"] = hostTypeWire(h.HostType)
	m["external_activity"] = h.ExternalActivity.String()
	if len(h.IgnoreNameRequests) > 0 {
		names := make([]string, 0, len(h.IgnoreNameRequests))
		for n := range h.IgnoreNameRequests {
			names = append(names, n)
		}
		m["ignore_name_requests"] = names
	}
	hostID, err := mw.emit(m)
	if err != nil {
		return err
	}

	for _, n := range h.Networks {
		if _, err := mw.emit(mw.networkFields(n, hostID)); err != nil {
			return err
		}
	}
	for _, s := range h.Services {
		if err := mw.writeService(s, hostID); err != nil {
			return err
		}
	}
	for _, c := range h.Components {
		if err := mw.writeComponent(c, hostID); err != nil {
			return err
		}
	}
	return nil
}

func (mw *ModelWriter) writeService(s *model.Service, hostID string) error {
	m := mw.commonFields(s, "service")
	m["at"] = hostID
	m["addresses"] = addressStrings(s.Addresses)
	m["host_type"] = hostTypeWire(s.HostType)
	m["external_activity"] = s.ExternalActivity.String()
	m["protocol"] = string(s.Protocol)
	m["port"] = s.Port
	m["con_type"] = connectionTypeWire(s.ConnectionType)
	if s.ClientSide {
		m["client_side"] = true
	}
	if s.MulticastSource {
		m["multicast_source"] = true
	}
	if s.CaptivePortal {
		m["captive_portal"] = true
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	_, err := mw.emit(m)
	return err
}

func (mw *ModelWriter) writeConnection(c *model.Connection, atID string) error {
	m := map[string]any{
		"type":    "connection",
		"at":      atID,
		"address": c.SystemAddress().Parseable(),
		"source":  c.Source.SystemAddress().Parseable(),
		"target":  c.Target.SystemAddress().Parseable(),
		"status":  statusWire(c.Status),
		"name":    c.ConceptName(),
	}
	v := c.GetVerdict(mw.verdict)
	if v != property.Incon {
		m["verdict"] = verdictWire(v)
	}
	if len(c.Properties()) > 0 {
		m["properties"] = propsWire(c.Properties())
	}
	_, err := mw.emit(m)
	return err
}

func (mw *ModelWriter) writeComponent(c model.NodeComponent, hostID string) error {
	switch v := c.(type) {
	case *model.Software:
		_, err := mw.emit(mw.commonFields(v, "sw", hostID))
		return err
	case *model.Cookies:
		m := mw.commonFields(v, "cookies", hostID)
		m["names"] = v.Names
		_, err := mw.emit(m)
		return err
	case *model.StoredData:
		m := mw.commonFields(v, "component", hostID)
		m["component_type"] = v.ComponentType()
		m["personal"] = v.Personal
		_, err := mw.emit(m)
		return err
	default:
		m := mw.commonFields(c, "component", hostID)
		m["component_type"] = c.ComponentType()
		_, err := mw.emit(m)
		return err
	}
}

// commonFields builds the name/address/long_name/status/verdict/
// properties fields every Entity's wire object shares, optionally
// nesting it under at (pass the parent's wire id, or omit for the
// system root).
func (mw *ModelWriter) commonFields(e model.Entity, typ string, at ...string) map[string]any {
	m := map[string]any{
		"type":      typ,
		"name":      e.ConceptName(),
		"address":   e.SystemAddress().Parseable(),
		"long_name": e.LongName(),
		"status":    statusWire(e.GetStatus()),
	}
	if len(at) > 0 {
		m["at"] = at[0]
	}
	v := e.GetVerdict(mw.verdict)
	if v != property.Incon {
		m["verdict"] = verdictWire(v)
	}
	if props := e.Properties(); len(props) > 0 {
		m["properties"] = propsWire(props)
	}
	return m
}

func (mw *ModelWriter) networkFields(n address.Network, atID string) map[string]any {
	m := map[string]any{"type": "network", "at": atID, "name": n.Name}
	if n.Prefix.IsValid() {
		m["prefix"] = n.Prefix.String()
	}
	return m
}

func (mw *ModelWriter) ignoreRulesFields(rules *ignore.Rules, atID string) map[string]any {
	wire := map[string][]map[string]any{}
	for fileType, rs := range rules.ByFileType() {
		list := make([]map[string]any, 0, len(rs))
		for _, r := range rs {
			props := make([]map[string]any, 0, len(r.Properties))
			for k := range r.Properties {
				entry := map[string]any{"name": k.Name}
				if k.Model {
					entry["model"] = true
				}
				props = append(props, entry)
			}
			at := make([]string, 0, len(r.At))
			for a := range r.At {
				at = append(at, a)
			}
			list = append(list, map[string]any{
				"properties":  props,
				"at":          at,
				"explanation": r.Explanation,
			})
		}
		wire[fileType] = list
	}
	return map[string]any{"type": "ignore-rules", "at": atID, "rules": wire}
}

func addressStrings(addrs []address.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Parseable()
	}
	return out
}

func statusWire(s model.Status) string {
	switch s {
	case model.Expected:
		return "expected"
	case model.Unexpected:
		return "unexpected"
	case model.External:
		return "external"
	default:
		return "placeholder"
	}
}

func parseStatusWire(s string) model.Status {
	switch s {
	case "expected":
		return model.Expected
	case "unexpected":
		return model.Unexpected
	case "external":
		return model.External
	default:
		return model.Placeholder
	}
}

func hostTypeWire(h model.HostType) string {
	switch h {
	case model.Device:
		return "device"
	case model.Mobile:
		return "mobile"
	case model.Browser:
		return "browser"
	case model.Remote:
		return "remote"
	case model.Administrative:
		return "administrative"
	default:
		return "generic"
	}
}

func parseHostTypeWire(s string) model.HostType {
	switch s {
	case "device":
		return model.Device
	case "mobile":
		return model.Mobile
	case "browser":
		return model.Browser
	case "remote":
		return model.Remote
	case "administrative":
		return model.Administrative
	default:
		return model.Generic
	}
}

func connectionTypeWire(c model.ConnectionType) string {
	switch c {
	case model.ConnectionAdministrative:
		return "administrative"
	case model.ConnectionEncrypted:
		return "encrypted"
	default:
		return "generic"
	}
}

func parseConnectionTypeWire(s string) model.ConnectionType {
	switch s {
	case "administrative":
		return model.ConnectionAdministrative
	case "encrypted":
		return model.ConnectionEncrypted
	default:
		return model.ConnectionGeneric
	}
}

// propsWire renders a full property map, round-tripping SetValue
// sub-keys (readProperties, used for flow-carried properties only,
// deliberately does not — see its own doc comment).
func propsWire(props map[property.Key]property.Value) map[string]any {
	out := map[string]any{}
	for k, v := range props {
		entry := map[string]any{"explanation": v.Explanation()}
		if k.Model {
			entry["model"] = true
		}
		switch val := v.(type) {
		case property.VerdictValue:
			entry["verdict"] = verdictWire(val.Verdict)
		case property.SetValue:
			sub := make([]string, len(val.SubKeys))
			for i, sk := range val.SubKeys {
				sub[i] = sk.Name
			}
			entry["sub-keys"] = sub
		}
		out[k.Name] = entry
	}
	return out
}

// propKey rebuilds a property.Key from its wire name, preserving the
// Model bit so a read-back key compares equal to the model-declared
// constant it came from (property.Expected and friends are Model keys;
// losing that bit would make every prior SetProperty(property.Expected,
// ...) invisible to a later GetProperty(property.Expected) lookup).
func propKey(name string, entry map[string]any) property.Key {
	if boolOf(entry["model"]) {
		return property.NewModelKey(name)
	}
	return property.New(name)
}

func parsePropsWire(raw map[string]any) map[property.Key]property.Value {
	out := map[property.Key]property.Value{}
	for name, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		expl := str(entry, "explanation")
		key := propKey(name, entry)
		if vs, ok := entry["verdict"].(string); ok {
			out[key] = property.VerdictValue{Verdict: parseVerdictWire(vs), Expl: expl}
			continue
		}
		if subRaw, ok := entry["sub-keys"].([]any); ok {
			sub := make([]property.Key, len(subRaw))
			for i, s := range subRaw {
				n, _ := s.(string)
				sub[i] = property.New(n)
			}
			out[key] = property.SetValue{SubKeys: sub, Expl: expl}
			continue
		}
		out[key] = property.SetValue{Expl: expl}
	}
	return out
}

// ModelReader reconstructs an IoTSystem (or extends an existing one)
// from a ModelWriter's JSON-lines stream, resolving "at" references
// against the ids it has seen so far; the stream must list a parent
// object before any child that references it, which WriteSystem always
// does.
type ModelReader struct {
	system *model.IoTSystem
	byID   map[string]any // id -> *model.Host, *model.Service, or the system
	rules  *ignore.Rules
}

// NewModelReader creates a reader that populates system as it consumes
// the stream.
func NewModelReader(system *model.IoTSystem) *ModelReader {
	return &ModelReader{system: system, byID: map[string]any{}}
}

// ReadAll consumes every JSON-lines object from r, applying it to the
// reader's system. Returns the ignore-rule set the stream carried, if
// any.
func (mr *ModelReader) ReadAll(r io.Reader) (*ignore.Rules, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := mr.readOne(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.KindParse, "reading model stream")
	}
	return mr.rules, nil
}

func (mr *ModelReader) readOne(line []byte) error {
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		return errors.Wrapf(err, errors.KindParse, "decoding model object")
	}
	id := str(m, "id")
	typ := str(m, "type")
	switch typ {
	case "system":
		mr.readSystemFields(m)
		mr.byID[id] = mr.system
	case "network":
		return mr.readNetwork(m)
	case "host":
		return mr.readHost(m, id)
	case "service":
		return mr.readService(m, id)
	case "connection":
		return mr.readConnection(m)
	case "sw", "cookies", "component":
		return mr.readComponent(m, typ)
	case "online-resource":
		mr.system.OnlineResources = append(mr.system.OnlineResources, model.OnlineResource{
			Name: str(m, "name"), URL: str(m, "url"), Keywords: stringsOf(m["keywords"]),
		})
	case "ignore-rules":
		mr.readIgnoreRules(m)
	default:
		return errors.Errorf(errors.KindParse, "unknown model object type %q", typ)
	}
	return nil
}

func (mr *ModelReader) readSystemFields(m map[string]any) {
	if v, ok := m["properties"].(map[string]any); ok {
		for k, val := range parsePropsWire(v) {
			mr.system.SetProperty(k, val)
		}
	}
}

func (mr *ModelReader) readNetwork(m map[string]any) error {
	n := address.Network{Name: str(m, "name")}
	if p := str(m, "prefix"); p != "" {
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return errors.Wrapf(err, errors.KindParse, "parsing network prefix %q", p)
		}
		n.Prefix = prefix
	}
	switch parent := mr.byID[str(m, "at")].(type) {
	case *model.IoTSystem:
		parent.Networks = append(parent.Networks, n)
	case *model.Host:
		parent.Networks = append(parent.Networks, n)
	}
	return nil
}

func (mr *ModelReader) readHost(m map[string]any, id string) error {
	h := model.NewHost(mr.system, str(m, "name"), parseHostTypeWire(str(m, "host_type")))
	mr.applyAddressableFields(&h.AddressableBase, m)
	for _, a := range stringsOf(m["addresses"]) {
		addr, err := address.ParseEndpoint(a)
		if err == nil {
			h.AddAddress(addr)
		}
	}
	for _, n := range stringsOf(m["ignore_name_requests"]) {
		h.IgnoreNameRequests[n] = true
	}
	mr.system.Hosts = append(mr.system.Hosts, h)
	mr.byID[id] = h
	return nil
}

func (mr *ModelReader) applyAddressableFields(a *model.AddressableBase, m map[string]any) {
	if name := str(m, "name"); name != "" {
		a.Name = name
	}
	a.Status = parseStatusWire(str(m, "status"))
	a.HostType = parseHostTypeWire(str(m, "host_type"))
	if ea := str(m, "external_activity"); ea != "" {
		if v, ok := model.ParseExternalActivity(capitalize(ea)); ok {
			a.ExternalActivity = v
		}
	}
	if v, ok := m["properties"].(map[string]any); ok {
		for k, val := range parsePropsWire(v) {
			a.SetProperty(k, val)
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func (mr *ModelReader) readService(m map[string]any, id string) error {
	at := str(m, "at")
	host, ok := mr.byID[at].(*model.Host)
	if !ok {
		return errors.Errorf(errors.KindParse, "service references unknown host %q", at)
	}
	prot := address.ParseProtocol(str(m, "protocol"), address.TCP)
	port, _ := m["port"].(float64)
	s := host.CreateService(prot, int(port))
	mr.applyAddressableFields(&s.AddressableBase, m)
	s.ConnectionType = parseConnectionTypeWire(str(m, "con_type"))
	if b, ok := m["client_side"].(bool); ok {
		s.ClientSide = b
	}
	if b, ok := m["multicast_source"].(bool); ok {
		s.MulticastSource = b
	}
	if b, ok := m["captive_portal"].(bool); ok {
		s.CaptivePortal = b
	}
	s.Description = str(m, "description")
	mr.byID[id] = s
	return nil
}

func (mr *ModelReader) readConnection(m map[string]any) error {
	srcSeq, err := address.ParseSystemAddress(str(m, "source"))
	if err != nil {
		return err
	}
	tgtSeq, err := address.ParseSystemAddress(str(m, "target"))
	if err != nil {
		return err
	}
	srcEnt := mr.system.FindEntity(srcSeq)
	tgtEnt := mr.system.FindEntity(tgtSeq)
	src, ok1 := srcEnt.(model.Addressable)
	tgt, ok2 := tgtEnt.(model.Addressable)
	if !ok1 || !ok2 {
		return errors.Errorf(errors.KindParse, "connection endpoints not addressable")
	}
	c := mr.system.NewConnection(src, tgt)
	c.Status = parseStatusWire(str(m, "status"))
	c.Name = str(m, "name")
	if v, ok := m["properties"].(map[string]any); ok {
		for k, val := range parsePropsWire(v) {
			c.SetProperty(k, val)
		}
	}
	return nil
}

func (mr *ModelReader) readComponent(m map[string]any, typ string) error {
	at := str(m, "at")
	host, ok := mr.byID[at].(*model.Host)
	if !ok {
		return errors.Errorf(errors.KindParse, "component references unknown host %q", at)
	}
	name := str(m, "name")
	if name == "" {
		name = str(m, "long_name")
	}
	var comp model.NodeComponent
	switch typ {
	case "sw":
		sw := model.NewSoftware(host, name)
		comp = sw
	case "cookies":
		c := model.NewCookies(host)
		c.Names = stringsOf(m["names"])
		comp = c
	default:
		if ct := str(m, "component_type"); ct == "data" {
			sd := model.NewStoredData(host, name, boolOf(m["personal"]))
			comp = sd
		} else {
			comp = model.NewOS(host, name)
		}
	}
	if comp.GetStatus() != parseStatusWire(str(m, "status")) {
		comp.SetStatus(parseStatusWire(str(m, "status")))
	}
	if v, ok := m["properties"].(map[string]any); ok {
		for k, val := range parsePropsWire(v) {
			comp.SetProperty(k, val)
		}
	}
	host.Components = append(host.Components, comp)
	return nil
}

func (mr *ModelReader) readIgnoreRules(m map[string]any) {
	rules := ignore.NewRules()
	raw, _ := m["rules"].(map[string]any)
	for fileType, v := range raw {
		list, _ := v.([]any)
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rule := rules.NewRule(fileType)
			propsRaw, _ := entry["properties"].([]any)
			for _, p := range propsRaw {
				pm, ok := p.(map[string]any)
				if !ok {
					continue
				}
				rule.Properties[propKey(str(pm, "name"), pm)] = true
			}
			for _, a := range stringsOf(entry["at"]) {
				rule.At[a] = true
			}
			rule.Explanation = str(entry, "explanation")
		}
	}
	mr.rules = rules
}

func stringsOf(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}
