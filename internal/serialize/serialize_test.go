// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package serialize

import (
	"encoding/json"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
)

func newTestSystem(t *testing.T) *model.IoTSystem {
	t.Helper()
	net0 := address.Network{Name: "lan", Prefix: netip.MustParsePrefix("192.168.1.0/24")}
	return model.NewIoTSystem("test", net0)
}

func TestSourceRoundTrip(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Camera", model.Device)
	system.Hosts = append(system.Hosts, host)

	src := event.NewSource("capture.pcap")
	src.Label = "lab-run-1"
	src.BaseRef = "captures/capture.pcap"

	ip, err := address.NewIPAddr("192.168.1.50")
	require.NoError(t, err)
	src.AddressMap[ip] = host

	data, err := EncodeSource(src)
	require.NoError(t, err)

	decoded, err := DecodeSource(data, system)
	require.NoError(t, err)
	require.Equal(t, src.Name, decoded.Name)
	require.Equal(t, src.Label, decoded.Label)
	require.Equal(t, src.BaseRef, decoded.BaseRef)
	require.Equal(t, host.SystemAddress().Parseable(), decoded.AddressMap[ip].SystemAddress().Parseable())
}

func TestSourceRoundTripSkipsSelfMappedAddresses(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Camera", model.Device)
	src := event.NewSource("scan")
	src.AddressMap[address.EntityTag{Tag: host.SystemAddress().Parseable()}] = host

	data, err := EncodeSource(src)
	require.NoError(t, err)

	var w sourceWire
	require.NoError(t, json.Unmarshal(data, &w))
	require.Empty(t, w.AddressMap)
}

func TestEventRoundTripIPFlow(t *testing.T) {
	system := newTestSystem(t)
	sources := map[string]*event.Source{"src-1": event.NewSource("capture")}

	hwSrc, err := address.NewHWAddr("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	hwDst, err := address.NewHWAddr("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)
	ipSrc, err := address.NewIPAddr("192.168.1.10")
	require.NoError(t, err)
	ipDst, err := address.NewIPAddr("192.168.1.20")
	require.NoError(t, err)

	flow := event.NewIPFlow(
		event.NewEvidence(sources["src-1"]),
		address.TCP,
		event.Endpoint{HW: hwSrc, IP: ipSrc, Port: 51000},
		event.Endpoint{HW: hwDst, IP: ipDst, Port: 443},
	)

	data, err := EncodeEvent(flow, "src-1")
	require.NoError(t, err)

	decoded, err := DecodeEvent(data, system, sources)
	require.NoError(t, err)

	got, ok := decoded.(*event.IPFlow)
	require.True(t, ok)
	require.Equal(t, address.TCP, got.Protocol)
	require.True(t, got.Source.HW.Equal(hwSrc))
	require.True(t, got.Source.IP.Equal(ipSrc))
	require.Equal(t, 51000, got.Source.Port)
	require.True(t, got.Target.IP.Equal(ipDst))
	require.Equal(t, 443, got.Target.Port)
}

func TestEventRoundTripPropertyEvent(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Camera", model.Device)
	system.Hosts = append(system.Hosts, host)
	sources := map[string]*event.Source{"src-1": event.NewSource("dsl")}

	evt := event.NewPropertyEvent(
		event.NewEvidence(sources["src-1"]),
		host,
		property.Expected,
		property.VerdictValue{Verdict: property.Pass, Expl: "matches declared behavior"},
	)

	data, err := EncodeEvent(evt, "src-1")
	require.NoError(t, err)

	decoded, err := DecodeEvent(data, system, sources)
	require.NoError(t, err)

	got, ok := decoded.(*event.PropertyEvent)
	require.True(t, ok)
	require.Equal(t, property.Expected.Name, got.Key.Name)
	vv, ok := got.Value.(property.VerdictValue)
	require.True(t, ok)
	require.Equal(t, property.Pass, vv.Verdict)
	require.Equal(t, host.SystemAddress().Parseable(), got.Entity.SystemAddress().Parseable())
}

func TestEventRoundTripNameEvent(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Server", model.Administrative)
	system.Hosts = append(system.Hosts, host)
	sources := map[string]*event.Source{"src-1": event.NewSource("capture")}

	name := address.DNSName{Name: "example.com"}
	ip, err := address.NewIPAddr("93.184.216.34")
	require.NoError(t, err)

	evt := event.NewNameEvent(event.NewEvidence(sources["src-1"]), host, &name, nil)
	evt.Address = ip
	evt.Peers = []event.Entity{host}

	data, err := EncodeEvent(evt, "src-1")
	require.NoError(t, err)

	decoded, err := DecodeEvent(data, system, sources)
	require.NoError(t, err)

	got, ok := decoded.(*event.NameEvent)
	require.True(t, ok)
	require.Equal(t, "example.com", got.Name.Name)
	require.True(t, got.Address.(address.IPAddr).Equal(ip))
	require.Len(t, got.Peers, 1)
}

func TestDecodeEventUnknownSourceFails(t *testing.T) {
	system := newTestSystem(t)
	_, err := DecodeEvent([]byte(`{"type":"ip-flow","source-id":"missing"}`), system, map[string]*event.Source{})
	require.Error(t, err)
}
