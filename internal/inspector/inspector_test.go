// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package inspector

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
	"toolsaf.dev/toolsaf/internal/telemetry"
)

func newTestSystem(t *testing.T) *model.IoTSystem {
	t.Helper()
	net0 := address.Network{Name: "lan", Prefix: netip.MustParsePrefix("192.168.1.0/24")}
	return model.NewIoTSystem("test", net0)
}

func mustHW(t *testing.T, s string) address.HWAddr {
	t.Helper()
	hw, err := address.NewHWAddr(s)
	require.NoError(t, err)
	return hw
}

func mustIP(t *testing.T, s string) address.IPAddr {
	t.Helper()
	ip, err := address.NewIPAddr(s)
	require.NoError(t, err)
	return ip
}

// Connection against a fresh system synthesizes both endpoint hosts as
// Unexpected (with unlimited external activity), which the status cascade
// then promotes to External; the test checks that the connection is no
// longer a Placeholder and that both hosts were added to the system.
func TestInspectorConnectionSynthesizesUnexpectedEntities(t *testing.T) {
	system := newTestSystem(t)
	insp := NewInspector(system, nil)

	rec := telemetry.NewRecorder()
	insp.SetTelemetry(rec)

	src := event.NewSource("capture")
	flow := event.NewIPFlow(
		event.NewEvidence(src),
		address.TCP,
		event.Endpoint{HW: mustHW(t, "aa:bb:cc:dd:ee:01"), IP: mustIP(t, "192.168.1.10"), Port: 51000},
		event.Endpoint{HW: mustHW(t, "aa:bb:cc:dd:ee:02"), IP: mustIP(t, "192.168.1.20"), Port: 443},
	)

	ent, err := insp.Connection(flow)
	require.NoError(t, err)
	conn, ok := ent.(*model.Connection)
	require.True(t, ok)
	require.NotEqual(t, model.Placeholder, conn.Status)
	require.Len(t, system.Hosts, 2)
}

// A PropertyUpdate on a Placeholder entity is a no-op: properties never
// attach until the matcher promotes the entity out of Placeholder.
func TestInspectorPropertyUpdateIgnoresPlaceholder(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Camera", model.Device)
	system.Hosts = append(system.Hosts, host)
	host.Status = model.Placeholder
	insp := NewInspector(system, nil)

	src := event.NewSource("dsl")
	evt := event.NewPropertyEvent(
		event.NewEvidence(src), host, property.Expected,
		property.VerdictValue{Verdict: property.Pass},
	)

	ent, err := insp.PropertyUpdate(evt)
	require.NoError(t, err)
	require.Equal(t, host, ent)
	_, has := host.GetProperty(property.Expected)
	require.False(t, has)
}

// PropertyUpdate on an Expected entity sets the property and is visible
// through GetProperty afterward.
func TestInspectorPropertyUpdateAppliesToExpectedEntity(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Camera", model.Device)
	host.Status = model.Expected
	system.Hosts = append(system.Hosts, host)
	host.SetProperty(property.Expected, property.ExpectedValue(property.Pass))
	insp := NewInspector(system, nil)

	src := event.NewSource("dsl")
	evt := event.NewPropertyEvent(
		event.NewEvidence(src), host, property.Expected,
		property.VerdictValue{Verdict: property.Pass, Expl: "matches declared behavior"},
	)

	_, err := insp.PropertyUpdate(evt)
	require.NoError(t, err)

	val, ok := host.GetProperty(property.Expected)
	require.True(t, ok)
	vv, ok := val.(property.VerdictValue)
	require.True(t, ok)
	require.Equal(t, property.Pass, vv.Verdict)
}
