// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
)

func newAddressTestSystem(t *testing.T) *IoTSystem {
	t.Helper()
	net0 := address.Network{Name: "lan", Prefix: netip.MustParsePrefix("192.168.1.0/24")}
	return NewIoTSystem("test-system", net0)
}

// A host's system address round-trips through FindEntity: Parseable()
// produces a string ParseSystemAddress can read back into the same
// sequence, which FindEntity resolves to the original host.
func TestHostSystemAddressRoundTripsThroughFindEntity(t *testing.T) {
	system := newAddressTestSystem(t)
	host := NewHost(system, "Camera", Device)
	system.Hosts = append(system.Hosts, host)

	parseable := host.SystemAddress().Parseable()
	seq, err := address.ParseSystemAddress(parseable)
	require.NoError(t, err)

	found := system.FindEntity(seq)
	require.Same(t, host, found)
}

func TestServiceSystemAddressRoundTripsThroughFindEntity(t *testing.T) {
	system := newAddressTestSystem(t)
	host := NewHost(system, "Camera", Device)
	system.Hosts = append(system.Hosts, host)
	svc := host.CreateService(address.TCP, 443)

	seq, err := address.ParseSystemAddress(svc.SystemAddress().Parseable())
	require.NoError(t, err)

	found := system.FindEntity(seq)
	require.Same(t, svc, found)
}

func TestComponentSystemAddressRoundTripsThroughFindEntity(t *testing.T) {
	system := newAddressTestSystem(t)
	host := NewHost(system, "Camera", Device)
	system.Hosts = append(system.Hosts, host)
	sw := NewSoftware(host, "firmware")
	host.Components = append(host.Components, sw)

	seq, err := address.ParseSystemAddress(sw.SystemAddress().Parseable())
	require.NoError(t, err)

	found := system.FindEntity(seq)
	require.Same(t, Entity(sw), found)
}

// The system's own address resolves to itself, the degenerate case
// FindEntity must handle before it even looks at a host.
func TestSystemSystemAddressResolvesToSystem(t *testing.T) {
	system := newAddressTestSystem(t)

	seq, err := address.ParseSystemAddress(system.SystemAddress().Parseable())
	require.NoError(t, err)

	found := system.FindEntity(seq)
	require.Same(t, system, found)
}

func TestFindEntityRejectsWrongSystemTag(t *testing.T) {
	system := newAddressTestSystem(t)
	host := NewHost(system, "Camera", Device)
	system.Hosts = append(system.Hosts, host)

	seq, err := address.ParseSystemAddress("other-system&Camera")
	require.NoError(t, err)
	require.Nil(t, system.FindEntity(seq))
}
