// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
)

func mustModelIP(t *testing.T, s string) address.IPAddr {
	t.Helper()
	ip, err := address.NewIPAddr(s)
	require.NoError(t, err)
	return ip
}

// Learning a name for an address already held by a host named after
// that address reuses and renames the host instead of creating a
// second one for the same address.
func TestLearnNamedAddressRenamesExistingHostByAddress(t *testing.T) {
	system := newAddressTestSystem(t)
	ip := mustModelIP(t, "1.0.0.2")
	existing := NewHost(system, ip.String(), Generic)
	existing.AddAddress(ip)
	system.Hosts = append(system.Hosts, existing)

	name := address.DNSName{Name: "target.org"}
	host, changed := system.LearnNamedAddress(name, ip)

	require.True(t, changed)
	require.Same(t, existing, host)
	require.Equal(t, "target.org", host.Name)
	require.Len(t, system.Hosts, 1)
	require.Contains(t, host.GetAddresses(), address.Address(ip))
	require.Contains(t, host.GetAddresses(), address.Address(name))
}

// A host not named after its address is left named as it was.
func TestLearnNamedAddressKeepsExplicitHostName(t *testing.T) {
	system := newAddressTestSystem(t)
	ip := mustModelIP(t, "1.0.0.2")
	existing := NewHost(system, "Printer", Generic)
	existing.AddAddress(ip)
	system.Hosts = append(system.Hosts, existing)

	name := address.DNSName{Name: "printer.local"}
	host, changed := system.LearnNamedAddress(name, ip)

	require.True(t, changed)
	require.Same(t, existing, host)
	require.Equal(t, "Printer", host.Name)
}

// With no existing host for either the name or the address, a new host
// is created.
func TestLearnNamedAddressCreatesHostWhenNeitherKnown(t *testing.T) {
	system := newAddressTestSystem(t)
	ip := mustModelIP(t, "1.0.0.5")
	name := address.DNSName{Name: "new-device.example"}

	host, changed := system.LearnNamedAddress(name, ip)

	require.True(t, changed)
	require.NotNil(t, host)
	require.Equal(t, "new-device.example", host.Name)
	require.Len(t, system.Hosts, 1)
}

// Re-learning a name already on record for the same address is a no-op.
func TestLearnNamedAddressIsIdempotent(t *testing.T) {
	system := newAddressTestSystem(t)
	ip := mustModelIP(t, "1.0.0.2")
	name := address.DNSName{Name: "target.org"}

	host1, changed1 := system.LearnNamedAddress(name, ip)
	require.True(t, changed1)

	host2, changed2 := system.LearnNamedAddress(name, ip)
	require.False(t, changed2)
	require.Same(t, host1, host2)
}

// When a name is already known on a tag-only placeholder host (no real
// address of its own) and the address is known on a separate host, the
// placeholder is dropped entirely and its name absorbed into the
// by-address host.
func TestLearnNamedAddressDropsTagOnlyNamedHostInFavorOfByAddressHost(t *testing.T) {
	system := newAddressTestSystem(t)
	ip := mustModelIP(t, "1.0.0.2")
	name := address.DNSName{Name: "target.org"}

	byAddr := NewHost(system, ip.String(), Generic)
	byAddr.AddAddress(ip)
	system.Hosts = append(system.Hosts, byAddr)

	named := NewHost(system, "placeholder", Generic)
	named.AddAddress(name)
	system.Hosts = append(system.Hosts, named)

	host, changed := system.LearnNamedAddress(name, ip)

	require.True(t, changed)
	require.Same(t, byAddr, host)
	require.Len(t, system.Hosts, 1)
	require.Contains(t, host.GetAddresses(), address.Address(name))
	require.Contains(t, host.GetAddresses(), address.Address(ip))
}

// When both a by-name host and a by-address host already exist, and the
// by-name host has an address of its own, the address churns from the
// by-address host to the by-name host: the latest capture wins, and at
// most one host carries the address afterward.
func TestLearnNamedAddressMovesAddressBetweenTwoExistingHosts(t *testing.T) {
	system := newAddressTestSystem(t)
	ip := mustModelIP(t, "1.0.0.2")
	otherIP := mustModelIP(t, "1.0.0.9")
	name := address.DNSName{Name: "target.org"}

	byAddr := NewHost(system, ip.String(), Generic)
	byAddr.AddAddress(ip)
	system.Hosts = append(system.Hosts, byAddr)

	named := NewHost(system, "target", Generic)
	named.AddAddress(name)
	named.AddAddress(otherIP)
	system.Hosts = append(system.Hosts, named)

	host, changed := system.LearnNamedAddress(name, ip)

	require.True(t, changed)
	require.Same(t, named, host)
	require.Len(t, system.Hosts, 2)
	require.Contains(t, host.GetAddresses(), address.Address(ip))
	require.NotContains(t, byAddr.GetAddresses(), address.Address(ip))
}
