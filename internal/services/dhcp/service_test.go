// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dhcp

import (
	"net"
	"net/netip"
	"testing"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

func newTestSystem(t *testing.T) *model.IoTSystem {
	t.Helper()
	net0 := address.Network{Name: "lan", Prefix: netip.MustParsePrefix("192.168.1.0/24")}
	return model.NewIoTSystem("test", net0)
}

func TestNewServiceDeclaresUDP67(t *testing.T) {
	system := newTestSystem(t)
	server := model.NewHost(system, "Server", model.Administrative)
	svc := NewService(server)

	require.Equal(t, address.UDP, svc.Protocol)
	require.Equal(t, 67, svc.Port)
	require.Equal(t, model.Expected, svc.Status)
	require.Len(t, server.Services, 1)
}

func TestOnConnectionLearnsClientIP(t *testing.T) {
	system := newTestSystem(t)
	server := model.NewHost(system, "Server", model.Administrative)
	svc := NewService(server)
	client := model.NewHost(system, "Client", model.Device)

	conn := model.NewConnection(svc, client)

	serverIP, err := address.NewIPAddr("192.168.1.1")
	require.NoError(t, err)
	clientIP, err := address.NewIPAddr("192.168.1.50")
	require.NoError(t, err)

	flow := event.NewIPFlow(event.NewEvidence(event.NewSource("test")), address.UDP,
		event.Endpoint{IP: serverIP, Port: 67}, event.Endpoint{IP: clientIP, Port: 68})

	svc.OnConnection(conn, flow, false)

	require.Len(t, client.Addresses, 1)
	require.Equal(t, address.Address(clientIP), client.Addresses[0])
}

func TestOnConnectionIgnoresNonLeaseTraffic(t *testing.T) {
	system := newTestSystem(t)
	server := model.NewHost(system, "Server", model.Administrative)
	svc := NewService(server)
	client := model.NewHost(system, "Client", model.Device)
	conn := model.NewConnection(svc, client)

	ip, err := address.NewIPAddr("192.168.1.1")
	require.NoError(t, err)
	flow := event.NewIPFlow(event.NewEvidence(event.NewSource("test")), address.UDP,
		event.Endpoint{IP: ip, Port: 53}, event.Endpoint{IP: ip, Port: 12345})

	svc.OnConnection(conn, flow, false)
	require.Empty(t, client.Addresses)
}

func TestDecodeReply(t *testing.T) {
	leased := net.ParseIP("192.168.1.77").To4()
	msg, err := dhcpv4.New(
		dhcpv4.WithMessageType(dhcpv4.MessageTypeAck),
		dhcpv4.WithYourIP(leased),
	)
	require.NoError(t, err)

	data, err := msg.ToBytes()
	require.NoError(t, err)

	ip, ok, err := DecodeReply(data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "192.168.1.77", ip.String())
}

func TestDecodeReplyIgnoresDiscover(t *testing.T) {
	msg, err := dhcpv4.New(dhcpv4.WithMessageType(dhcpv4.MessageTypeDiscover))
	require.NoError(t, err)
	data, err := msg.ToBytes()
	require.NoError(t, err)

	_, ok, err := DecodeReply(data)
	require.NoError(t, err)
	require.False(t, ok)
}
