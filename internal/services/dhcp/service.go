// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dhcp declares the model-graph behavior of a DHCP server service:
// it always matches UDP/67 traffic regardless of address, and learns a
// client's leased IP address from the server's own reply traffic
// (§4.7, services.py's DHCPService).
package dhcp

import (
	"github.com/insomniacslk/dhcp/dhcpv4"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
)

// NewService declares an Expected DHCP service on host, the way a model
// builder statement would: any traffic to UDP/67 matches it regardless of
// source, and a server reply (source port 67, target port 68) teaches the
// system its recipient's leased IP address (services.py's DHCPService).
func NewService(host *model.Host) *model.Service {
	s := &model.Service{
		AddressableBase: model.AddressableBase{
			Base:             model.NewBase(host.FreeChildName("DHCP")),
			HostType:         model.Administrative,
			ExternalActivity: model.Passive,
			Parent:           host,
			System:           host.System,
		},
		Protocol:       address.UDP,
		Port:           67,
		Description:    "DHCP service",
		ConnectionType: model.ConnectionAdministrative,
	}
	s.Addresses = []address.Address{address.AnyEndpoint(address.UDP, 67)}
	s.OnConnection = onConnection
	host.Services = append(host.Services, s)
	return s
}

// onConnection learns the client's leased IP from the server's reply
// traffic: a reply flow sourced from UDP/67 targeting UDP/68 carries the
// offered address as its target IP. services.py calls new_connection only
// on the connection's source (server) side.
func onConnection(conn *model.Connection, flow event.Flow, target bool) {
	if target {
		return
	}
	if flow.Port(false) != 67 || flow.Port(true) != 68 {
		return
	}
	stack := flow.Stack(true)
	if len(stack) == 0 {
		return
	}
	ip, ok := stack[0].AsIP()
	if !ok {
		return
	}
	client := conn.Target.GetParentHost()
	if client == nil {
		return
	}
	client.System.LearnIPAddress(client, ip)
}

// DecodeReply parses a raw DHCPv4 reply packet and returns the leased
// address it offers, for batch adapters reconstructing connection state
// from a capture's raw DHCP bytes rather than live traffic.
func DecodeReply(data []byte) (address.IPAddr, bool, error) {
	msg, err := dhcpv4.FromBytes(data)
	if err != nil {
		return address.IPAddr{}, false, errors.Wrapf(err, errors.KindParse, "decoding DHCPv4 packet")
	}
	switch msg.MessageType() {
	case dhcpv4.MessageTypeOffer, dhcpv4.MessageTypeAck:
	default:
		return address.IPAddr{}, false, nil
	}
	if msg.YourIPAddr == nil || msg.YourIPAddr.IsUnspecified() {
		return address.IPAddr{}, false, nil
	}
	ip, err := address.NewIPAddr(msg.YourIPAddr.String())
	if err != nil {
		return address.IPAddr{}, false, err
	}
	return ip, true, nil
}
