// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dns

import (
	"net"
	"net/netip"
	"testing"

	"github.com/miekg/dns"
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

func TestNewServiceRegistersMessageListener(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Server", model.Administrative)
	svc := NewService(host, false)

	require.Equal(t, 53, svc.Port)
	require.False(t, svc.CaptivePortal)
	require.Equal(t, address.DNS, system.MessageListeners[svc])
}

func TestDecodeReplyExtractsAAnswer(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn("example.com"), dns.TypeA)
	msg.Response = true
	msg.Answer = append(msg.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: dns.Fqdn("example.com"), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
		A:   net.ParseIP("93.184.216.34"),
	})
	data, err := msg.Pack()
	require.NoError(t, err)

	resolutions, err := DecodeReply(data)
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	require.Equal(t, "example.com", resolutions[0].Name.Name)
	require.Equal(t, "93.184.216.34", resolutions[0].Address.String())
}

func TestDecodeReplyIgnoresQueries(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn("example.com"), dns.TypeA)
	data, err := msg.Pack()
	require.NoError(t, err)

	resolutions, err := DecodeReply(data)
	require.NoError(t, err)
	require.Empty(t, resolutions)
}

func TestNameEventsForBuildsOneEventPerResolution(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Server", model.Administrative)
	svc := NewService(host, false)

	evidence := event.NewEvidence(event.NewSource("test"))
	ip, err := address.NewIPAddr("93.184.216.34")
	require.NoError(t, err)
	resolutions := []Resolution{{Name: address.DNSName{Name: "example.com"}, Address: ip}}

	events := NameEventsFor(evidence, svc, nil, resolutions)
	require.Len(t, events, 1)
	require.Equal(t, ip, events[0].Address)
	require.Equal(t, "example.com", events[0].Name.Name)
}
