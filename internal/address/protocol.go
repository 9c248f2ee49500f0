// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package address implements the address algebra used to identify hosts,
// services, and named endpoints observed by adapters and modeled entities.
package address

import "strings"

// Protocol identifies a transport or application protocol carried by a
// Flow or named by an EndpointAddress.
type Protocol string

// Protocol constants. AnyProtocol is the wildcard protocol ("").
const (
	AnyProtocol Protocol = ""
	ARP      Protocol = "arp"
	DNS      Protocol = "dns"
	DHCP     Protocol = "dhcp"
	EAPOL    Protocol = "eapol"
	Ethernet Protocol = "eth"
	FTP      Protocol = "ftp"
	HTTP     Protocol = "http"
	ICMP     Protocol = "icmp"
	TCP      Protocol = "tcp"
	IP       Protocol = "ip"
	SSH      Protocol = "ssh"
	TLS      Protocol = "tls"
	UDP      Protocol = "udp"
	NTP      Protocol = "ntp"
	MQTT     Protocol = "mqtt"
	BLE      Protocol = "ble"
	Other    Protocol = "other"
)

// ParseProtocol looks up a protocol by its wire name, returning def if not
// recognized.
func ParseProtocol(name string, def Protocol) Protocol {
	if p, ok := lookupProtocol(strings.ToLower(name)); ok {
		return p
	}
	return def
}

func lookupProtocol(name string) (Protocol, bool) {
	switch Protocol(name) {
	case AnyProtocol, ARP, DNS, DHCP, EAPOL, Ethernet, FTP, HTTP, ICMP, TCP, IP, SSH, TLS, UDP, NTP, MQTT, BLE, Other:
		return Protocol(name), true
	default:
		return AnyProtocol, false
	}
}
