// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	"strings"

	"github.com/miekg/dns"
)

// DNSName is a domain name address, e.g. learned from a DNS response or an
// mDNS/SSDP announcement (§4.7).
type DNSName struct {
	base
	Name string
}

func (d DNSName) IsGlobal() bool      { return true }
func (d DNSName) Host() Address       { return d }
func (d DNSName) ChangeHost(Address) Address { return d }
func (d DNSName) Priority() int       { return 3 }
func (d DNSName) Parseable() string   { return d.Name + "|name" }
func (d DNSName) String() string      { return d.Name }

// Equal reports whether two DNS names are identical.
func (d DNSName) Equal(other DNSName) bool { return d.Name == other.Name }

// NameOrIP returns value as an IPAddr if it parses as one, otherwise as a
// DNSName.
func NameOrIP(value string) Address {
	if ip, err := NewIPAddr(value); err == nil {
		return ip
	}
	return DNSName{Name: value}
}

// LooksLikeDNSName reports whether name has the shape of a domain name
// (contains a dot, and is not just an IP-literal's digits and dots/colons)
// and is a syntactically valid DNS name per RFC 1035 (validated with
// miekg/dns, which the DNS service already depends on).
func LooksLikeDNSName(name string) bool {
	if !strings.Contains(name, ".") {
		return false
	}
	onlyNumeric := true
	for _, c := range name {
		if c != '.' && c != ':' && (c < '0' || c > '9') {
			onlyNumeric = false
			break
		}
	}
	if onlyNumeric {
		return false
	}
	_, ok := dns.IsDomainName(name)
	return ok
}
