// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package event

import (
	"fmt"

	"toolsaf.dev/toolsaf/internal/address"
)

// ServiceScan reports that endpoint offers a service, as found by a port
// scanner or similar tool (§4.1, §6.1).
type ServiceScan struct {
	base
	Endpoint    address.EndpointAddr
	ServiceName string
}

func NewServiceScan(evidence Evidence, endpoint address.EndpointAddr) *ServiceScan {
	return &ServiceScan{base: base{Evidence: evidence}, Endpoint: endpoint}
}

func (s *ServiceScan) ValueString() string {
	return fmt.Sprintf("scan %s (%s)", s.Endpoint, s.ServiceName)
}

// HostScan reports the complete set of service endpoints a host exposes,
// letting the inspector fail the expected check of every other relevant
// TCP server service on that host (§4.3's host_scan server-only exemption).
type HostScan struct {
	base
	Host      address.Address
	Endpoints []address.EndpointAddr
}

func NewHostScan(evidence Evidence, host address.Address, endpoints []address.EndpointAddr) *HostScan {
	return &HostScan{base: base{Evidence: evidence}, Host: host, Endpoints: endpoints}
}

func (s *HostScan) ValueString() string {
	return fmt.Sprintf("host-scan %s (%d endpoints)", s.Host, len(s.Endpoints))
}
