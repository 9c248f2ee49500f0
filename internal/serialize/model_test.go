// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package serialize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/ignore"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
)

func TestModelRoundTripHostServiceComponent(t *testing.T) {
	system := newTestSystem(t)

	cam := model.NewHost(system, "Camera", model.Device)
	ip, err := address.NewIPAddr("192.168.1.50")
	require.NoError(t, err)
	cam.AddAddress(ip)
	cam.Status = model.Expected
	cam.SetProperty(property.Expected, property.ExpectedValue(property.Pass))
	system.Hosts = append(system.Hosts, cam)

	svc := cam.CreateService(address.TCP, 443)
	svc.Status = model.Expected
	svc.Description = "HTTPS management UI"

	cam.Components = append(cam.Components, model.NewSoftware(cam, "camera-fw"))
	cookies := model.NewCookies(cam)
	cookies.Names = []string{"session", "csrf"}
	cam.Components = append(cam.Components, cookies)

	cloud := model.NewHost(system, "cloud.example.com", model.Remote)
	system.Hosts = append(system.Hosts, cloud)
	conn := system.NewConnection(cam, cloud)
	conn.Status = model.Expected

	system.OnlineResources = append(system.OnlineResources, model.OnlineResource{
		Name: "Vendor privacy policy", URL: "https://example.com/privacy", Keywords: []string{"privacy"},
	})

	rules := ignore.NewRules()
	rule := rules.NewRule("pcap")
	rules.Properties(property.Expected)
	rules.Because("known lab noise")

	var buf bytes.Buffer
	require.NoError(t, NewModelWriter(&buf).WriteSystem(system, rules))

	readSystem := model.NewIoTSystem("test", address.Network{Name: "lan"})
	reader := NewModelReader(readSystem)
	readRules, err := reader.ReadAll(&buf)
	require.NoError(t, err)

	require.Len(t, readSystem.Hosts, 2)
	var readCam, readCloud *model.Host
	for _, h := range readSystem.Hosts {
		switch h.Name {
		case "Camera":
			readCam = h
		case "cloud.example.com":
			readCloud = h
		}
	}
	require.NotNil(t, readCam)
	require.NotNil(t, readCloud)

	require.Equal(t, model.Device, readCam.HostType)
	require.Equal(t, model.Expected, readCam.Status)
	require.Contains(t, readCam.GetAddresses(), address.Address(ip))
	vv, ok := readCam.GetProperty(property.Expected)
	require.True(t, ok)
	require.Equal(t, property.Pass, vv.(property.VerdictValue).Verdict)

	require.Len(t, readCam.Services, 1)
	readSvc := readCam.Services[0]
	require.Equal(t, address.TCP, readSvc.Protocol)
	require.Equal(t, 443, readSvc.Port)
	require.Equal(t, "HTTPS management UI", readSvc.Description)

	require.Len(t, readCam.Components, 2)
	var sawSoftware, sawCookies bool
	for _, c := range readCam.Components {
		switch v := c.(type) {
		case *model.Software:
			sawSoftware = true
			require.Equal(t, "camera-fw", v.ConceptName())
		case *model.Cookies:
			sawCookies = true
			require.ElementsMatch(t, []string{"session", "csrf"}, v.Names)
		}
	}
	require.True(t, sawSoftware)
	require.True(t, sawCookies)

	require.Equal(t, model.Remote, readCloud.HostType)

	readConns := readSystem.GetConnections()
	require.Len(t, readConns, 1)
	require.Equal(t, readCam.SystemAddress().Parseable(), readConns[0].Source.SystemAddress().Parseable())
	require.Equal(t, readCloud.SystemAddress().Parseable(), readConns[0].Target.SystemAddress().Parseable())
	require.Equal(t, model.Expected, readConns[0].Status)

	require.Len(t, readSystem.OnlineResources, 1)
	require.Equal(t, "Vendor privacy policy", readSystem.OnlineResources[0].Name)
	require.Equal(t, "https://example.com/privacy", readSystem.OnlineResources[0].URL)

	require.NotNil(t, readRules)
	byType := readRules.ByFileType()
	require.Contains(t, byType, "pcap")
	require.Len(t, byType["pcap"], 1)
	require.Equal(t, "known lab noise", byType["pcap"][0].Explanation)
	require.True(t, byType["pcap"][0].Properties[property.Expected])

	_ = rule
}

func TestModelRoundTripNetworkPrefix(t *testing.T) {
	system := newTestSystem(t)

	var buf bytes.Buffer
	require.NoError(t, NewModelWriter(&buf).WriteSystem(system, nil))

	readSystem := model.NewIoTSystem("test", address.Network{Name: "placeholder"})
	readSystem.Networks = nil
	reader := NewModelReader(readSystem)
	rules, err := reader.ReadAll(&buf)
	require.NoError(t, err)
	require.Nil(t, rules)

	require.Len(t, readSystem.Networks, 1)
	require.Equal(t, "lan", readSystem.Networks[0].Name)
	require.True(t, readSystem.Networks[0].Prefix.IsValid())
	require.Equal(t, "192.168.1.0/24", readSystem.Networks[0].Prefix.String())
}
