// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/serialize"
)

func writeBatch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00meta.json"), []byte(`{"label":"capture","name":"capture-tool"}`), 0o644))

	src := event.NewSource("capture")
	hwSrc, err := address.NewHWAddr("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	hwDst, err := address.NewHWAddr("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)
	ipSrc, err := address.NewIPAddr("192.168.1.10")
	require.NoError(t, err)
	ipDst, err := address.NewIPAddr("192.168.1.20")
	require.NoError(t, err)

	flow := event.NewIPFlow(
		event.NewEvidence(src),
		address.TCP,
		event.Endpoint{HW: hwSrc, IP: ipSrc, Port: 51000},
		event.Endpoint{HW: hwDst, IP: ipDst, Port: 443},
	)
	data, err := serialize.EncodeEvent(flow, src.ID.String())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.jsonl"), append(data, '\n'), 0o644))
	return dir
}

func TestRunReportsIngestedFlow(t *testing.T) {
	dir := writeBatch(t)
	var out bytes.Buffer

	err := run([]string{"--read", dir, "--network", "192.168.1.0/24", "-s", "properties,irrelevant"}, &out)
	require.NoError(t, err)

	report := out.String()
	require.Contains(t, report, "system:")
	require.Contains(t, report, "hosts: 2")
}

func TestRunRequiresReadFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(nil, &out)
	require.Error(t, err)
}

func TestRunStatementJSONDumpsSources(t *testing.T) {
	dir := writeBatch(t)
	var out bytes.Buffer

	err := run([]string{"--read", dir, "--network", "192.168.1.0/24", "--statement-json"}, &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), `"type":"source"`)
}
