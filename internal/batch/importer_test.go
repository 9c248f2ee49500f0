// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package batch

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/inspector"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
	"toolsaf.dev/toolsaf/internal/serialize"
)

func newTestSystem(t *testing.T) *model.IoTSystem {
	t.Helper()
	net0 := address.Network{Name: "lan", Prefix: netip.MustParsePrefix("192.168.1.0/24")}
	return model.NewIoTSystem("test", net0)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestImportBatchRejectsNonDirectory(t *testing.T) {
	system := newTestSystem(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	writeFile(t, file, "x")

	imp := NewImporter(nil, system, nil, nil)
	_, err := imp.ImportBatch(file)
	require.Error(t, err)
}

func TestImportBatchWithoutMetaWarnsButSucceeds(t *testing.T) {
	system := newTestSystem(t)
	dir := t.TempDir()

	imp := NewImporter(nil, system, nil, nil)
	bd, err := imp.ImportBatch(dir)
	require.NoError(t, err)
	require.Equal(t, 0, imp.metaFileCount)
	require.Empty(t, bd.Meta.Label)
}

func TestImportBatchProcessesJSONLEvidence(t *testing.T) {
	system := newTestSystem(t)
	host := model.NewHost(system, "Camera", model.Device)
	system.Hosts = append(system.Hosts, host)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, metaFileName), `{"label":"capture","name":"capture-tool"}`)

	src := event.NewSource("capture")
	propEvt := event.NewPropertyEvent(
		event.NewEvidence(src), host, property.Expected,
		property.VerdictValue{Verdict: property.Pass, Expl: "seen in capture"},
	)
	data, err := serialize.EncodeEvent(propEvt, src.ID.String())
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "data.jsonl"), string(data)+"\n")

	insp := inspector.NewInspector(system, nil)
	imp := NewImporter(insp, system, &JSONLProcessor{System: system}, nil)
	bd, err := imp.ImportBatch(dir)
	require.NoError(t, err)
	require.Equal(t, 1, imp.metaFileCount)
	require.Len(t, bd.Sources, 1)
}
