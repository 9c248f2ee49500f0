// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package batch

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/logging"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/telemetry"
)

// FileProcessor consumes one data file's content, attributing whatever it
// feeds to consumer to evidence (batch_import.py's per-tool reader
// contract, `ToolAdapter.process_file`). Parsing individual tool output
// formats (pcap, nmap XML, ...) is out of scope here; the only processor
// this package ships is JSONLProcessor, reading this module's own
// serialized event batches.
type FileProcessor interface {
	ProcessFile(r io.Reader, fileName string, consumer event.Consumer, evidence event.Evidence) error
}

// BatchData is one directory's place in the import hierarchy
// (batch_import.py's BatchData).
type BatchData struct {
	Meta    *MetaInfo
	SubData []*BatchData
	Sources []*event.Source
}

// Importer walks a directory of 00meta.json-described batches, feeding
// each data file to Processor and tracking which EvidenceSources were
// built along the way (batch_import.py's BatchImporter).
type Importer struct {
	Consumer     event.Consumer
	System       *model.IoTSystem
	Filter       *LabelFilter
	Processor    FileProcessor
	LoadBaseline bool
	Telemetry    *telemetry.Recorder

	metaFileCount int
	log           *logging.Logger
}

// NewImporter builds an Importer. A nil filter includes every label.
func NewImporter(consumer event.Consumer, system *model.IoTSystem, processor FileProcessor, filter *LabelFilter) *Importer {
	if filter == nil {
		filter, _ = NewLabelFilter("")
	}
	return &Importer{
		Consumer:  consumer,
		System:    system,
		Filter:    filter,
		Processor: processor,
		log:       logging.WithComponent("batch_importer"),
	}
}

// ImportBatch imports root, which must be a directory, recursively.
func (imp *Importer) ImportBatch(root string) (*BatchData, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfiguration, "stat %q", root)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf(errors.KindConfiguration, "expected directory, got %q", root)
	}
	bd, err := imp.importDir(root, nil)
	if err != nil {
		return nil, err
	}
	if imp.metaFileCount == 0 {
		imp.log.Warn("no 00meta.json files found")
	}
	imp.Telemetry.SetModelSize(len(imp.System.Hosts), len(imp.System.GetConnections()))
	return bd, nil
}

const metaFileName = "00meta.json"

func (imp *Importer) importDir(dir string, parentMeta *MetaInfo) (*BatchData, error) {
	dirName := filepath.Base(dir)
	imp.log.Debug("scanning", "path", dir)

	metaPath := filepath.Join(dir, metaFileName)
	info, err := imp.readMeta(metaPath, dirName, parentMeta)
	if err != nil {
		return nil, err
	}
	bd := &BatchData{Meta: info}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfiguration, "reading %q", dir)
	}
	entries = filterEntries(entries)
	sort.Slice(entries, func(i, j int) bool { return lessEntry(entries[i], entries[j]) })
	if info.FileLoadOrder != nil {
		entries = sortByLoadOrder(entries, info.FileLoadOrder)
	}

	skipProcessing := !imp.Filter.Filter(info.Label)
	if info.Label == "" {
		imp.log.Info("skipping all files as no 00meta.json", "dir", dir)
	}

	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			sub, err := imp.importDir(full, info)
			if err != nil {
				return nil, err
			}
			bd.SubData = append(bd.SubData, sub)
			continue
		}
		if info.Label == "" {
			continue
		}
		if !info.DefaultInclude && !imp.Filter.included[info.Label] {
			imp.log.Debug("skipping (default=False)", "path", full)
			continue
		}
		if skipProcessing {
			imp.log.Info("skipping", "label", info.Label, "path", full)
			continue
		}
		if err := imp.processFile(full, info, bd); err != nil {
			return nil, errors.Wrapf(err, errors.KindConfiguration, "processing %q", full)
		}
	}
	return bd, nil
}

func (imp *Importer) readMeta(metaPath, dirName string, parentMeta *MetaInfo) (*MetaInfo, error) {
	fi, err := os.Stat(metaPath)
	if err != nil || fi.IsDir() {
		return NewMetaInfo("", "", parentMeta), nil
	}
	imp.metaFileCount++
	if fi.Size() == 0 {
		return NewMetaInfo(dirName, "", parentMeta), nil
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfiguration, "reading %q", metaPath)
	}
	info, err := ParseMeta(data, dirName, imp.System, parentMeta)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfiguration, "in %q", metaPath)
	}
	return info, nil
}

func (imp *Importer) processFile(path string, info *MetaInfo, bd *BatchData) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.KindConfiguration, "opening %q", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.KindConfiguration, "stat %q", path)
	}

	src := event.NewSource(info.Name)
	src.Label = info.Label
	src.BaseRef = path
	src.Timestamp = fi.ModTime().UTC()
	for addr, ent := range info.Source.AddressMap {
		src.AddressMap[addr] = ent
	}

	evidence := event.NewEvidence(src)
	if imp.Processor == nil {
		imp.log.Info("skipping unsupported file (no processor configured)", "path", path)
		return nil
	}
	if err := imp.Processor.ProcessFile(f, filepath.Base(path), imp.Consumer, evidence); err != nil {
		imp.Telemetry.BatchFileProcessed(false)
		return err
	}
	imp.Telemetry.BatchFileProcessed(true)
	bd.Sources = append(bd.Sources, src)
	return nil
}

// filterEntries drops 00meta.json itself, dotfiles, underscore-prefixed
// files, and tilde-suffixed backup files (batch_import.py's proc_list
// filter).
func filterEntries(entries []os.DirEntry) []os.DirEntry {
	out := entries[:0:0]
	for _, e := range entries {
		name := e.Name()
		if name == metaFileName {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if strings.HasSuffix(name, "~") {
			continue
		}
		out = append(out, e)
	}
	return out
}

// lessEntry sorts files before directories, then by name
// (batch_import.py's `key=lambda f: (f.is_dir(), f.name)`).
func lessEntry(a, b os.DirEntry) bool {
	if a.IsDir() != b.IsDir() {
		return !a.IsDir()
	}
	return a.Name() < b.Name()
}

// sortByLoadOrder moves entries named in order to the front, in that
// order, leaving the rest in their existing relative order
// (batch_import.py's FileMetaInfo.sort_load_order).
func sortByLoadOrder(entries []os.DirEntry, order []string) []os.DirEntry {
	byName := map[string]os.DirEntry{}
	for _, e := range entries {
		byName[e.Name()] = e
	}
	out := make([]os.DirEntry, 0, len(entries))
	for _, name := range order {
		if e, ok := byName[name]; ok {
			out = append(out, e)
			delete(byName, name)
		}
	}
	for _, e := range entries {
		if _, ok := byName[e.Name()]; ok {
			out = append(out, e)
		}
	}
	return out
}
