// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command toolsaf is the CLI surface for the security-assessment core
// (spec.md §6.3): it reads one or more evidence batches against a model,
// drives them through the inspector, and reports the resulting verdicts.
// Building the model itself (the DSL surface of spec.md §6) and
// persisting results to a database are external-collaborator concerns
// and out of scope here; this binary only exercises the core's own
// packages (batch import, inspector, event log, telemetry).
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"sort"
	"strings"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/batch"
	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/eventlog"
	"toolsaf.dev/toolsaf/internal/ignore"
	"toolsaf.dev/toolsaf/internal/inspector"
	"toolsaf.dev/toolsaf/internal/logging"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/property"
	"toolsaf.dev/toolsaf/internal/serialize"
	"toolsaf.dev/toolsaf/internal/telemetry"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "toolsaf:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an errors.Kind to the process exit status spec.md §6.3
// requires: 0 on success (handled in main before exitCode is reached),
// non-zero on configuration or I/O failure.
func exitCode(err error) int {
	switch errors.GetKind(err) {
	case errors.KindConfiguration, errors.KindParse:
		return 2
	default:
		return 1
	}
}

// readDirs collects repeated --read flags (flag.Value).
type readDirs []string

func (r *readDirs) String() string { return strings.Join(*r, ",") }
func (r *readDirs) Set(v string) error {
	*r = append(*r, v)
	return nil
}

// sections is the parsed form of the "-s properties,ignored,irrelevant"
// flag: which optional report detail to include.
type sections struct {
	properties bool
	ignored    bool
	irrelevant bool
}

func parseSections(spec string) sections {
	var s sections
	for _, tok := range strings.Split(spec, ",") {
		switch strings.TrimSpace(tok) {
		case "properties":
			s.properties = true
		case "ignored":
			s.ignored = true
		case "irrelevant":
			s.irrelevant = true
		}
	}
	return s
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("toolsaf", flag.ExitOnError)
	var reads readDirs
	fs.Var(&reads, "read", "batch directory to ingest (repeatable)")
	defLoads := fs.String("def-loads", "", `label filter spec for batch adapters, e.g. "nmap,pcap" or "^nmap"`)
	statementJSON := fs.Bool("statement-json", false, "dump the model and every processed event to stdout as JSON lines")
	dbURL := fs.String("db", "", "persist events to this URL (out of scope for this core; logs and is ignored)")
	noTruncate := fs.Bool("no-truncate", false, "don't truncate long property explanations in the report")
	color := fs.Bool("color", false, "colorize the report (accepted for compatibility; not implemented)")
	sectionSpec := fs.String("s", "", "comma-separated extra report sections: properties,ignored,irrelevant")
	ignoreFile := fs.String("ignore-rules", "", "path to a YAML ignore-rules file (§4.6)")
	network := fs.String("network", "192.168.0.0/16", "default network prefix for the synthesized model")
	systemName := fs.String("name", "system", "name of the synthesized IoT system")
	syslogHost := fs.String("syslog-host", "", "mirror logs to this syslog collector instead of stderr")
	syslogPort := fs.Int("syslog-port", 514, "syslog collector port")
	syslogProtocol := fs.String("syslog-protocol", "udp", `syslog transport, "udp" or "tcp"`)
	syslogTag := fs.String("syslog-tag", "toolsaf", "syslog tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_ = color

	if *syslogHost != "" {
		cfg := logging.DefaultSyslogConfig()
		cfg.Enabled = true
		cfg.Host = *syslogHost
		cfg.Port = *syslogPort
		cfg.Protocol = *syslogProtocol
		cfg.Tag = *syslogTag
		w, err := logging.NewSyslogWriter(cfg)
		if err != nil {
			return errors.Wrapf(err, errors.KindConfiguration, "--syslog-host %q", *syslogHost)
		}
		defer w.Close()
		logging.SetHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	if *dbURL != "" {
		logging.WithComponent("cli").Warn("--db is out of scope for this core; events will not be persisted", "url", *dbURL)
	}
	if len(reads) == 0 {
		return errors.Errorf(errors.KindConfiguration, "at least one --read DIR is required")
	}

	filter, err := batch.NewLabelFilter(*defLoads)
	if err != nil {
		return errors.Wrapf(err, errors.KindConfiguration, "--def-loads %q", *defLoads)
	}
	prefix, err := netip.ParsePrefix(*network)
	if err != nil {
		return errors.Wrapf(err, errors.KindConfiguration, "--network %q", *network)
	}
	system := model.NewIoTSystem(*systemName, address.Network{Name: "default", Prefix: prefix})

	rules := ignore.NewRules()
	if *ignoreFile != "" {
		data, err := os.ReadFile(*ignoreFile)
		if err != nil {
			return errors.Wrapf(err, errors.KindConfiguration, "reading %q", *ignoreFile)
		}
		if err := rules.LoadYAML(data); err != nil {
			return errors.Wrapf(err, errors.KindConfiguration, "parsing %q", *ignoreFile)
		}
	}

	insp := inspector.NewInspector(system, rules)
	rec := telemetry.NewRecorder()
	insp.SetTelemetry(rec)
	logger := eventlog.NewEventLogger(insp)

	imp := batch.NewImporter(logger, system, &batch.JSONLProcessor{System: system}, filter)
	imp.Telemetry = rec

	var allSources []*event.Source
	for _, dir := range reads {
		bd, err := imp.ImportBatch(dir)
		if err != nil {
			return errors.Wrapf(err, errors.KindConfiguration, "importing %q", dir)
		}
		allSources = append(allSources, collectSources(bd)...)
	}

	if *statementJSON {
		if err := dumpStatement(out, system, rules, allSources, logger); err != nil {
			return err
		}
	}

	printReport(out, system, parseSections(*sectionSpec), *noTruncate)
	return nil
}

func collectSources(bd *batch.BatchData) []*event.Source {
	out := append([]*event.Source{}, bd.Sources...)
	for _, sub := range bd.SubData {
		out = append(out, collectSources(sub)...)
	}
	return out
}

// dumpStatement writes the full statement spec.md §6.3's --statement-json
// asks for: every ingested source, the model graph, and the events the
// inspector processed, as JSON lines.
func dumpStatement(w io.Writer, system *model.IoTSystem, rules *ignore.Rules, sources []*event.Source, logger *eventlog.EventLogger) error {
	for _, src := range sources {
		data, err := serialize.EncodeSource(src)
		if err != nil {
			return errors.Wrapf(err, errors.KindAdapter, "encoding source %q", src.Name)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return errors.Wrapf(err, errors.KindAdapter, "writing source %q", src.Name)
		}
	}

	if err := serialize.NewModelWriter(w).WriteSystem(system, rules); err != nil {
		return errors.Wrapf(err, errors.KindAdapter, "encoding model")
	}

	for _, lo := range logger.GetLog(nil, nil) {
		data, err := serialize.EncodeEvent(lo.Event, lo.Event.GetEvidence().Source.ID.String())
		if err != nil {
			return errors.Wrapf(err, errors.KindAdapter, "encoding event")
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return errors.Wrapf(err, errors.KindAdapter, "writing event")
		}
	}
	return nil
}

// printReport renders the aggregate system verdict and, per requested
// sections, a per-host breakdown (event_logger.py's report surface,
// reduced to what this core's own model/eventlog data supports — full
// diagram/table rendering is out of scope, §1).
func printReport(w io.Writer, system *model.IoTSystem, s sections, noTruncate bool) {
	cache := map[model.Entity]property.Verdict{}
	overall := system.GetVerdict(cache)

	fmt.Fprintf(w, "system: %s\n", system.Name)
	fmt.Fprintf(w, "overall verdict: %s\n", overall)
	fmt.Fprintf(w, "hosts: %d, connections: %d\n", len(system.Hosts), len(system.GetConnections()))

	hosts := append([]*model.Host{}, system.Hosts...)
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Name < hosts[j].Name })

	for _, h := range hosts {
		v := h.GetVerdict(cache)
		if v == property.Ignore && !s.ignored {
			continue
		}
		if h.Status == model.Placeholder && !s.irrelevant {
			continue
		}
		fmt.Fprintf(w, "  %-24s %-10s %s\n", h.Name, v, h.Status)
		if !s.properties {
			continue
		}
		for key, val := range h.Properties() {
			expl := explanationOf(val)
			if !noTruncate && len(expl) > 80 {
				expl = expl[:77] + "..."
			}
			fmt.Fprintf(w, "    %-20s %s\n", key.Name, expl)
		}
	}
}

func explanationOf(v property.Value) string {
	if vv, ok := v.(property.VerdictValue); ok {
		return fmt.Sprintf("%s: %s", vv.Verdict, vv.Expl)
	}
	return fmt.Sprintf("%v", v)
}
