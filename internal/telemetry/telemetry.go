// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package telemetry exposes Prometheus counters and gauges for the
// inspector/matcher/batch pipeline. Nothing in the core reads these back:
// they exist for the hosting tool's own /metrics endpoint.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"toolsaf.dev/toolsaf/internal/property"
)

// Recorder collects counters for event ingestion, matcher cache
// behavior, verdict distribution, and batch import outcomes. A nil
// *Recorder is safe to call methods on — every method is a no-op when
// the receiver is nil, so callers that don't care about metrics can pass
// one around unconditionally instead of guarding every call site.
type Recorder struct {
	eventsIngested  *prometheus.CounterVec
	matcherLookups  *prometheus.CounterVec
	verdicts        *prometheus.CounterVec
	batchFiles      *prometheus.CounterVec
	connectionCount prometheus.Gauge
	hostCount       prometheus.Gauge
}

// NewRecorder builds a Recorder with all metrics initialized to zero.
func NewRecorder() *Recorder {
	return &Recorder{
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolsaf_events_ingested_total",
			Help: "Total number of evidence events consumed by the inspector, by event kind.",
		}, []string{"kind"}),
		matcherLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolsaf_matcher_lookups_total",
			Help: "Total number of address lookups performed by the matcher engine, by outcome.",
		}, []string{"outcome"}), // "hit" (existing entity) or "miss" (new entity created)
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolsaf_verdicts_total",
			Help: "Total number of property verdicts recorded, by verdict value.",
		}, []string{"verdict"}),
		batchFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolsaf_batch_files_total",
			Help: "Total number of batch evidence files processed, by outcome.",
		}, []string{"outcome"}), // "ok" or "error"
		connectionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toolsaf_model_connections",
			Help: "Current number of connections in the model graph.",
		}),
		hostCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toolsaf_model_hosts",
			Help: "Current number of hosts in the model graph.",
		}),
	}
}

// EventIngested records one consumed event of the given kind (e.g.
// "ip-flow", "property-event").
func (r *Recorder) EventIngested(kind string) {
	if r == nil {
		return
	}
	r.eventsIngested.WithLabelValues(kind).Inc()
}

// MatcherHit records a lookup that resolved to an already-known entity.
func (r *Recorder) MatcherHit() {
	if r == nil {
		return
	}
	r.matcherLookups.WithLabelValues("hit").Inc()
}

// MatcherMiss records a lookup that had to create a new entity.
func (r *Recorder) MatcherMiss() {
	if r == nil {
		return
	}
	r.matcherLookups.WithLabelValues("miss").Inc()
}

// VerdictObserved records one property verdict being set.
func (r *Recorder) VerdictObserved(v property.Verdict) {
	if r == nil {
		return
	}
	r.verdicts.WithLabelValues(verdictLabel(v)).Inc()
}

func verdictLabel(v property.Verdict) string {
	switch v {
	case property.Pass:
		return "pass"
	case property.Fail:
		return "fail"
	case property.Ignore:
		return "ignore"
	default:
		return "incon"
	}
}

// BatchFileProcessed records one batch file's processing outcome, "ok"
// or "error".
func (r *Recorder) BatchFileProcessed(ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.batchFiles.WithLabelValues("ok").Inc()
		return
	}
	r.batchFiles.WithLabelValues("error").Inc()
}

// SetModelSize updates the host/connection gauges to the model's current
// size, as reported by the caller after a build or batch import.
func (r *Recorder) SetModelSize(hosts, connections int) {
	if r == nil {
		return
	}
	r.hostCount.Set(float64(hosts))
	r.connectionCount.Set(float64(connections))
}

// Describe implements prometheus.Collector.
func (r *Recorder) Describe(ch chan<- *prometheus.Desc) {
	r.eventsIngested.Describe(ch)
	r.matcherLookups.Describe(ch)
	r.verdicts.Describe(ch)
	r.batchFiles.Describe(ch)
	r.connectionCount.Describe(ch)
	r.hostCount.Describe(ch)
}

// Collect implements prometheus.Collector.
func (r *Recorder) Collect(ch chan<- prometheus.Metric) {
	r.eventsIngested.Collect(ch)
	r.matcherLookups.Collect(ch)
	r.verdicts.Collect(ch)
	r.batchFiles.Collect(ch)
	r.connectionCount.Collect(ch)
	r.hostCount.Collect(ch)
}

// Register registers r with the default Prometheus registry.
func (r *Recorder) Register() error {
	return prometheus.Register(r)
}
