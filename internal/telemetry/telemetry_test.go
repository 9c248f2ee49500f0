// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"toolsaf.dev/toolsaf/internal/property"
)

func TestRecorderCountsEvents(t *testing.T) {
	r := NewRecorder()
	r.EventIngested("ip-flow")
	r.EventIngested("ip-flow")
	r.EventIngested("name-event")

	require.Equal(t, 2.0, testutil.ToFloat64(r.eventsIngested.WithLabelValues("ip-flow")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.eventsIngested.WithLabelValues("name-event")))
}

func TestRecorderCountsMatcherOutcomes(t *testing.T) {
	r := NewRecorder()
	r.MatcherHit()
	r.MatcherHit()
	r.MatcherMiss()

	require.Equal(t, 2.0, testutil.ToFloat64(r.matcherLookups.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.matcherLookups.WithLabelValues("miss")))
}

func TestRecorderCountsVerdicts(t *testing.T) {
	r := NewRecorder()
	r.VerdictObserved(property.Pass)
	r.VerdictObserved(property.Fail)
	r.VerdictObserved(property.Pass)

	require.Equal(t, 2.0, testutil.ToFloat64(r.verdicts.WithLabelValues("pass")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.verdicts.WithLabelValues("fail")))
}

func TestRecorderSetsModelSize(t *testing.T) {
	r := NewRecorder()
	r.SetModelSize(3, 7)

	require.Equal(t, 3.0, testutil.ToFloat64(r.hostCount))
	require.Equal(t, 7.0, testutil.ToFloat64(r.connectionCount))
}

func TestNilRecorderIsNoOp(t *testing.T) {
	var r *Recorder
	r.EventIngested("ip-flow")
	r.MatcherHit()
	r.MatcherMiss()
	r.VerdictObserved(property.Pass)
	r.BatchFileProcessed(true)
	r.SetModelSize(1, 1)
}
