package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/core/model"
)

func sampleRun() coremetrics.RunEvent {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return coremetrics.RunEvent{
		RunID:         "run-1",
		RequestID:     "req-1",
		Application:   "site-a",
		ControlLogic:  "optimization_based",
		OperationMode: "scheduling",
		Status:        "optimal",
		Duration:      40 * time.Millisecond,
		Time:          t0,
		Rows: []model.ResultRow{
			{Timestamp: t0, PNetAfterKW: 2, Batteries: []model.BatteryOutput{{ID: "b1", PowerKW: 4, SoCPercent: 60}}},
			{Timestamp: t0.Add(30 * time.Minute), PNetAfterKW: -1, Batteries: []model.BatteryOutput{{ID: "b1", PowerKW: -2, SoCPercent: 50}}},
		},
	}
}

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordRunStart(coremetrics.RunStartEvent{RunID: "run-1"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.inFlight))

	ev := sampleRun()
	require.NoError(t, s.RecordRun(ev))
	require.NoError(t, s.RecordBatterySamples(coremetrics.Samples(ev)))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.runs.WithLabelValues("optimization_based", "scheduling", "optimal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.inFlight))
	assert.InDelta(t, 1.0, testutil.ToFloat64(s.grid.WithLabelValues("site-a", "import")), 1e-12)
	assert.InDelta(t, 0.5, testutil.ToFloat64(s.grid.WithLabelValues("site-a", "export")), 1e-12)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.peak.WithLabelValues("site-a")))
	assert.Equal(t, 50.0, testutil.ToFloat64(s.soc.WithLabelValues("b1")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.duration))
}

func TestPromSink_RejectedRunHasNoEnergy(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(coremetrics.RunEvent{ControlLogic: "rule_based", OperationMode: "scheduling", Status: "rejected"}))
	assert.Equal(t, 0, testutil.CollectAndCount(s.grid))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, a.RecordRun(coremetrics.RunEvent{ControlLogic: "x", OperationMode: "y", Status: "ok"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.runs.WithLabelValues("x", "y", "ok")))
}
