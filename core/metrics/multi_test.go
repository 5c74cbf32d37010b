package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridbalance/core/model"
)

type recordSink struct {
	runs    int
	starts  int
	samples int
	err     error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordRunStart(RunStartEvent) error {
	r.starts++
	return nil
}

func (r *recordSink) RecordBatterySamples(s []BatterySample) error {
	r.samples += len(s)
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordRun(RunEvent{}))
	require.NoError(t, m.RecordRunStart(RunStartEvent{}))
	require.NoError(t, m.RecordBatterySamples(make([]BatterySample, 3)))
	assert.Equal(t, 1, s1.runs)
	assert.Equal(t, 1, s1.starts)
	assert.Equal(t, 3, s1.samples)
	assert.Equal(t, 1, s2.runs)
}

func TestMultiSink_FirstError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &runOnly{}
	err := NewMultiSink(s1, s2).RecordRun(RunEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s2.runs)
}

func rows() []model.ResultRow {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return []model.ResultRow{
		{Timestamp: t0, PNetAfterKW: 4, Batteries: []model.BatteryOutput{{ID: "a", PowerKW: 2, SoCPercent: 55}}},
		{Timestamp: t0.Add(15 * time.Minute), PNetAfterKW: -2, Batteries: []model.BatteryOutput{{ID: "a", PowerKW: -1, SoCPercent: 52.5}}},
	}
}

func TestRunEventGridEnergy(t *testing.T) {
	ev := RunEvent{Rows: rows()}
	assert.InDelta(t, 0.25, ev.StepHours(), 1e-12)
	imp, exp := ev.GridEnergy()
	assert.InDelta(t, 1.0, imp, 1e-12)
	assert.InDelta(t, 0.5, exp, 1e-12)
	assert.InDelta(t, 4.0, ev.PeakImportKW(), 1e-12)

	single := RunEvent{Rows: rows()[:1]}
	assert.Zero(t, single.StepHours())
}

func TestSamples(t *testing.T) {
	s := Samples(RunEvent{RunID: "r1", Rows: rows()})
	require.Len(t, s, 2)
	assert.Equal(t, "r1", s[1].RunID)
	assert.Equal(t, "a", s[1].BatteryID)
	assert.Equal(t, -1.0, s[1].PowerKW)
	assert.Equal(t, 0.25, s[1].StepHours)
}
