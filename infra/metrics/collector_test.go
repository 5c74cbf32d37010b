package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridbalance/core/events"
	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/core/model"
	"github.com/kilianp07/gridbalance/internal/eventbus"
)

type captureSink struct {
	mu      sync.Mutex
	runs    []coremetrics.RunEvent
	starts  []coremetrics.RunStartEvent
	samples []coremetrics.BatterySample
}

func (c *captureSink) RecordRun(ev coremetrics.RunEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, ev)
	return nil
}

func (c *captureSink) RecordRunStart(ev coremetrics.RunStartEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts = append(c.starts, ev)
	return nil
}

func (c *captureSink) RecordBatterySamples(s []coremetrics.BatterySample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s...)
	return nil
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New[events.Event]()
	sink := &captureSink{}
	done := StartEventCollector(context.Background(), bus, sink)

	ev := sampleRun()
	res := &model.Result{Application: "site-a", Rows: ev.Rows}
	bus.Publish(events.RunStarted{RunID: "run-1", ControlLogic: model.OptimizationBased, OperationMode: model.Scheduling, Batteries: 1})
	bus.Publish(events.RunCompleted{
		RunID:         "run-1",
		ControlLogic:  model.OptimizationBased,
		OperationMode: model.Scheduling,
		Status:        model.StatusOptimal,
		Duration:      time.Millisecond,
		Result:        res,
	})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop after bus close")
	}
	require.Len(t, sink.starts, 1)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "optimal", sink.runs[0].Status)
	assert.Equal(t, "site-a", sink.runs[0].Application)
	assert.Len(t, sink.samples, 2)
}

func TestStartEventCollector_ContextCancel(t *testing.T) {
	bus := eventbus.New[events.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, coremetrics.NopSink{})
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop on cancel")
	}
}

func TestStartEventCollector_NilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{})
	_, open := <-done
	assert.False(t, open)
}

func TestRunEventFrom_Rejected(t *testing.T) {
	run := RunEventFrom(events.RunCompleted{RunID: "r", Err: errors.New("bad battery")})
	assert.Equal(t, "rejected", run.Status)
	assert.Equal(t, "bad battery", run.Error)
	assert.Empty(t, run.Rows)
}
