package metrics

import (
	"context"

	"github.com/kilianp07/gridbalance/core/events"
	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/infra/logger"
	"github.com/kilianp07/gridbalance/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// run events. It stops when the context is canceled or the bus is closed.
// The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("event-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := collect(ev, sink); err != nil {
					log.Warnf("record %T for run %s: %v", ev, ev.RunKey(), err)
				}
			}
		}
	}()
	return done
}

func collect(ev events.Event, sink coremetrics.MetricsSink) error {
	switch e := ev.(type) {
	case events.RunStarted:
		if r, ok := sink.(coremetrics.RunStartRecorder); ok {
			return r.RecordRunStart(coremetrics.RunStartEvent{
				RunID:         e.RunID,
				ControlLogic:  string(e.ControlLogic),
				OperationMode: string(e.OperationMode),
				Batteries:     e.Batteries,
				Time:          e.Time,
			})
		}
	case events.RunCompleted:
		run := RunEventFrom(e)
		if err := sink.RecordRun(run); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.BatteryRecorder); ok && len(run.Rows) > 0 {
			return r.RecordBatterySamples(coremetrics.Samples(run))
		}
	}
	return nil
}

// RunEventFrom converts a completion event into the sink representation.
func RunEventFrom(e events.RunCompleted) coremetrics.RunEvent {
	run := coremetrics.RunEvent{
		RunID:         e.RunID,
		RequestID:     e.RequestID,
		ControlLogic:  string(e.ControlLogic),
		OperationMode: string(e.OperationMode),
		Status:        string(e.Status),
		Duration:      e.Duration,
		Time:          e.Time,
	}
	if e.Err != nil {
		run.Error = e.Err.Error()
		if run.Status == "" {
			run.Status = "rejected"
		}
	}
	if e.Result != nil {
		run.Application = e.Result.Application
		run.Rows = e.Result.Rows
	}
	return run
}
