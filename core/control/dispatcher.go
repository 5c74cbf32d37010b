// Package control selects the dispatch strategy for a request and runs it.
// Requests are resolved once into a Strategy; the rule-based strategies
// drive the greedy controller while the optimization strategy invokes the
// MILP scheduler over the whole horizon.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/gridbalance/core/horizon"
	"github.com/kilianp07/gridbalance/core/logger"
	"github.com/kilianp07/gridbalance/core/model"
	"github.com/kilianp07/gridbalance/core/optimizer"
	"github.com/kilianp07/gridbalance/core/rulebased"
)

// Scheduler runs the optimization strategy.
type Scheduler interface {
	Schedule(ctx context.Context, in optimizer.Input) optimizer.Outcome
}

// Dispatcher routes requests to the strategy they select.
type Dispatcher struct {
	scheduler Scheduler
	location  horizon.Location
	log       logger.Logger
}

// NewDispatcher returns a Dispatcher. loc is used to derive the default
// day end.
func NewDispatcher(s Scheduler, loc horizon.Location, log logger.Logger) *Dispatcher {
	return &Dispatcher{scheduler: s, location: loc, log: log}
}

// Dispatch validates req and runs the selected strategy. Validation and
// configuration problems are returned as errors; solver outcomes, including
// infeasibility, are reported through Result.Status.
func (d *Dispatcher) Dispatch(ctx context.Context, req model.Request) (model.Result, error) {
	start := time.Now()
	res := model.NewResult(req)
	if err := req.Validate(); err != nil {
		return res, err
	}
	strat, err := Resolve(req.ControlLogic, req.OperationMode)
	if err != nil {
		return res, err
	}
	bats, err := req.NormalizedBatteries()
	if err != nil {
		return res, err
	}
	if len(bats) > 1 && !strat.Capabilities.Has(CapMultiBattery) {
		return res, &ConfigurationError{Logic: req.ControlLogic, Mode: req.OperationMode, Reason: reasonMultipleAssets}
	}
	for _, in := range strat.ignored(req) {
		ignoredInputs.WithLabelValues(strat.Kind.String(), in).Inc()
		d.log.Warnf("control: %s ignores %s in request %q", strat.Kind, in, req.ID)
	}

	switch strat.Kind {
	case RuleScheduling:
		h, err := horizon.Build(req, d.location)
		if err != nil {
			return res, err
		}
		res.Rows = rulebased.ScheduleRows(bats[0], h.Points, h.Step)
		res.Status = model.StatusOK
	case RuleNearRealTime:
		res.Rows = []model.ResultRow{rulebased.NearRealTime(bats[0], *req.Measurement)}
		res.Status = model.StatusOK
	case OptimizationScheduling:
		h, err := horizon.Build(req, d.location)
		if err != nil {
			return res, err
		}
		out := d.scheduler.Schedule(ctx, optimizer.Input{Horizon: h, Batteries: bats, Curtailment: req.PVCurtailment()})
		solverNodes.Observe(float64(out.Nodes))
		res.Status, res.StatusDetail, res.Rows = out.Status, out.Detail, out.Rows
	default:
		return res, fmt.Errorf("control: unhandled strategy %s", strat.Kind)
	}

	requestsTotal.WithLabelValues(strat.Kind.String(), string(res.Status)).Inc()
	requestDuration.WithLabelValues(strat.Kind.String()).Observe(time.Since(start).Seconds())
	d.log.Debugw("control request dispatched", map[string]any{
		"id":       req.ID,
		"strategy": strat.Kind.String(),
		"status":   string(res.Status),
		"rows":     len(res.Rows),
	})
	return res, nil
}
