// Package optimizer schedules one or more batteries over a horizon by solving
// a mixed-integer program that minimises grid exchange.
package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/gridbalance/core/horizon"
	"github.com/kilianp07/gridbalance/core/logger"
	"github.com/kilianp07/gridbalance/core/milp"
	"github.com/kilianp07/gridbalance/core/model"
)

// checkTol is the tolerance used to verify the extracted solution.
const checkTol = 1e-5

// Input is one scheduling problem.
type Input struct {
	Horizon     *horizon.Horizon
	Batteries   []model.Battery
	Curtailment bool
}

// Outcome is the solver verdict plus the rows extracted from the solution.
// Rows is empty unless Status.HasSolution().
type Outcome struct {
	Status    model.Status
	Detail    string
	Rows      []model.ResultRow
	Objective float64
	Nodes     int
	Elapsed   time.Duration
}

// Optimizer builds and solves the scheduling model.
type Optimizer struct {
	solver milp.Solver
	log    logger.Logger
}

// New returns an Optimizer backed by solver.
func New(solver milp.Solver, log logger.Logger) *Optimizer {
	return &Optimizer{solver: solver, log: log}
}

// Schedule solves in once. Solver failures are reported through
// Outcome.Status and never returned as errors.
func (o *Optimizer) Schedule(ctx context.Context, in Input) Outcome {
	start := time.Now()
	p, l := build(in.Horizon, in.Batteries, in.Curtailment)
	o.log.Debugw("optimizer model built", map[string]any{
		"steps":     in.Horizon.Len(),
		"batteries": len(in.Batteries),
		"variables": len(p.Vars),
		"rows":      len(p.Rows),
	})

	sol, err := o.solver.Solve(ctx, p)
	out := Outcome{Status: model.Status(sol.Status), Nodes: sol.Nodes, Elapsed: time.Since(start)}
	if err != nil {
		out.Detail = err.Error()
		if sol.Status == "" {
			out.Status = model.StatusError
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			out.Status = model.StatusCancelled
		}
		o.log.Warnf("optimizer: %s after %d nodes: %v", out.Status, sol.Nodes, err)
		return out
	}
	if !out.Status.HasSolution() {
		return out
	}
	if verr := p.Check(sol.X, checkTol); verr != nil {
		o.log.Warnf("optimizer: solution check: %v", verr)
	}

	out.Rows = extract(in, l, sol.X)
	out.Objective = objective(l, sol.X)
	o.log.Infof("optimizer: %s objective=%.4f nodes=%d in %s", out.Status, out.Objective, out.Nodes, out.Elapsed)
	return out
}

func extract(in Input, l *layout, x []float64) []model.ResultRow {
	h := in.Horizon
	rows := make([]model.ResultRow, h.Len())
	for k, pt := range h.Points {
		pv := x[l.pv[k]]
		row := model.ResultRow{
			Timestamp:                pt.Timestamp,
			PNetBeforeKW:             pt.NetKW(),
			PNetAfterKW:              x[l.imp[k]] - x[l.exp[k]],
			PVForecastKW:             model.Float(pt.PGenKW),
			PVControlledKW:           model.Float(pv),
			PNetBeforeControlledPVKW: model.Float(pt.PLoadKW - pv),
			UpperBoundKW:             h.Upper[k],
			LowerBoundKW:             h.Lower[k],
			Batteries:                make([]model.BatteryOutput, len(in.Batteries)),
		}
		var total float64
		for n, b := range in.Batteries {
			bv := l.bats[n]
			power := x[bv.ch[k]] - x[bv.dis[k]]
			total += power
			row.Batteries[n] = model.BatteryOutput{
				ID:         b.ID,
				PowerKW:    power,
				SoCPercent: b.SoCPercent(x[bv.energy[k+1]] * 3600),
			}
		}
		row.PBatTotalKW = model.Float(total)
		rows[k] = row
	}
	return rows
}

// objective evaluates total import plus export plus both peak penalties.
func objective(l *layout, x []float64) float64 {
	sum := func(idx []int) float64 {
		return lo.SumBy(idx, func(i int) float64 { return x[i] })
	}
	return sum(l.imp) + sum(l.exp) + x[l.alphaImp] + x[l.alphaExp]
}
