// Package rulebased implements the greedy single-battery controller. The
// battery covers the net demand as far as its power rating and SoC window
// allow; the remainder is imported or exported.
package rulebased

import (
	"math"
	"time"

	"github.com/kilianp07/gridbalance/core/model"
)

// State is the battery state threaded between steps.
type State struct {
	EnergyKWs float64
}

// InitialState returns the state at the start of the horizon.
func InitialState(b model.Battery) State {
	return State{EnergyKWs: b.InitialEnergyKWs()}
}

// Outcome is the result of a single control step.
type Outcome struct {
	NetBeforeKW float64
	// PowerKW is the grid-side battery power: positive charges, negative
	// discharges.
	PowerKW      float64
	ImportKW     float64
	ExportKW     float64
	EnergyBefore float64
	EnergyAfter  float64
}

// NetAfterKW is the residual grid exchange, import minus export.
func (o Outcome) NetAfterKW() float64 { return o.ImportKW - o.ExportKW }

// Step dispatches one timestep. A positive netKW is a deficit the battery
// tries to cover by discharging; a negative netKW is a surplus it tries to
// absorb. Every input yields an outcome.
func Step(b model.Battery, s State, netKW, dtSeconds float64) (Outcome, State) {
	out := Outcome{NetBeforeKW: netKW, EnergyBefore: s.EnergyKWs}
	e := s.EnergyKWs
	next := e

	switch {
	case netKW > 0:
		dis, imp := netKW, 0.0
		if b.IsHousehold() {
			dis, imp = 0, netKW
		}
		if dis > b.PDisMaxKW {
			imp += dis - b.PDisMaxKW
			dis = b.PDisMaxKW
		}
		next = e - b.DischargeEnergy(dis, dtSeconds)
		if next < b.MinEnergyKWs() {
			allowed := math.Max(0, (e-b.MinEnergyKWs())*b.DisEfficiency/dtSeconds)
			imp += dis - allowed
			dis = allowed
			next = e
			if allowed > 0 {
				next = b.MinEnergyKWs()
			}
		}
		out.PowerKW, out.ImportKW = -dis, imp

	case netKW < 0:
		ch, exp := -netKW, 0.0
		if ch > b.PChMaxKW {
			exp += ch - b.PChMaxKW
			ch = b.PChMaxKW
		}
		next = e + b.ChargeEnergy(ch, dtSeconds)
		if next > b.MaxEnergyKWs() {
			allowed := math.Max(0, (b.MaxEnergyKWs()-e)/(b.ChEfficiency*dtSeconds))
			exp += ch - allowed
			ch = allowed
			next = e
			if allowed > 0 {
				next = b.MaxEnergyKWs()
			}
		}
		out.PowerKW, out.ExportKW = ch, exp
	}

	out.EnergyAfter = next
	return out, State{EnergyKWs: next}
}

// Schedule folds Step over the forecast and returns one outcome per point
// plus the final state. b is not modified.
func Schedule(b model.Battery, points []model.ForecastPoint, step time.Duration) ([]Outcome, State) {
	s := InitialState(b)
	dt := step.Seconds()
	outs := make([]Outcome, len(points))
	for i, p := range points {
		outs[i], s = Step(b, s, p.NetKW(), dt)
	}
	return outs, s
}

// ScheduleRows runs Schedule and shapes the outcomes as result rows.
func ScheduleRows(b model.Battery, points []model.ForecastPoint, step time.Duration) []model.ResultRow {
	outs, _ := Schedule(b, points, step)
	rows := make([]model.ResultRow, len(outs))
	for i, o := range outs {
		rows[i] = model.ResultRow{
			Timestamp:    points[i].Timestamp,
			PNetBeforeKW: o.NetBeforeKW,
			PNetAfterKW:  o.NetAfterKW(),
			Batteries: []model.BatteryOutput{{
				ID:         b.ID,
				PowerKW:    o.PowerKW,
				SoCPercent: b.SoCPercent(o.EnergyAfter),
			}},
		}
	}
	return rows
}

// NearRealTime dispatches a single measurement. The battery compensates the
// deviation between the measured and the requested net power.
func NearRealTime(b model.Battery, m model.MeasurementRequest) model.ResultRow {
	o, _ := Step(b, InitialState(b), m.PNetMeasKW-m.PReqKW, m.DeltaTH*3600)
	return model.ResultRow{
		Timestamp:    m.Timestamp,
		PNetBeforeKW: o.NetBeforeKW,
		PNetMeasKW:   model.Float(m.PNetMeasKW),
		PNetAfterKW:  o.NetAfterKW(),
		Batteries: []model.BatteryOutput{{
			ID:                b.ID,
			PowerKW:           o.PowerKW,
			SoCPercent:        b.SoCPercent(o.EnergyAfter),
			InitialSoCPercent: model.Float(b.SoCPercent(o.EnergyBefore)),
		}},
	}
}
