package metrics

import (
	"time"

	"github.com/kilianp07/gridbalance/core/model"
)

// RunEvent describes one completed control run.
type RunEvent struct {
	RunID         string
	RequestID     string
	Application   string
	ControlLogic  string
	OperationMode string
	Status        string
	Error         string
	Duration      time.Duration
	Rows          []model.ResultRow
	Time          time.Time
}

// StepHours returns the spacing of the result rows in hours, or zero when
// fewer than two rows are present.
func (e RunEvent) StepHours() float64 {
	if len(e.Rows) < 2 {
		return 0
	}
	return e.Rows[1].Timestamp.Sub(e.Rows[0].Timestamp).Hours()
}

// GridEnergy integrates the controlled net power over the rows. Import and
// export are both returned as positive kWh.
func (e RunEvent) GridEnergy() (importKWh, exportKWh float64) {
	dt := e.StepHours()
	for _, r := range e.Rows {
		if r.PNetAfterKW >= 0 {
			importKWh += r.PNetAfterKW * dt
		} else {
			exportKWh -= r.PNetAfterKW * dt
		}
	}
	return importKWh, exportKWh
}

// PeakImportKW returns the largest controlled grid draw, zero if none.
func (e RunEvent) PeakImportKW() float64 {
	peak := 0.0
	for _, r := range e.Rows {
		peak = max(peak, r.PNetAfterKW)
	}
	return peak
}

// MetricsSink records completed runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// RunStartEvent is recorded when a run begins.
type RunStartEvent struct {
	RunID         string
	ControlLogic  string
	OperationMode string
	Batteries     int
	Time          time.Time
}

// RunStartRecorder records run starts.
type RunStartRecorder interface {
	RecordRunStart(ev RunStartEvent) error
}

// BatterySample is the set-point and resulting SoC of one battery at one
// timestep of a run.
type BatterySample struct {
	RunID      string
	BatteryID  string
	Time       time.Time
	PowerKW    float64
	SoCPercent float64
	StepHours  float64
}

// BatteryRecorder records per-battery samples.
type BatteryRecorder interface {
	RecordBatterySamples(samples []BatterySample) error
}

// Samples flattens the rows of ev into battery samples.
func Samples(ev RunEvent) []BatterySample {
	dt := ev.StepHours()
	var out []BatterySample
	for _, r := range ev.Rows {
		for _, b := range r.Batteries {
			out = append(out, BatterySample{
				RunID:      ev.RunID,
				BatteryID:  b.ID,
				Time:       r.Timestamp,
				PowerKW:    b.PowerKW,
				SoCPercent: b.SoCPercent,
				StepHours:  dt,
			})
		}
	}
	return out
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                   { return nil }
func (NopSink) RecordRunStart(RunStartEvent) error         { return nil }
func (NopSink) RecordBatterySamples([]BatterySample) error { return nil }
