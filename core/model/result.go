package model

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Status is the termination status attached to a result. Solver statuses
// are reported unmodified.
type Status string

const (
	// StatusOK marks rule-based results, which always complete.
	StatusOK         Status = "ok"
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

// HasSolution reports whether rows were produced for this status.
func (s Status) HasSolution() bool {
	return s == StatusOK || s == StatusOptimal || s == StatusFeasible
}

// BatteryOutput is the set-point and resulting SoC of one battery for one
// timestep. PowerKW is positive while charging and negative while
// discharging.
type BatteryOutput struct {
	ID         string
	PowerKW    float64
	SoCPercent float64
	// InitialSoCPercent is only reported for near-real-time results.
	InitialSoCPercent *float64
}

// ResultRow is one timestep of a dispatch result. Net powers are
// import minus export.
type ResultRow struct {
	Timestamp    time.Time
	PNetBeforeKW float64
	PNetAfterKW  float64
	Batteries    []BatteryOutput

	// Optimizer path only.
	PVForecastKW             *float64
	PVControlledKW           *float64
	PNetBeforeControlledPVKW *float64
	UpperBoundKW             *float64
	LowerBoundKW             *float64
	PBatTotalKW              *float64

	// Near-real-time path only.
	PNetMeasKW *float64
}

// Battery returns the output for the given battery id.
func (r ResultRow) Battery(id string) (BatteryOutput, bool) {
	for _, b := range r.Batteries {
		if b.ID == id {
			return b, true
		}
	}
	return BatteryOutput{}, false
}

// MarshalJSON writes the row with per-battery column names such as
// P_bat_1_kW and SoC_bat_1_%, preserving a stable column order.
func (r ResultRow) MarshalJSON() ([]byte, error) {
	w := &orderedWriter{}
	w.add("timestamp", r.Timestamp)
	w.add("P_net_before_kW", round(r.PNetBeforeKW))
	w.optional("P_PV_forecast_kW", r.PVForecastKW)
	w.optional("P_PV_controlled_kW", r.PVControlledKW)
	w.optional("P_net_before_controlled_PV_kW", r.PNetBeforeControlledPVKW)
	w.optional("P_net_meas_kW", r.PNetMeasKW)
	w.add("P_net_after_kW", round(r.PNetAfterKW))
	w.optional("upperb", r.UpperBoundKW)
	w.optional("lowerb", r.LowerBoundKW)
	for _, b := range r.Batteries {
		w.optional("initial_SoC_"+b.ID+"_%", b.InitialSoCPercent)
		w.add("P_"+b.ID+"_kW", round(b.PowerKW))
		w.add("SoC_"+b.ID+"_%", round(b.SoCPercent))
	}
	w.optional("P_bat_total_kW", r.PBatTotalKW)
	return w.bytes()
}

// Result is the response document for one request.
type Result struct {
	ID            string        `json:"id"`
	Application   string        `json:"application"`
	ControlLogic  ControlLogic  `json:"control_logic"`
	OperationMode OperationMode `json:"operation_mode"`
	UCStart       time.Time     `json:"uc_start"`
	UCEnd         time.Time     `json:"uc_end"`
	Status        Status        `json:"status"`
	StatusDetail  string        `json:"status_detail,omitempty"`
	Rows          []ResultRow   `json:"results"`
}

// NewResult copies the request identification into an empty result.
func NewResult(req Request) Result {
	return Result{
		ID:            req.ID,
		Application:   req.Application,
		ControlLogic:  req.ControlLogic,
		OperationMode: req.OperationMode,
		UCStart:       req.UCStart,
		UCEnd:         req.UCEnd,
	}
}

// Float returns a pointer to v, for optional row columns.
func Float(v float64) *float64 { return &v }

func round(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0
	}
	return r
}

type orderedWriter struct {
	buf bytes.Buffer
	err error
}

func (w *orderedWriter) add(key string, v any) {
	if w.err != nil {
		return
	}
	if w.buf.Len() == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	val, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(val)
}

func (w *orderedWriter) optional(key string, v *float64) {
	if v != nil {
		w.add(key, round(*v))
	}
}

func (w *orderedWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.buf.Len() == 0 {
		return []byte("{}"), nil
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
