package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ControlLogic selects the dispatch engine.
type ControlLogic string

const (
	RuleBased         ControlLogic = "rule_based"
	OptimizationBased ControlLogic = "optimization_based"
)

// OperationMode selects between horizon scheduling and a single instant.
type OperationMode string

const (
	NearRealTime OperationMode = "near_real_time"
	Scheduling   OperationMode = "scheduling"
)

// ForecastPoint is one sample of the generation and load forecast.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	PGenKW    float64   `json:"P_gen_kW"`
	PLoadKW   float64   `json:"P_load_kW"`
}

// NetKW returns the uncontrolled net demand (load minus generation).
func (p ForecastPoint) NetKW() float64 { return p.PLoadKW - p.PGenKW }

// GenerationAndLoad holds the forecast and the PV curtailment permission.
// It decodes either from {"pv_curtailment":..,"values":[..]} or from a bare
// list of points.
type GenerationAndLoad struct {
	PVCurtailment bool            `json:"pv_curtailment,omitempty"`
	Values        []ForecastPoint `json:"values"`
}

func (g *GenerationAndLoad) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &g.Values)
	}
	var raw struct {
		PVCurtailment json.RawMessage `json:"pv_curtailment"`
		Values        []ForecastPoint `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Values = raw.Values
	curtail, err := decodeFlag(raw.PVCurtailment)
	if err != nil {
		return invalid("generation_and_load.pv_curtailment", "%v", err)
	}
	g.PVCurtailment = curtail
	return nil
}

// decodeFlag accepts a JSON bool, a number (non-zero is true) or null.
func decodeFlag(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return false, fmt.Errorf("expected bool or number, got %s", raw)
	}
	return f != 0, nil
}

// Bulk is an energy amount the fleet must deliver (positive) or absorb
// (negative) within [Start, End].
type Bulk struct {
	Start     time.Time `json:"bulk_start"`
	End       time.Time `json:"bulk_end"`
	EnergyKWh float64   `json:"bulk_energy_kWh"`
}

// Limitation bounds the net grid exchange at one timestamp. A nil bound is
// absent, which is different from a bound at zero.
type Limitation struct {
	Timestamp  time.Time `json:"timestamp"`
	UpperBound *float64  `json:"upper_bound,omitempty"`
	LowerBound *float64  `json:"lower_bound,omitempty"`
}

// MeasurementRequest carries a single near-real-time measurement and the
// requested net power.
type MeasurementRequest struct {
	Timestamp  time.Time `json:"timestamp"`
	PReqKW     float64   `json:"P_req_kW"`
	DeltaTH    float64   `json:"delta_T_h"`
	PNetMeasKW float64   `json:"P_net_meas_kW"`
}

// BatterySpecs decodes from either a single battery object or a list.
type BatterySpecs []BatterySpec

func (s *BatterySpecs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one BatterySpec
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = BatterySpecs{one}
		return nil
	}
	var many []BatterySpec
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Request is a complete control request.
type Request struct {
	ID                string              `json:"id"`
	Application       string              `json:"application"`
	ControlLogic      ControlLogic        `json:"control_logic"`
	OperationMode     OperationMode       `json:"operation_mode"`
	UCStart           time.Time           `json:"uc_start"`
	UCEnd             time.Time           `json:"uc_end"`
	DayEnd            *time.Time          `json:"day_end,omitempty"`
	GenerationAndLoad *GenerationAndLoad  `json:"generation_and_load,omitempty"`
	Bulk              *Bulk               `json:"bulk,omitempty"`
	Limitations       []Limitation        `json:"P_net_after_kW_limitation,omitempty"`
	Measurement       *MeasurementRequest `json:"measurements_request,omitempty"`
	Batteries         BatterySpecs        `json:"battery_specs"`
}

// Validate performs structural checks that do not depend on the selected
// strategy. Horizon spacing is checked when the horizon is built.
func (r Request) Validate() error {
	switch r.ControlLogic {
	case RuleBased, OptimizationBased:
	default:
		return invalid("control_logic", "unknown control logic %q", r.ControlLogic)
	}
	switch r.OperationMode {
	case Scheduling, NearRealTime:
	default:
		return invalid("operation_mode", "unknown operation mode %q", r.OperationMode)
	}
	if len(r.Batteries) == 0 {
		return invalid("battery_specs", "at least one battery is required")
	}
	if r.OperationMode == NearRealTime {
		if r.Measurement == nil {
			return invalid("measurements_request", "required in near_real_time mode")
		}
		if r.Measurement.DeltaTH <= 0 {
			return invalid("measurements_request.delta_T_h", "must be positive")
		}
		return nil
	}
	if r.UCEnd.Before(r.UCStart) {
		return invalid("uc_end", "uc_end %s before uc_start %s", r.UCEnd.Format(time.RFC3339), r.UCStart.Format(time.RFC3339))
	}
	if r.GenerationAndLoad == nil || len(r.GenerationAndLoad.Values) == 0 {
		return invalid("generation_and_load", "required in scheduling mode")
	}
	vals := r.GenerationAndLoad.Values
	if vals[0].Timestamp.After(r.UCStart) {
		return invalid("generation_and_load", "must start at or before uc_start: starts at %s, uc_start %s",
			vals[0].Timestamp.Format(time.RFC3339), r.UCStart.Format(time.RFC3339))
	}
	if vals[len(vals)-1].Timestamp.Before(r.UCEnd) {
		return invalid("generation_and_load", "must end at or after uc_end: ends at %s, uc_end %s",
			vals[len(vals)-1].Timestamp.Format(time.RFC3339), r.UCEnd.Format(time.RFC3339))
	}
	if r.Bulk != nil && r.Bulk.End.Before(r.Bulk.Start) {
		return invalid("bulk.bulk_end", "bulk_end before bulk_start")
	}
	for i, l := range r.Limitations {
		if l.UpperBound != nil && l.LowerBound != nil && *l.LowerBound > *l.UpperBound {
			return invalid(fmt.Sprintf("P_net_after_kW_limitation[%d]", i), "lower_bound %.3f above upper_bound %.3f",
				*l.LowerBound, *l.UpperBound)
		}
	}
	return nil
}

// NormalizedBatteries converts every battery spec, naming unnamed batteries
// bat_1, bat_2, ... by position.
func (r Request) NormalizedBatteries() ([]Battery, error) {
	out := make([]Battery, 0, len(r.Batteries))
	seen := make(map[string]bool, len(r.Batteries))
	for i, spec := range r.Batteries {
		b, err := Normalize(spec, fmt.Sprintf("bat_%d", i+1))
		if err != nil {
			return nil, err
		}
		if seen[b.ID] {
			return nil, invalid("battery_specs", "duplicate battery id %q", b.ID)
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out, nil
}

// PVCurtailment reports whether PV output may be reduced below forecast.
func (r Request) PVCurtailment() bool {
	return r.GenerationAndLoad != nil && r.GenerationAndLoad.PVCurtailment
}
