package model

import (
	"fmt"
	"math"
)

// BatteryType distinguishes community storage from household storage.
type BatteryType string

const (
	// Community batteries may charge and discharge freely.
	Community BatteryType = "cbes"
	// Household batteries never discharge and must be full at day end.
	Household BatteryType = "hbes"
)

// BatterySpec is the raw battery description as received on the wire.
// SoC values are percentages and the capacity is expressed in kWh.
type BatterySpec struct {
	ID            string      `json:"id,omitempty"`
	Type          BatteryType `json:"bat_type"`
	InitialSoC    float64     `json:"initial_SoC"`
	FinalSoC      *float64    `json:"final_SoC,omitempty"`
	MinSoC        float64     `json:"min_SoC"`
	MaxSoC        float64     `json:"max_SoC"`
	CapacityKWh   float64     `json:"bat_capacity_kWh"`
	PChMaxKW      float64     `json:"P_ch_max_kW"`
	PDisMaxKW     float64     `json:"P_dis_max_kW"`
	ChEfficiency  *float64    `json:"ch_efficiency,omitempty"`
	DisEfficiency *float64    `json:"dis_efficiency,omitempty"`
}

// Battery is a normalized battery asset. SoC values are fractions in [0,1]
// and the capacity is stored in kWs (kW times seconds).
type Battery struct {
	ID            string
	Type          BatteryType
	InitialSoC    float64
	FinalSoC      *float64
	MinSoC        float64
	MaxSoC        float64
	CapacityKWs   float64
	PChMaxKW      float64
	PDisMaxKW     float64
	ChEfficiency  float64
	DisEfficiency float64
}

// socTolerance absorbs float noise when comparing percentages converted to
// fractions.
const socTolerance = 1e-9

// Normalize validates the raw spec and converts it to fractions and kWs.
// An empty ID is replaced by fallbackID.
func Normalize(spec BatterySpec, fallbackID string) (Battery, error) {
	b := Battery{
		ID:            spec.ID,
		Type:          spec.Type,
		InitialSoC:    spec.InitialSoC / 100,
		MinSoC:        spec.MinSoC / 100,
		MaxSoC:        spec.MaxSoC / 100,
		CapacityKWs:   spec.CapacityKWh * 3600,
		PChMaxKW:      spec.PChMaxKW,
		PDisMaxKW:     spec.PDisMaxKW,
		ChEfficiency:  1,
		DisEfficiency: 1,
	}
	if b.ID == "" {
		b.ID = fallbackID
	}
	if b.Type == "" {
		b.Type = Community
	}
	if spec.FinalSoC != nil {
		f := *spec.FinalSoC / 100
		b.FinalSoC = &f
	}
	if spec.ChEfficiency != nil {
		b.ChEfficiency = *spec.ChEfficiency
	}
	if spec.DisEfficiency != nil {
		b.DisEfficiency = *spec.DisEfficiency
	}
	if err := b.Validate(); err != nil {
		return Battery{}, err
	}
	return b, nil
}

// Validate checks the physical consistency of a normalized battery.
func (b Battery) Validate() error {
	field := func(name string) string { return fmt.Sprintf("battery_specs[%s].%s", b.ID, name) }
	switch b.Type {
	case Community, Household:
	default:
		return invalid(field("bat_type"), "unknown battery type %q", b.Type)
	}
	if b.CapacityKWs <= 0 {
		return invalid(field("bat_capacity_kWh"), "capacity must be positive")
	}
	if b.PChMaxKW < 0 || b.PDisMaxKW < 0 {
		return invalid(field("P_ch_max_kW"), "power ratings must not be negative")
	}
	if b.ChEfficiency <= 0 || b.ChEfficiency > 1 {
		return invalid(field("ch_efficiency"), "efficiency %.3f outside (0,1]", b.ChEfficiency)
	}
	if b.DisEfficiency <= 0 || b.DisEfficiency > 1 {
		return invalid(field("dis_efficiency"), "efficiency %.3f outside (0,1]", b.DisEfficiency)
	}
	if b.MinSoC < 0 || b.MaxSoC > 1+socTolerance || b.MinSoC > b.MaxSoC {
		return invalid(field("min_SoC"), "min_SoC %.1f%% and max_SoC %.1f%% must satisfy 0 <= min <= max <= 100",
			b.MinSoC*100, b.MaxSoC*100)
	}
	if b.InitialSoC < b.MinSoC-socTolerance || b.InitialSoC > b.MaxSoC+socTolerance {
		return invalid(field("initial_SoC"), "initial_SoC %.1f%% outside [%.1f%%, %.1f%%]",
			b.InitialSoC*100, b.MinSoC*100, b.MaxSoC*100)
	}
	if b.FinalSoC != nil && (*b.FinalSoC < b.MinSoC-socTolerance || *b.FinalSoC > b.MaxSoC+socTolerance) {
		return invalid(field("final_SoC"), "final_SoC %.1f%% outside [%.1f%%, %.1f%%]",
			*b.FinalSoC*100, b.MinSoC*100, b.MaxSoC*100)
	}
	return nil
}

// IsHousehold reports whether the asset follows household semantics.
func (b Battery) IsHousehold() bool { return b.Type == Household }

// MinEnergyKWs returns the lowest permitted stored energy.
func (b Battery) MinEnergyKWs() float64 { return b.MinSoC * b.CapacityKWs }

// MaxEnergyKWs returns the highest permitted stored energy.
func (b Battery) MaxEnergyKWs() float64 { return b.MaxSoC * b.CapacityKWs }

// InitialEnergyKWs returns the stored energy at the start of the horizon.
func (b Battery) InitialEnergyKWs() float64 { return b.InitialSoC * b.CapacityKWs }

// ChargeEnergy returns the stored energy gained by drawing powerKW from the
// grid for dtSeconds.
func (b Battery) ChargeEnergy(powerKW, dtSeconds float64) float64 {
	return powerKW * b.ChEfficiency * dtSeconds
}

// DischargeEnergy returns the stored energy consumed to deliver powerKW to
// the grid for dtSeconds.
func (b Battery) DischargeEnergy(powerKW, dtSeconds float64) float64 {
	return powerKW / b.DisEfficiency * dtSeconds
}

// SoC converts a stored energy in kWs to a fraction of capacity.
func (b Battery) SoC(energyKWs float64) float64 { return energyKWs / b.CapacityKWs }

// SoCPercent converts a stored energy in kWs to a percentage rounded to
// micro-percent so that boundary values print cleanly.
func (b Battery) SoCPercent(energyKWs float64) float64 {
	return math.Round(b.SoC(energyKWs)*100*1e6) / 1e6
}
