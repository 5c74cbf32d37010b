package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func communitySpec() BatterySpec {
	return BatterySpec{
		Type:        Community,
		InitialSoC:  50,
		MinSoC:      10,
		MaxSoC:      90,
		CapacityKWh: 10,
		PChMaxKW:    5,
		PDisMaxKW:   5,
	}
}

func TestNormalize_ConvertsUnits(t *testing.T) {
	spec := communitySpec()
	spec.FinalSoC = ptr(80)
	spec.ChEfficiency = ptr(0.95)

	b, err := Normalize(spec, "bat_1")
	require.NoError(t, err)
	assert.Equal(t, "bat_1", b.ID)
	assert.InDelta(t, 0.5, b.InitialSoC, 1e-12)
	assert.InDelta(t, 0.1, b.MinSoC, 1e-12)
	assert.InDelta(t, 0.9, b.MaxSoC, 1e-12)
	assert.InDelta(t, 36000, b.CapacityKWs, 1e-9)
	require.NotNil(t, b.FinalSoC)
	assert.InDelta(t, 0.8, *b.FinalSoC, 1e-12)
	assert.Equal(t, 0.95, b.ChEfficiency)
	assert.Equal(t, 1.0, b.DisEfficiency)
}

func TestNormalize_KeepsExplicitID(t *testing.T) {
	spec := communitySpec()
	spec.ID = "cbes_a"
	b, err := Normalize(spec, "bat_1")
	require.NoError(t, err)
	assert.Equal(t, "cbes_a", b.ID)
}

func TestNormalize_Rejects(t *testing.T) {
	cases := map[string]func(*BatterySpec){
		"initial below min": func(s *BatterySpec) { s.InitialSoC = 5 },
		"initial above max": func(s *BatterySpec) { s.InitialSoC = 95 },
		"min above max":     func(s *BatterySpec) { s.MinSoC = 95 },
		"final out of band": func(s *BatterySpec) { s.FinalSoC = ptr(99) },
		"zero capacity":     func(s *BatterySpec) { s.CapacityKWh = 0 },
		"zero efficiency":   func(s *BatterySpec) { s.DisEfficiency = ptr(0) },
		"efficiency over 1": func(s *BatterySpec) { s.ChEfficiency = ptr(1.2) },
		"unknown type":      func(s *BatterySpec) { s.Type = "ev" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := communitySpec()
			mutate(&spec)
			_, err := Normalize(spec, "bat_1")
			var verr *ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
		})
	}
}

func TestEnergyIntegration(t *testing.T) {
	b := Battery{CapacityKWs: 36000, ChEfficiency: 0.9, DisEfficiency: 0.8}
	assert.InDelta(t, 2*0.9*900, b.ChargeEnergy(2, 900), 1e-9)
	assert.InDelta(t, 2/0.8*900, b.DischargeEnergy(2, 900), 1e-9)
	assert.InDelta(t, 50.0, b.SoCPercent(18000), 1e-9)
}
