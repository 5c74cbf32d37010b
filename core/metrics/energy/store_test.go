package energy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Aggregation(t *testing.T) {
	s := NewMemoryStore()
	d := Day(time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC))
	require.NoError(t, s.Add(Record{BatteryID: "b1", Date: d, ChargedKWh: 2}))
	require.NoError(t, s.Add(Record{BatteryID: "b1", Date: d.Add(2 * time.Hour), ChargedKWh: 1, DischargedKWh: 1.5}))
	require.NoError(t, s.Add(Record{BatteryID: "b1", Date: d.Add(26 * time.Hour), DischargedKWh: 4}))
	require.NoError(t, s.Add(Record{BatteryID: "b2", Date: d, ChargedKWh: 9}))

	recs, err := s.Query("b1", d, d)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3.0, recs[0].ChargedKWh)
	assert.Equal(t, 1.5, recs[0].DischargedKWh)

	recs, err = s.Query("b1", d, d.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Date.Before(recs[1].Date))

	recs, err = s.Query("missing", d, d)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordCalculations(t *testing.T) {
	r := Record{ChargedKWh: 4, DischargedKWh: 2}
	assert.Equal(t, 0.5, r.EnergyRatio())
	assert.Equal(t, 20.0, r.CO2Displaced(10))
	assert.Equal(t, 6.0, r.Throughput())
	assert.Equal(t, 0.3, r.EquivalentCycles(10))
	assert.Zero(t, r.EquivalentCycles(0))
	assert.Equal(t, 3.0, Record{DischargedKWh: 3}.EnergyRatio())
}
