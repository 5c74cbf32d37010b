package kpi

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridbalance/core/metrics/energy"
)

func TestSQLiteStore_AggregatesByDay(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kpi.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Add(energy.Record{BatteryID: "b1", Date: day.Add(9 * time.Hour), ChargedKWh: 2}))
	require.NoError(t, s.Add(energy.Record{BatteryID: "b1", Date: day.Add(18 * time.Hour), ChargedKWh: 1, DischargedKWh: 1.5}))
	require.NoError(t, s.Add(energy.Record{BatteryID: "b1", Date: day.AddDate(0, 0, 1), DischargedKWh: 4}))
	require.NoError(t, s.Add(energy.Record{BatteryID: "b2", Date: day, ChargedKWh: 9}))

	recs, err := s.Query("b1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, day, recs[0].Date)
	assert.InDelta(t, 3, recs[0].ChargedKWh, 1e-9)
	assert.InDelta(t, 1.5, recs[0].DischargedKWh, 1e-9)
	assert.InDelta(t, 4, recs[1].DischargedKWh, 1e-9)

	only, err := s.Query("b1", day, day)
	require.NoError(t, err)
	assert.Len(t, only, 1)
}
