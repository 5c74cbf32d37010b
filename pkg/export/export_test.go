package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridbalance/core/model"
)

func result() model.Result {
	t0 := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	return model.Result{
		ID:     "req-1",
		Status: model.StatusOptimal,
		Rows: []model.ResultRow{
			{
				Timestamp: t0, PNetBeforeKW: -4, PNetAfterKW: 0,
				Batteries:   []model.BatteryOutput{{ID: "b1", PowerKW: 4, SoCPercent: 60}},
				PBatTotalKW: model.Float(4),
			},
			{
				Timestamp: t0.Add(15 * time.Minute), PNetBeforeKW: 1.5, PNetAfterKW: 1.5,
				UpperBoundKW: model.Float(2),
				Batteries:    []model.BatteryOutput{{ID: "b1", PowerKW: 0, SoCPercent: 60}},
				PBatTotalKW:  model.Float(0),
			},
		},
	}
}

func TestTable(t *testing.T) {
	header, rows, err := Table(result())
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "P_net_before_kW", "P_net_after_kW", "P_b1_kW", "SoC_b1_%", "P_bat_total_kW", "upperb"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2023-06-01T10:00:00Z", "-4", "0", "4", "60", "4", ""}, rows[0])
	assert.Equal(t, "2", rows[1][6])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, result()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,P_net_before_kW,P_net_after_kW,P_b1_kW,SoC_b1_%,P_bat_total_kW,upperb", lines[0])
	assert.Equal(t, "2023-06-01T10:15:00Z,1.5,1.5,0,60,0,2", lines[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result()))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "optimal", out["status"])
	assert.Len(t, out["results"], 2)
}

func TestTable_Empty(t *testing.T) {
	header, rows, err := Table(model.Result{})
	require.NoError(t, err)
	assert.Empty(t, header)
	assert.Empty(t, rows)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, result()))
	out := buf.String()
	assert.Contains(t, out, "2023-06-01T10:15:00Z")
	assert.Contains(t, out, "1.5")
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, result(), ChartOptions{Width: 20, Height: 6}))
	out := buf.String()
	assert.Contains(t, out, "Power flow (kW)")
	assert.Contains(t, out, "b1 SoC")

	buf.Reset()
	require.NoError(t, WriteChart(&buf, model.Result{Status: model.StatusInfeasible}, ChartOptions{}))
	assert.Equal(t, "no rows to plot (status infeasible)\n", buf.String())
}
