package scenarios

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridbalance/app"
	"github.com/kilianp07/gridbalance/config"
	"github.com/kilianp07/gridbalance/core/model"
)

func newService(t *testing.T) *app.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Backend = "none"
	cfg.Logging.Path = ""
	svc, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestFixtures(t *testing.T) {
	scs, err := LoadDir("fixtures")
	require.NoError(t, err)
	require.Len(t, scs, 3)

	svc := newService(t)
	for _, sc := range scs {
		t.Run(sc.Name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			rep, err := Run(ctx, svc, sc)
			require.NoError(t, err)
			assert.True(t, rep.Passed(), "failures: %v", rep.Failures)
		})
	}
}

type stubRunner struct {
	res model.Result
	err error
}

func (s stubRunner) Run(context.Context, model.Request) (model.Result, error) { return s.res, s.err }

func scenarioWith(exp Expected) *Scenario {
	return &Scenario{Name: "stub", Request: map[string]any{"id": "x"}, Expected: exp}
}

func TestCheck_ReportsViolations(t *testing.T) {
	res := model.Result{
		Status: model.StatusOK,
		Rows: []model.ResultRow{
			{PNetBeforeKW: 3, PNetAfterKW: 1},
			{PNetBeforeKW: 3, PNetAfterKW: 2},
		},
	}
	one, two := 1, 1.0
	failures := Check(res, Expected{
		Status: model.StatusOptimal,
		Rows:   3,
		Columns: []ColumnCheck{
			{Name: "P_net_after_kW", From: &one, Equals: &two},
			{Name: "P_net_before_kW", Max: &two},
			{Name: "P_bat_9_kW"},
		},
	})
	assert.Len(t, failures, 6)
	assert.Contains(t, failures, "P_net_after_kW[1]: want 1, got 2")
	assert.Contains(t, failures, "P_bat_9_kW: column missing")
}

func TestRun_ExpectedRejection(t *testing.T) {
	rejected := &model.ValidationError{Field: "battery_specs", Reason: "required"}
	rep, err := Run(context.Background(), stubRunner{err: rejected}, scenarioWith(Expected{Status: "rejected"}))
	require.NoError(t, err)
	assert.True(t, rep.Passed())

	rep, err = Run(context.Background(), stubRunner{err: errors.New("boom")}, scenarioWith(Expected{Status: model.StatusOK}))
	require.NoError(t, err)
	assert.False(t, rep.Passed())
}

func TestLoad_RequiresRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "request is required")
}

func TestScenario_ControlRequest(t *testing.T) {
	sc, err := Load(filepath.Join("fixtures", "scenario_c.yaml"))
	require.NoError(t, err)
	req, err := sc.ControlRequest()
	require.NoError(t, err)
	require.NoError(t, req.Validate())
	assert.Len(t, req.Batteries, 2)
	assert.Equal(t, model.OptimizationBased, req.ControlLogic)
	require.NotNil(t, req.DayEnd)
}
