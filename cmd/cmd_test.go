package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const request = `id: cli-1
application: microgrid
control_logic: rule_based
operation_mode: scheduling
uc_start: "2023-06-01T10:00:00Z"
uc_end: "2023-06-01T10:30:00Z"
day_end: "2023-06-01T10:30:00Z"
generation_and_load:
  - {timestamp: "2023-06-01T10:00:00Z", P_gen_kW: 6, P_load_kW: 2}
  - {timestamp: "2023-06-01T10:15:00Z", P_gen_kW: 6, P_load_kW: 2}
  - {timestamp: "2023-06-01T10:30:00Z", P_gen_kW: 6, P_load_kW: 2}
battery_specs:
  bat_type: cbes
  initial_SoC: 50
  min_SoC: 10
  max_SoC: 90
  bat_capacity_kWh: 10
  P_ch_max_kW: 5
  P_dis_max_kW: 5
`

// execute runs the root command with a config that keeps the run log in dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(dir, "config.yaml")
	doc := "logging:\n  backend: jsonl\n  path: " + filepath.Join(dir, "runs.jsonl") + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(doc), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"-c", cfg}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand_CSVThenHistory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "request.yaml")
	require.NoError(t, os.WriteFile(in, []byte(request), 0o644))

	out, err := execute(t, dir, "run", "-i", in, "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "P_bat_1_kW")

	out, err = execute(t, dir, "runs", "--request-id", "cli-1")
	require.NoError(t, err)
	assert.Contains(t, out, "cli-1")
	assert.Contains(t, out, "1 runs")
}

func TestRunCommand_RejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "request.yaml")
	require.NoError(t, os.WriteFile(in, []byte(request), 0o644))
	out := filepath.Join(dir, "result.txt")

	_, err := execute(t, dir, "run", "-i", in, "-o", out, "--format", "xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
	runOpts.format = "json"
}

func TestScenarioCommand(t *testing.T) {
	fixtures := filepath.Join("..", "qa", "scenarios", "fixtures")
	out, err := execute(t, t.TempDir(), "scenario", "-d", fixtures)
	require.NoError(t, err, out)
	assert.Equal(t, 3, strings.Count(out, "PASS"))
	scenarioDir = ""
}
