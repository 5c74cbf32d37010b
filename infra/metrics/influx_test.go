package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordRun(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	ev := sampleRun()
	require.NoError(t, sink.RecordRun(ev))

	p := write.NewPointWithMeasurement("control_run").
		AddTag("run_id", "run-1").
		AddTag("control_logic", "optimization_based").
		AddTag("operation_mode", "scheduling").
		AddTag("status", "optimal").
		AddField("duration_ms", 40.0).
		AddField("rows", 2).
		AddField("import_kwh", 1.0).
		AddField("export_kwh", 0.5).
		AddField("peak_import_kw", 2.0).
		SetTime(ev.Time)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	require.Len(t, rec.bodies, 1)
	assert.Equal(t, expected, rec.bodies[0])
}

func TestInfluxSink_RecordRunWithError(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	require.NoError(t, sink.RecordRun(coremetrics.RunEvent{RunID: "r", Status: "rejected", Error: "bad input", Time: time.Now()}))
	require.Len(t, rec.bodies, 1)
	assert.Contains(t, rec.bodies[0], `error="bad input"`)
	assert.Contains(t, rec.bodies[0], "status=rejected")
}

func TestInfluxSink_RecordBatterySamples(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	ev := sampleRun()
	require.NoError(t, sink.RecordBatterySamples(coremetrics.Samples(ev)))
	require.NoError(t, sink.RecordBatterySamples(nil))
	require.Len(t, rec.bodies, 1)

	lines := strings.Split(rec.bodies[0], "\n")
	require.Len(t, lines, 2)
	p := write.NewPointWithMeasurement("battery_setpoint").
		AddTag("run_id", "run-1").
		AddTag("battery_id", "b1").
		AddField("power_kw", -2.0).
		AddField("soc_percent", 50.0).
		SetTime(ev.Rows[1].Timestamp)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)), lines[1])
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.235, round3(1.23456))
	assert.Equal(t, -0.5, round3(-0.5001))
}

const (
	influxOrg    = "gridbalance"
	influxBucket = "runs"
	influxToken  = "test-token"
)

func startInflux(ctx context.Context, t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "adminpassword",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "8086")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestInfluxSink_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	url := startInflux(ctx, t)

	sink := NewInfluxSinkWithFallback(url, influxToken, influxOrg, influxBucket)
	require.IsType(t, &InfluxSink{}, sink)
	ev := sampleRun()
	ev.Time = time.Now()
	require.NoError(t, sink.RecordRun(ev))

	client := influxdb2.NewClient(url, influxToken)
	defer client.Close()
	flux := fmt.Sprintf(`from(bucket: "%s")
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "control_run" and r._field == "import_kwh")`, influxBucket)
	res, err := client.QueryAPI(influxOrg).Query(ctx, flux)
	require.NoError(t, err)
	defer func() { _ = res.Close() }()
	var values []float64
	for res.Next() {
		if v, ok := res.Record().Value().(float64); ok {
			values = append(values, v)
		}
	}
	require.NoError(t, res.Err())
	assert.Equal(t, []float64{1.0}, values)
}
