package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/infra/logger"
)

const defaultInfluxTimeout = 5 * time.Second

// InfluxOptions configures an InfluxSink.
type InfluxOptions struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Timeout bounds each request. Zero means five seconds.
	Timeout time.Duration `json:"timeout"`
}

// InfluxSink writes control runs to an InfluxDB instance using the official
// client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	return newInfluxSink(InfluxOptions{URL: url, Token: token, Org: org, Bucket: bucket})
}

func newInfluxSink(o InfluxOptions) *InfluxSink {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultInfluxTimeout
	}
	base := strings.TrimSuffix(o.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, o.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: timeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(o.Org, o.Bucket),
		timeout:  timeout,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	return NewInfluxSinkFromOptions(InfluxOptions{URL: url, Token: token, Org: org, Bucket: bucket})
}

// NewInfluxSinkFromOptions is NewInfluxSinkWithFallback with a configurable
// timeout.
func NewInfluxSinkFromOptions(o InfluxOptions) coremetrics.MetricsSink {
	sink := newInfluxSink(o)
	ctx, cancel := context.WithTimeout(context.Background(), sink.timeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one control_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	imp, exp := ev.GridEnergy()
	p := write.NewPointWithMeasurement("control_run").
		AddTag("run_id", ev.RunID).
		AddTag("control_logic", ev.ControlLogic).
		AddTag("operation_mode", ev.OperationMode).
		AddTag("status", ev.Status).
		AddField("duration_ms", round3(float64(ev.Duration.Microseconds())/1000)).
		AddField("rows", len(ev.Rows)).
		AddField("import_kwh", round3(imp)).
		AddField("export_kwh", round3(exp)).
		AddField("peak_import_kw", round3(ev.PeakImportKW())).
		SetTime(ev.Time)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBatterySamples writes one battery_setpoint point per sample.
func (s *InfluxSink) RecordBatterySamples(samples []coremetrics.BatterySample) error {
	if len(samples) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*s.timeout)
	defer cancel()
	points := make([]*write.Point, 0, len(samples))
	for _, b := range samples {
		points = append(points, write.NewPointWithMeasurement("battery_setpoint").
			AddTag("run_id", b.RunID).
			AddTag("battery_id", b.BatteryID).
			AddField("power_kw", round3(b.PowerKW)).
			AddField("soc_percent", round3(b.SoCPercent)).
			SetTime(b.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
