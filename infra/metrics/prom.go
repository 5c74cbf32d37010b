package metrics

import (
	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records control runs in Prometheus metrics.
type PromSink struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	grid     *prometheus.CounterVec
	peak     *prometheus.GaugeVec
	soc      *prometheus.GaugeVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The metrics endpoint is served separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "control_runs_total",
			Help: "Completed control runs by strategy and status",
		}, []string{"control_logic", "operation_mode", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "control_run_duration_seconds",
			Help:    "Wall time of control runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"control_logic", "operation_mode"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "control_runs_in_flight",
			Help: "Control runs started and not yet completed",
		}),
		grid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grid_energy_kwh_total",
			Help: "Scheduled grid energy after control by direction",
		}, []string{"application", "direction"}),
		peak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grid_peak_import_kw",
			Help: "Peak controlled grid import of the last run",
		}, []string{"application"}),
		soc: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battery_soc_percent",
			Help: "Last reported SoC per battery",
		}, []string{"battery_id"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.inFlight, err = register(reg, s.inFlight); err != nil {
		return nil, err
	}
	if s.grid, err = register(reg, s.grid); err != nil {
		return nil, err
	}
	if s.peak, err = register(reg, s.peak); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, s.soc); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun counts the run and accumulates its grid energy.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.ControlLogic, ev.OperationMode, ev.Status).Inc()
	s.duration.WithLabelValues(ev.ControlLogic, ev.OperationMode).Observe(ev.Duration.Seconds())
	s.inFlight.Dec()
	if len(ev.Rows) == 0 {
		return nil
	}
	imp, exp := ev.GridEnergy()
	s.grid.WithLabelValues(ev.Application, "import").Add(imp)
	s.grid.WithLabelValues(ev.Application, "export").Add(exp)
	s.peak.WithLabelValues(ev.Application).Set(ev.PeakImportKW())
	return nil
}

// RecordRunStart increments the in-flight gauge.
func (s *PromSink) RecordRunStart(coremetrics.RunStartEvent) error {
	s.inFlight.Inc()
	return nil
}

// RecordBatterySamples sets the SoC gauge to the last sample of each
// battery.
func (s *PromSink) RecordBatterySamples(samples []coremetrics.BatterySample) error {
	for _, b := range samples {
		s.soc.WithLabelValues(b.BatteryID).Set(b.SoCPercent)
	}
	return nil
}
