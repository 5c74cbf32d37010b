package metrics

import (
	"github.com/kilianp07/gridbalance/core/factory"
	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/core/metrics/energy"
	"github.com/kilianp07/gridbalance/infra/kpi"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var o InfluxOptions
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		return NewInfluxSinkFromOptions(o), nil
	})

	_ = coremetrics.RegisterMetricsSink("energy", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			EmissionFactor float64 `json:"emission_factor"`
			// StorePath persists the daily records in SQLite when set.
			StorePath string `json:"store_path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		var store energy.Store = energy.NewMemoryStore()
		if c.StorePath != "" {
			s, err := kpi.NewSQLiteStore(c.StorePath)
			if err != nil {
				return nil, err
			}
			store = s
		}
		return NewEnergySink(store, c.EmissionFactor, nil)
	})
}
