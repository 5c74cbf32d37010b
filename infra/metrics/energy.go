package metrics

import (
	"math"

	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/core/metrics/energy"
	"github.com/prometheus/client_golang/prometheus"
)

const dayLayout = "2006-01-02"

// EnergySink aggregates battery samples into daily energy KPIs.
type EnergySink struct {
	store      energy.Store
	factor     float64
	charged    *prometheus.GaugeVec
	discharged *prometheus.GaugeVec
	ratio      *prometheus.GaugeVec
	co2        *prometheus.GaugeVec
}

// NewEnergySink creates a sink with Prometheus gauges registered on reg.
// factor is the grid emission factor in g CO2 per kWh.
func NewEnergySink(store energy.Store, factor float64, reg prometheus.Registerer) (*EnergySink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"battery_id", "day"}
	s := &EnergySink{
		store:  store,
		factor: factor,
		charged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battery_charged_energy_kwh",
			Help: "Daily scheduled charge energy per battery",
		}, labels),
		discharged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battery_discharged_energy_kwh",
			Help: "Daily scheduled discharge energy per battery",
		}, labels),
		ratio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battery_energy_ratio",
			Help: "Daily ratio of discharged to charged energy",
		}, labels),
		co2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battery_co2_displaced_grams",
			Help: "Daily grid CO2 displaced by battery discharge",
		}, labels),
	}
	var err error
	for _, g := range []**prometheus.GaugeVec{&s.charged, &s.discharged, &s.ratio, &s.co2} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RecordRun is a no-op; energy is derived from battery samples.
func (s *EnergySink) RecordRun(coremetrics.RunEvent) error { return nil }

// RecordBatterySamples integrates each sample over its step and refreshes
// the daily gauges. Samples without a step are skipped.
func (s *EnergySink) RecordBatterySamples(samples []coremetrics.BatterySample) error {
	touched := map[string]energy.Record{}
	for _, b := range samples {
		if b.StepHours <= 0 {
			continue
		}
		kwh := b.PowerKW * b.StepHours
		rec := energy.Record{BatteryID: b.BatteryID, Date: b.Time}
		if kwh >= 0 {
			rec.ChargedKWh = kwh
		} else {
			rec.DischargedKWh = math.Abs(kwh)
		}
		if err := s.store.Add(rec); err != nil {
			return err
		}
		touched[b.BatteryID+"|"+energy.Day(b.Time).Format(dayLayout)] = rec
	}
	for _, rec := range touched {
		day := energy.Day(rec.Date)
		records, err := s.store.Query(rec.BatteryID, day, day)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		r := records[0]
		d := day.Format(dayLayout)
		s.charged.WithLabelValues(r.BatteryID, d).Set(r.ChargedKWh)
		s.discharged.WithLabelValues(r.BatteryID, d).Set(r.DischargedKWh)
		s.ratio.WithLabelValues(r.BatteryID, d).Set(r.EnergyRatio())
		s.co2.WithLabelValues(r.BatteryID, d).Set(r.CO2Displaced(s.factor))
	}
	return nil
}
