package energy

import "time"

// Record aggregates the energy moved through one battery on one day.
type Record struct {
	BatteryID     string
	Date          time.Time
	ChargedKWh    float64
	DischargedKWh float64
}

// Throughput returns the total energy moved in either direction.
func (r Record) Throughput() float64 {
	return r.ChargedKWh + r.DischargedKWh
}

// EnergyRatio returns discharged over charged energy. A battery that only
// discharged reports its discharged energy.
func (r Record) EnergyRatio() float64 {
	if r.ChargedKWh == 0 {
		return r.DischargedKWh
	}
	return r.DischargedKWh / r.ChargedKWh
}

// CO2Displaced returns the grams of grid CO2 displaced by discharged energy
// for an emission factor in g/kWh.
func (r Record) CO2Displaced(factor float64) float64 {
	return r.DischargedKWh * factor
}

// EquivalentCycles returns throughput expressed in full cycles of a battery
// with the given capacity.
func (r Record) EquivalentCycles(capacityKWh float64) float64 {
	if capacityKWh <= 0 {
		return 0
	}
	return r.Throughput() / (2 * capacityKWh)
}
