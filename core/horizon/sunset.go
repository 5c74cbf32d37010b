package horizon

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// Location is the site used to derive the default day end.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultLocation is Berlin.
var DefaultLocation = Location{Latitude: 52.52, Longitude: 13.40}

// sunsetFunc can be replaced in tests.
var sunsetFunc = Sunset

// Sunset returns the UTC sunset on the calendar day of day at loc.
func Sunset(day time.Time, loc Location) time.Time {
	d := day.UTC()
	noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
	times := suncalc.GetTimes(noon, loc.Latitude, loc.Longitude)
	return times["sunset"].Value.UTC()
}
