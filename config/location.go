package config

import (
	"fmt"

	"github.com/kilianp07/gridbalance/core/horizon"
)

// LocationConfig is the site whose sunset is the default day end.
type LocationConfig struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SetDefaults falls back to horizon.DefaultLocation when unset.
func (c *LocationConfig) SetDefaults() {
	if c.Latitude == 0 && c.Longitude == 0 {
		c.Latitude = horizon.DefaultLocation.Latitude
		c.Longitude = horizon.DefaultLocation.Longitude
	}
}

// Validate checks coordinate ranges.
func (c LocationConfig) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %g out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %g out of range", c.Longitude)
	}
	return nil
}

// Horizon returns the location in the form used by the horizon builder.
func (c LocationConfig) Horizon() horizon.Location {
	return horizon.Location{Latitude: c.Latitude, Longitude: c.Longitude}
}
