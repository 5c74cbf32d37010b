package config

import "time"

// HTTPConfig configures the control API served by "gridbalance serve".
type HTTPConfig struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	// Token, when set, is required as "Bearer <token>" on every request.
	Token string `json:"token"`
	// MetricsPath exposes Prometheus metrics on the same listener when set.
	MetricsPath string `json:"metrics_path"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}
