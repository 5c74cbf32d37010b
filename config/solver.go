package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/gridbalance/core/milp"
)

// SolverConfig bounds the branch-and-bound search of the optimizer.
type SolverConfig struct {
	NodeLimit int     `json:"node_limit"`
	Tolerance float64 `json:"tolerance"`
	Gap       float64 `json:"gap"`
	// IterationLimit caps the simplex iterations of one relaxation. Zero
	// derives the cap from the problem size.
	IterationLimit int `json:"iteration_limit"`
	// TimeLimit cancels a solve after the given duration. Zero disables it.
	TimeLimit time.Duration `json:"time_limit"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.NodeLimit == 0 {
		c.NodeLimit = 20000
	}
	if c.Tolerance == 0 {
		c.Tolerance = milp.DefaultTolerance
	}
}

// Validate checks ranges.
func (c SolverConfig) Validate() error {
	if c.NodeLimit < 0 {
		return fmt.Errorf("node_limit must not be negative")
	}
	if c.Tolerance < 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance %g out of range [0,1)", c.Tolerance)
	}
	if c.IterationLimit < 0 {
		return fmt.Errorf("iteration_limit must not be negative")
	}
	if c.Gap < 0 {
		return fmt.Errorf("gap must not be negative")
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time_limit must not be negative")
	}
	return nil
}

// Options converts the section into solver options.
func (c SolverConfig) Options() milp.Options {
	return milp.Options{
		NodeLimit:      c.NodeLimit,
		Tolerance:      c.Tolerance,
		Gap:            c.Gap,
		IterationLimit: c.IterationLimit,
	}
}
