// Package scenarios runs YAML-described control requests end to end and
// checks the produced result table against expectations.
package scenarios

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gridbalance/core/model"
)

// DefaultTolerance applies to column checks that do not set one.
const DefaultTolerance = 1e-4

// ColumnCheck constrains the values of one result column over an inclusive
// row range. A missing range covers every row.
type ColumnCheck struct {
	Name      string   `yaml:"name"`
	From      *int     `yaml:"from,omitempty"`
	To        *int     `yaml:"to,omitempty"`
	Equals    *float64 `yaml:"equals,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
}

// span resolves the row range against a result of n rows.
func (c ColumnCheck) span(n int) (int, int) {
	from, to := 0, n-1
	if c.From != nil {
		from = *c.From
	}
	if c.To != nil {
		to = *c.To
	}
	return from, to
}

func (c ColumnCheck) tolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return DefaultTolerance
}

type Expected struct {
	Status  model.Status  `yaml:"status"`
	Rows    int           `yaml:"rows,omitempty"`
	Columns []ColumnCheck `yaml:"columns,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Request     map[string]any `yaml:"request"`
	Expected    Expected       `yaml:"expected"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// ControlRequest decodes the embedded request document.
func (s *Scenario) ControlRequest() (model.Request, error) {
	var req model.Request
	data, err := json.Marshal(s.Request)
	if err != nil {
		return req, fmt.Errorf("scenario %s: encode request: %w", s.Name, err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("scenario %s: decode request: %w", s.Name, err)
	}
	return req, nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	if len(sc.Request) == 0 {
		return nil, fmt.Errorf("%s: request is required", path)
	}
	sc.Path = path
	return &sc, nil
}

// LoadDir loads every .yaml and .yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
