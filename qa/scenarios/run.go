package scenarios

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"

	"github.com/kilianp07/gridbalance/core/model"
	"github.com/kilianp07/gridbalance/pkg/export"
)

// Runner executes one control request.
type Runner interface {
	Run(ctx context.Context, req model.Request) (model.Result, error)
}

// Report is the outcome of one scenario. A scenario passes when Failures
// is empty.
type Report struct {
	Name     string
	Status   model.Status
	Rows     int
	Failures []string
}

func (r Report) Passed() bool { return len(r.Failures) == 0 }

// Run executes sc through runner and checks the result. Errors are only
// returned when the scenario itself cannot be decoded; run errors become
// failures unless a rejection was expected.
func Run(ctx context.Context, runner Runner, sc *Scenario) (Report, error) {
	rep := Report{Name: sc.Name}
	req, err := sc.ControlRequest()
	if err != nil {
		return rep, err
	}
	res, err := runner.Run(ctx, req)
	rep.Status, rep.Rows = res.Status, len(res.Rows)
	if err != nil {
		if sc.Expected.Status == "rejected" {
			return rep, nil
		}
		rep.Failures = append(rep.Failures, fmt.Sprintf("run failed: %v", err))
		return rep, nil
	}
	rep.Failures = Check(res, sc.Expected)
	return rep, nil
}

// Check compares res against exp and returns one message per violation.
func Check(res model.Result, exp Expected) []string {
	var failures []string
	if exp.Status != "" && res.Status != exp.Status {
		failures = append(failures, fmt.Sprintf("status: want %s, got %s (%s)", exp.Status, res.Status, res.StatusDetail))
	}
	if exp.Rows > 0 && len(res.Rows) != exp.Rows {
		failures = append(failures, fmt.Sprintf("rows: want %d, got %d", exp.Rows, len(res.Rows)))
	}
	if len(exp.Columns) == 0 {
		return failures
	}
	header, records, err := export.Table(res)
	if err != nil {
		return append(failures, fmt.Sprintf("table: %v", err))
	}
	for _, c := range exp.Columns {
		failures = append(failures, checkColumn(header, records, c)...)
	}
	return failures
}

func checkColumn(header []string, records [][]string, c ColumnCheck) []string {
	col := lo.IndexOf(header, c.Name)
	if col < 0 {
		return []string{fmt.Sprintf("%s: column missing", c.Name)}
	}
	from, to := c.span(len(records))
	if from < 0 || to >= len(records) || from > to {
		return []string{fmt.Sprintf("%s: rows %d..%d out of range", c.Name, from, to)}
	}
	tol := c.tolerance()
	var failures []string
	for i := from; i <= to; i++ {
		v, err := strconv.ParseFloat(records[i][col], 64)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s[%d]: %q is not a number", c.Name, i, records[i][col]))
			continue
		}
		switch {
		case c.Equals != nil && math.Abs(v-*c.Equals) > tol:
			failures = append(failures, fmt.Sprintf("%s[%d]: want %g, got %g", c.Name, i, *c.Equals, v))
		case c.Min != nil && v < *c.Min-tol:
			failures = append(failures, fmt.Sprintf("%s[%d]: %g below %g", c.Name, i, v, *c.Min))
		case c.Max != nil && v > *c.Max+tol:
			failures = append(failures, fmt.Sprintf("%s[%d]: %g above %g", c.Name, i, v, *c.Max))
		}
	}
	return failures
}
