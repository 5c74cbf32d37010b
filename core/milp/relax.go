package milp

import (
	"context"
	"fmt"
	"math"
)

const (
	zeroCoef   = 1e-15
	artFeasTol = 1e-6
)

type sparseRow struct {
	cols  []int
	coefs []float64
	sense Sense
	rhs   float64
}

// relaxation is the LP relaxation of a Problem with every variable fixed by
// its own bounds substituted out. Rows left without a free term are checked
// once and dropped. Variable bounds stay out of the rows: the tableau handles
// them as column bounds.
type relaxation struct {
	p *Problem
	// col is the tableau column of each variable, -1 when fixed.
	col []int
	// vars is the variable behind each structural column.
	vars   []int
	rows   []sparseRow
	slacks int
	tol    float64
	limit  int
}

func newRelaxation(p *Problem, tol float64, limit int) (*relaxation, error) {
	r := &relaxation{p: p, col: make([]int, len(p.Vars)), tol: tol, limit: limit}
	for j, v := range p.Vars {
		if v.Lower > v.Upper+tol {
			return nil, fmt.Errorf("%w: variable %q has empty bounds", ErrInfeasible, v.Name)
		}
		r.col[j] = -1
		if v.Upper-v.Lower > tol {
			r.col[j] = len(r.vars)
			r.vars = append(r.vars, j)
		}
	}

	acc := make(map[int]float64)
	for _, c := range p.Rows {
		clear(acc)
		row := sparseRow{sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Terms {
			if k := r.col[t.Var]; k >= 0 {
				acc[k] += t.Coef
			} else {
				row.rhs -= t.Coef * p.Vars[t.Var].Lower
			}
		}
		for k, v := range acc {
			if math.Abs(v) > zeroCoef {
				row.cols = append(row.cols, k)
				row.coefs = append(row.coefs, v)
			}
		}
		if len(row.cols) == 0 {
			if !satisfied(0, row.sense, row.rhs, tol*(1+math.Abs(c.RHS))) {
				return nil, fmt.Errorf("%w: row %q", ErrInfeasible, c.Name)
			}
			continue
		}
		if row.sense != EQ {
			r.slacks++
		}
		r.rows = append(r.rows, row)
	}
	return r, nil
}

// solve returns the optimal tableau of the relaxation under [lb, ub]. With
// a warm tableau the search restarts from its basis; otherwise it runs both
// phases from a slack and artificial basis.
func (r *relaxation) solve(ctx context.Context, lb, ub []float64, warm *tableau) (*tableau, error) {
	for j, v := range r.p.Vars {
		if lb[j] > ub[j]+r.tol {
			return nil, ErrInfeasible
		}
		if r.col[j] < 0 && (v.Lower < lb[j]-r.tol || v.Lower > ub[j]+r.tol) {
			return nil, ErrInfeasible
		}
	}
	if warm != nil {
		t := warm.clone()
		for k, j := range r.vars {
			if t.lo[k] != lb[j] || t.hi[k] != ub[j] {
				t.setBounds(k, lb[j], math.Max(lb[j], ub[j]))
			}
		}
		return t, t.optimize(ctx)
	}

	t := r.tableau(lb, ub)
	if len(t.art) > 0 {
		phase1 := make([]float64, t.n)
		for _, a := range t.art {
			phase1[a] = 1
		}
		t.price(phase1)
		if err := t.optimize(ctx); err != nil {
			return nil, err
		}
		var residual float64
		for _, a := range t.art {
			residual += t.x[a]
		}
		if residual > artFeasTol {
			return nil, ErrInfeasible
		}
		for _, a := range t.art {
			t.hi[a] = 0
			if t.pos[a] < 0 {
				t.x[a] = 0
			} else {
				t.hi[a] = math.Max(t.x[a], 0)
			}
		}
	}
	t.price(t.cost)
	return t, t.optimize(ctx)
}

// tableau lays out the structural columns, one slack per inequality and one
// artificial per row whose slack cannot start basic at the lower bounds.
func (r *relaxation) tableau(lb, ub []float64) *tableau {
	ns := len(r.vars)
	resid := make([]float64, len(r.rows))
	arts := 0
	for i, row := range r.rows {
		resid[i] = row.rhs
		for q, k := range row.cols {
			resid[i] -= row.coefs[q] * lb[r.vars[k]]
		}
		if !slackStarts(row.sense, resid[i]) {
			arts++
		}
	}

	t := newTableau(len(r.rows), ns+r.slacks+arts, r.limit)
	for k, j := range r.vars {
		t.lo[k], t.hi[k], t.x[k] = lb[j], ub[j], lb[j]
		t.cost[k] = r.p.Vars[j].Cost
	}
	s, a := ns, ns+r.slacks
	for i, row := range r.rows {
		w := t.row(i)
		for q, k := range row.cols {
			w[k] = row.coefs[q]
		}
		w[t.n] = row.rhs

		basic, sign := -1, 1.0
		switch row.sense {
		case LE:
			w[s] = 1
		case GE:
			w[s] = -1
		}
		if row.sense != EQ {
			t.hi[s] = math.Inf(1)
			if slackStarts(row.sense, resid[i]) {
				basic, sign = s, w[s]
				t.x[s] = math.Abs(resid[i])
			}
			s++
		}
		if basic < 0 {
			if resid[i] < 0 {
				sign = -1
			}
			w[a] = sign
			t.hi[a] = math.Inf(1)
			t.x[a] = math.Abs(resid[i])
			t.art = append(t.art, a)
			basic = a
			a++
		}
		if sign < 0 {
			for j := range w {
				w[j] = -w[j]
			}
		}
		t.basis[i] = basic
		t.pos[basic] = i
	}
	return t
}

// slackStarts reports whether the slack of a row with residual resid at the
// lower bounds is non-negative.
func slackStarts(s Sense, resid float64) bool {
	switch s {
	case LE:
		return resid >= 0
	case GE:
		return resid <= 0
	}
	return false
}

// values maps the tableau back onto the variables of the problem.
func (r *relaxation) values(t *tableau, lb, ub []float64) []float64 {
	x := make([]float64, len(r.p.Vars))
	for j, v := range r.p.Vars {
		if k := r.col[j]; k >= 0 {
			x[j] = math.Min(math.Max(t.x[k], lb[j]), ub[j])
		} else {
			x[j] = v.Lower
		}
	}
	return x
}
