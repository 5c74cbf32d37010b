// Package milp models mixed-integer linear programs and solves them by
// branch-and-bound over warm-started bounded simplex relaxations.
package milp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint row.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case EQ:
		return "="
	case GE:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Term is one coefficient of a constraint row.
type Term struct {
	Var  int
	Coef float64
}

// T builds a Term.
func T(v int, coef float64) Term { return Term{Var: v, Coef: coef} }

// Variable is a decision variable. Lower must be finite; Upper may be
// +Inf.
type Variable struct {
	Name    string
	Lower   float64
	Upper   float64
	Cost    float64
	Integer bool
}

// Constraint is a linear row sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem minimises sum(Cost*x) over Vars subject to Rows. Each Exclusive
// pair allows at most one of its two variables to be nonzero.
type Problem struct {
	Vars      []Variable
	Rows      []Constraint
	Exclusive [][2]int
}

// AddVar appends a continuous variable and returns its index.
func (p *Problem) AddVar(name string, lower, upper, cost float64) int {
	p.Vars = append(p.Vars, Variable{Name: name, Lower: lower, Upper: upper, Cost: cost})
	return len(p.Vars) - 1
}

// AddBinary appends a 0/1 variable and returns its index.
func (p *Problem) AddBinary(name string, cost float64) int {
	p.Vars = append(p.Vars, Variable{Name: name, Lower: 0, Upper: 1, Cost: cost, Integer: true})
	return len(p.Vars) - 1
}

// AddExclusive declares that a and b may not both be nonzero.
func (p *Problem) AddExclusive(a, b int) {
	p.Exclusive = append(p.Exclusive, [2]int{a, b})
}

// AddRow appends a constraint.
func (p *Problem) AddRow(name string, sense Sense, rhs float64, terms ...Term) {
	p.Rows = append(p.Rows, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// Objective evaluates the objective at x.
func (p *Problem) Objective(x []float64) float64 {
	var sum float64
	for j, v := range p.Vars {
		sum += v.Cost * x[j]
	}
	return sum
}

// Check returns an error naming the first bound, integrality, row or
// exclusive pair that x violates by more than tol.
func (p *Problem) Check(x []float64, tol float64) error {
	if len(x) != len(p.Vars) {
		return fmt.Errorf("milp: solution has %d values for %d variables", len(x), len(p.Vars))
	}
	for j, v := range p.Vars {
		if x[j] < v.Lower-tol || x[j] > v.Upper+tol {
			return fmt.Errorf("milp: variable %q=%g outside [%g, %g]", v.Name, x[j], v.Lower, v.Upper)
		}
		if v.Integer && math.Abs(x[j]-math.Round(x[j])) > tol {
			return fmt.Errorf("milp: variable %q=%g is not integral", v.Name, x[j])
		}
	}
	for _, r := range p.Rows {
		var lhs float64
		for _, t := range r.Terms {
			lhs += t.Coef * x[t.Var]
		}
		if !satisfied(lhs, r.Sense, r.RHS, tol*(1+math.Abs(r.RHS))) {
			return fmt.Errorf("milp: row %q violated: %g %s %g", r.Name, lhs, r.Sense, r.RHS)
		}
	}
	for _, e := range p.Exclusive {
		if bothNonzero(x, e, tol) {
			return fmt.Errorf("milp: %q=%g and %q=%g are exclusive",
				p.Vars[e[0]].Name, x[e[0]], p.Vars[e[1]].Name, x[e[1]])
		}
	}
	return nil
}

func (p *Problem) validate() error {
	for j, v := range p.Vars {
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
			return fmt.Errorf("milp: variable %q: lower bound must be finite", v.Name)
		}
		if math.IsNaN(v.Upper) || math.IsInf(v.Upper, -1) {
			return fmt.Errorf("milp: variable %q: invalid upper bound", v.Name)
		}
		if math.IsNaN(v.Cost) || math.IsInf(v.Cost, 0) {
			return fmt.Errorf("milp: variable %d: invalid cost", j)
		}
	}
	for _, r := range p.Rows {
		for _, t := range r.Terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return fmt.Errorf("milp: row %q references unknown variable %d", r.Name, t.Var)
			}
		}
		if math.IsNaN(r.RHS) || math.IsInf(r.RHS, 0) {
			return fmt.Errorf("milp: row %q: invalid right-hand side", r.Name)
		}
	}
	for _, e := range p.Exclusive {
		for _, v := range e {
			if v < 0 || v >= len(p.Vars) {
				return fmt.Errorf("milp: exclusive pair references unknown variable %d", v)
			}
		}
		if e[0] == e[1] {
			return fmt.Errorf("milp: variable %q is exclusive with itself", p.Vars[e[0]].Name)
		}
	}
	return nil
}

func (p *Problem) bounds() (lb, ub []float64) {
	lb = make([]float64, len(p.Vars))
	ub = make([]float64, len(p.Vars))
	for j, v := range p.Vars {
		lb[j], ub[j] = v.Lower, v.Upper
	}
	return lb, ub
}

func bothNonzero(x []float64, e [2]int, tol float64) bool {
	return math.Abs(x[e[0]]) > tol && math.Abs(x[e[1]]) > tol
}

func satisfied(lhs float64, s Sense, rhs, tol float64) bool {
	switch s {
	case LE:
		return lhs <= rhs+tol
	case GE:
		return lhs >= rhs-tol
	default:
		return math.Abs(lhs-rhs) <= tol
	}
}
