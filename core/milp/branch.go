package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Status classifies the outcome of a solve.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

var (
	// ErrInfeasible indicates no assignment satisfies every row.
	ErrInfeasible = errors.New("milp: problem infeasible")
	// ErrUnbounded indicates the objective can decrease without limit.
	ErrUnbounded = errors.New("milp: problem unbounded")
	// ErrNodeLimit indicates the node budget ran out before any integer
	// feasible point was found.
	ErrNodeLimit = errors.New("milp: node limit reached without a feasible solution")
)

// Solution is the result of a solve. X is nil unless Status is optimal or
// feasible.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
	Nodes     int
}

// Solver solves a Problem.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (Solution, error)
}

// Options tunes BranchAndBound.
type Options struct {
	// NodeLimit caps the explored nodes. Zero means unlimited.
	NodeLimit int `json:"node_limit"`
	// Tolerance is used for integrality, bound and pruning checks.
	Tolerance float64 `json:"tolerance"`
	// Gap is the relative optimality gap below which a node is pruned.
	Gap float64 `json:"gap"`
	// IterationLimit caps the simplex iterations of one relaxation. Zero
	// derives the cap from the relaxation size.
	IterationLimit int `json:"iteration_limit"`
}

// DefaultTolerance is used when Options.Tolerance is zero.
const DefaultTolerance = 1e-9

const (
	// maxWarm is the stack depth beyond which pending nodes drop their
	// parent tableau and restart cold.
	maxWarm = 64
	// diveRounds bounds the rounding passes of the incumbent heuristic.
	diveRounds = 8
)

func (o Options) tol() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return DefaultTolerance
}

// prunes reports whether a node bounded below by bound cannot improve on the
// incumbent objective best.
func (o Options) prunes(bound, best float64) bool {
	return bound >= best-math.Max(o.tol()*(1+math.Abs(best)), o.Gap*math.Abs(best))
}

// BranchAndBound is a depth-first branch-and-bound solver. Children restart
// the simplex from their parent's basis.
type BranchAndBound struct {
	opts Options
}

// NewBranchAndBound returns a solver with the given options.
func NewBranchAndBound(opts Options) *BranchAndBound {
	return &BranchAndBound{opts: opts}
}

type node struct {
	lb, ub []float64
	// bound is the parent relaxation objective.
	bound float64
	// warm is the parent's optimal tableau, nil for a cold start.
	warm *tableau
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Solve explores the tree until it is exhausted, the node limit is hit or ctx
// is done. ctx is also checked inside each relaxation. A nil error is
// returned whenever Solution.X holds a feasible point.
func (s *BranchAndBound) Solve(ctx context.Context, p *Problem) (Solution, error) {
	if err := p.validate(); err != nil {
		return Solution{Status: StatusError}, err
	}
	tol := s.opts.tol()
	intTol := math.Max(tol, 1e-6)

	rel, err := newRelaxation(p, tol, s.opts.IterationLimit)
	if err != nil {
		return Solution{Status: StatusInfeasible}, err
	}

	lb, ub := p.bounds()
	stack := []node{{lb: lb, ub: ub, bound: math.Inf(-1)}}
	var best []float64
	bestObj := math.Inf(1)
	nodes := 0
	limitHit := false

	accept := func(x []float64) {
		obj := p.Objective(x)
		if obj < bestObj {
			best, bestObj = x, obj
		}
	}
	stop := func(err error) (Solution, error) {
		return Solution{Status: StatusCancelled, Nodes: nodes}, err
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stop(err)
		}
		if s.opts.NodeLimit > 0 && nodes >= s.opts.NodeLimit {
			limitHit = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if best != nil && s.opts.prunes(nd.bound, bestObj) {
			continue
		}
		nodes++

		t, err := rel.solve(ctx, nd.lb, nd.ub, nd.warm)
		switch {
		case errors.Is(err, ErrInfeasible):
			continue
		case errors.Is(err, ErrUnbounded):
			return Solution{Status: StatusUnbounded, Nodes: nodes}, err
		case cancelled(err):
			return stop(err)
		case err != nil:
			return Solution{Status: StatusError, Nodes: nodes}, fmt.Errorf("node %d: %w", nodes, err)
		}

		x := rel.values(t, nd.lb, nd.ub)
		obj := p.Objective(x)
		if best != nil && s.opts.prunes(obj, bestObj) {
			continue
		}

		j := mostFractional(p, x, intTol)
		e := mostViolated(p, x, intTol)
		if j < 0 && e < 0 {
			accept(roundIntegers(p, x))
			continue
		}
		if best == nil {
			y, err := rel.dive(ctx, t, nd, x, intTol)
			if cancelled(err) {
				return stop(err)
			}
			if y != nil {
				accept(y)
			}
		}

		warm := t
		if len(stack) >= maxWarm {
			warm = nil
		}
		near := node{lb: clone(nd.lb), ub: clone(nd.ub), bound: obj, warm: t}
		far := node{lb: clone(nd.lb), ub: clone(nd.ub), bound: obj, warm: warm}
		if j >= 0 {
			down, up := &near, &far
			if x[j]-math.Floor(x[j]) >= 0.5 {
				down, up = up, down
			}
			down.ub[j] = math.Floor(x[j])
			up.lb[j] = math.Ceil(x[j])
		} else {
			small, large := p.Exclusive[e][0], p.Exclusive[e][1]
			if math.Abs(x[large]) < math.Abs(x[small]) {
				small, large = large, small
			}
			near.ub[small] = 0
			far.ub[large] = 0
		}
		stack = append(stack, far, near)
	}

	if best == nil {
		if limitHit {
			return Solution{Status: StatusError, Nodes: nodes}, ErrNodeLimit
		}
		return Solution{Status: StatusInfeasible, Nodes: nodes}, ErrInfeasible
	}
	st := StatusOptimal
	if limitHit {
		st = StatusFeasible
	}
	return Solution{Status: st, X: best, Objective: bestObj, Nodes: nodes}, nil
}

// dive looks for a first incumbent below a node: every fractional integer is
// fixed to its nearest value and the smaller member of every violated pair
// to zero, then the relaxation is re-solved from t. It returns nil when a
// round comes back infeasible or the rounds run out.
func (r *relaxation) dive(ctx context.Context, t *tableau, nd node, x []float64, intTol float64) ([]float64, error) {
	p := r.p
	lb, ub := clone(nd.lb), clone(nd.ub)
	for round := 0; round < diveRounds; round++ {
		changed := false
		for j, v := range p.Vars {
			if !v.Integer || math.Abs(x[j]-math.Round(x[j])) <= intTol {
				continue
			}
			val := math.Min(math.Max(math.Round(x[j]), lb[j]), ub[j])
			lb[j], ub[j] = val, val
			changed = true
		}
		for _, e := range p.Exclusive {
			if !bothNonzero(x, e, intTol) {
				continue
			}
			k := e[0]
			if math.Abs(x[e[1]]) < math.Abs(x[k]) {
				k = e[1]
			}
			ub[k] = 0
			changed = true
		}
		if !changed {
			return roundIntegers(p, x), nil
		}
		next, err := r.solve(ctx, lb, ub, t)
		if cancelled(err) {
			return nil, err
		}
		if err != nil {
			return nil, nil
		}
		t = next
		x = r.values(t, lb, ub)
	}
	return nil, nil
}

// mostFractional returns the integer variable whose value is closest to a
// half, or -1 if x is integral.
func mostFractional(p *Problem, x []float64, tol float64) int {
	best, bestDist := -1, 0.0
	for j, v := range p.Vars {
		if !v.Integer {
			continue
		}
		f := x[j] - math.Floor(x[j])
		d := math.Min(f, 1-f)
		if d > tol && d > bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// mostViolated returns the exclusive pair whose smaller member is largest,
// or -1 if every pair holds.
func mostViolated(p *Problem, x []float64, tol float64) int {
	best, bestVal := -1, 0.0
	for i, e := range p.Exclusive {
		if !bothNonzero(x, e, tol) {
			continue
		}
		if v := math.Min(math.Abs(x[e[0]]), math.Abs(x[e[1]])); v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

func roundIntegers(p *Problem, x []float64) []float64 {
	for j, v := range p.Vars {
		if v.Integer {
			x[j] = math.Round(x[j])
		}
	}
	return x
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
