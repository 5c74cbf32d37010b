package milp

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrIterationLimit indicates a relaxation ran out of simplex iterations.
var ErrIterationLimit = errors.New("milp: simplex iteration limit reached")

const (
	// feasTol is the primal feasibility tolerance of basic values.
	feasTol = 1e-7
	// optTol is the reduced cost below which a column may enter.
	optTol = 1e-9
	// pivTol is the smallest pivot magnitude accepted by a ratio test.
	pivTol = 1e-9
	// ratioTol groups ratios that tie.
	ratioTol = 1e-12
	// dropTol is the multiplier magnitude skipped during elimination.
	dropTol = 1e-13
	// checkEvery is the number of iterations between context checks.
	checkEvery = 16
	// blandAfter switches pricing to Bland's rule after that many
	// consecutive degenerate iterations.
	blandAfter = 50
	// refreshRounds bounds the dual/primal passes after recomputing the
	// basic values from the tableau.
	refreshRounds = 3
)

// tableau is a dense bounded-variable simplex tableau. Row i holds B^-1 A
// followed by B^-1 b in its last entry. Every column has bounds [lo, hi] with
// a finite lo; nonbasic columns sit on one of them, as flagged by upper.
type tableau struct {
	m, n  int
	a     []float64
	d     []float64
	lo    []float64
	hi    []float64
	x     []float64
	upper []bool
	basis []int
	pos   []int
	// art lists the artificial columns of a cold start.
	art   []int
	cost  []float64
	limit int
	iter  int
}

func newTableau(m, n, limit int) *tableau {
	if limit <= 0 {
		limit = 50*(m+n) + 1000
	}
	t := &tableau{
		m: m, n: n,
		a:     make([]float64, m*(n+1)),
		d:     make([]float64, n+1),
		lo:    make([]float64, n),
		hi:    make([]float64, n),
		x:     make([]float64, n),
		upper: make([]bool, n),
		basis: make([]int, m),
		pos:   make([]int, n),
		cost:  make([]float64, n),
		limit: limit,
	}
	for j := range t.pos {
		t.pos[j] = -1
	}
	return t
}

func (t *tableau) row(i int) []float64 {
	w := t.n + 1
	return t.a[i*w : (i+1)*w]
}

func (t *tableau) at(i, j int) float64 { return t.a[i*(t.n+1)+j] }

func (t *tableau) clone() *tableau {
	c := *t
	c.a = append([]float64(nil), t.a...)
	c.d = append([]float64(nil), t.d...)
	c.lo = append([]float64(nil), t.lo...)
	c.hi = append([]float64(nil), t.hi...)
	c.x = append([]float64(nil), t.x...)
	c.upper = append([]bool(nil), t.upper...)
	c.basis = append([]int(nil), t.basis...)
	c.pos = append([]int(nil), t.pos...)
	return &c
}

// price recomputes the reduced costs for the column costs c.
func (t *tableau) price(c []float64) {
	copy(t.d, c)
	t.d[t.n] = 0
	for i, b := range t.basis {
		if cb := c[b]; cb != 0 {
			floats.AddScaled(t.d, -cb, t.row(i))
		}
	}
}

// setBounds moves column k to [l, u]. A nonbasic column is kept on the same
// side and the basic values follow it; a basic column may become infeasible,
// which the dual pass repairs.
func (t *tableau) setBounds(k int, l, u float64) {
	t.lo[k], t.hi[k] = l, u
	if t.pos[k] >= 0 {
		return
	}
	v := l
	if t.upper[k] && !math.IsInf(u, 1) && l < u {
		v = u
	} else {
		t.upper[k] = false
	}
	t.shift(k, v-t.x[k])
}

// shift moves column k by delta and updates the basic values.
func (t *tableau) shift(k int, delta float64) {
	if delta == 0 {
		return
	}
	for i, b := range t.basis {
		if a := t.at(i, k); a != 0 {
			t.x[b] -= a * delta
		}
	}
	t.x[k] += delta
}

func (t *tableau) pivot(r, q int) {
	pr := t.row(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < t.m; i++ {
		if i == r {
			continue
		}
		ri := t.row(i)
		f := ri[q]
		if f == 0 {
			continue
		}
		if math.Abs(f) > dropTol {
			floats.AddScaled(ri, -f, pr)
		}
		ri[q] = 0
	}
	if f := t.d[q]; f != 0 {
		floats.AddScaled(t.d, -f, pr)
		t.d[q] = 0
	}
	t.pos[t.basis[r]] = -1
	t.basis[r] = q
	t.pos[q] = r
	t.upper[q] = false
}

// tick counts an iteration and checks the limit and ctx.
func (t *tableau) tick(ctx context.Context) error {
	if t.iter%checkEvery == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	t.iter++
	if t.iter > t.limit {
		return ErrIterationLimit
	}
	return nil
}

// optimize runs the dual simplex until the basis is primal feasible, then
// the primal simplex until no column prices out. The reduced costs must be
// dual feasible when the basis is not primal feasible.
func (t *tableau) optimize(ctx context.Context) error {
	t.iter = 0
	for round := 0; ; round++ {
		if err := t.dual(ctx); err != nil {
			return err
		}
		if err := t.primal(ctx); err != nil {
			return err
		}
		t.refresh()
		if round+1 >= refreshRounds || t.infeasibility() <= feasTol {
			return nil
		}
	}
}

func (t *tableau) movable(j int) bool {
	return t.pos[j] < 0 && t.hi[j] > t.lo[j]
}

// entering returns the column to enter and its direction, or -1.
func (t *tableau) entering(bland bool) (int, float64) {
	q, dir, best := -1, 0.0, 0.0
	for j := 0; j < t.n; j++ {
		if !t.movable(j) {
			continue
		}
		dj := t.d[j]
		var s float64
		switch {
		case dj < -optTol && !t.upper[j]:
			s = 1
		case dj > optTol && t.upper[j]:
			s = -1
		default:
			continue
		}
		if bland {
			return j, s
		}
		if math.Abs(dj) > best {
			q, dir, best = j, s, math.Abs(dj)
		}
	}
	return q, dir
}

func (t *tableau) primal(ctx context.Context) error {
	degenerate := 0
	for {
		if err := t.tick(ctx); err != nil {
			return err
		}
		bland := degenerate > blandAfter
		q, dir := t.entering(bland)
		if q < 0 {
			return nil
		}

		step := t.hi[q] - t.lo[q]
		r, rAlpha := -1, 0.0
		for i, b := range t.basis {
			alpha := dir * t.at(i, q)
			var lim float64
			switch {
			case alpha > pivTol:
				lim = (t.x[b] - t.lo[b]) / alpha
			case alpha < -pivTol && !math.IsInf(t.hi[b], 1):
				lim = (t.hi[b] - t.x[b]) / -alpha
			default:
				continue
			}
			lim = math.Max(lim, 0)
			switch {
			case lim < step-ratioTol:
			case r >= 0 && lim <= step+ratioTol && t.prefer(alpha, rAlpha, b, t.basis[r], bland):
			default:
				continue
			}
			r, step, rAlpha = i, lim, alpha
		}
		if r < 0 && math.IsInf(step, 1) {
			return ErrUnbounded
		}
		if step <= ratioTol {
			degenerate++
		} else {
			degenerate = 0
		}

		t.shift(q, dir*step)
		if r < 0 {
			t.upper[q] = !t.upper[q]
			if t.upper[q] {
				t.x[q] = t.hi[q]
			} else {
				t.x[q] = t.lo[q]
			}
			continue
		}
		b := t.basis[r]
		if rAlpha > 0 {
			t.x[b] = t.lo[b]
		} else {
			t.x[b] = t.hi[b]
		}
		t.pivot(r, q)
		t.upper[b] = rAlpha < 0
	}
}

// prefer breaks ratio ties: the larger pivot normally, the lower basic index
// under Bland's rule.
func (t *tableau) prefer(alpha, cur float64, b, curB int, bland bool) bool {
	if bland {
		return b < curB
	}
	return math.Abs(alpha) > math.Abs(cur)
}

func (t *tableau) dual(ctx context.Context) error {
	for {
		r, worst, toLower := -1, feasTol, false
		for i, b := range t.basis {
			if v := t.lo[b] - t.x[b]; v > worst {
				r, worst, toLower = i, v, true
			}
			if v := t.x[b] - t.hi[b]; v > worst {
				r, worst, toLower = i, v, false
			}
		}
		if r < 0 {
			return nil
		}
		if err := t.tick(ctx); err != nil {
			return err
		}

		q, best, qAlpha := -1, math.Inf(1), 0.0
		for j := 0; j < t.n; j++ {
			if !t.movable(j) {
				continue
			}
			alpha := t.at(r, j)
			if math.Abs(alpha) <= pivTol {
				continue
			}
			// The leaving value moves by -alpha times the entering step.
			up := !t.upper[j]
			if toLower != (up == (alpha < 0)) {
				continue
			}
			ratio := math.Abs(t.d[j] / alpha)
			if ratio < best-ratioTol || (ratio <= best+ratioTol && math.Abs(alpha) > math.Abs(qAlpha)) {
				q, best, qAlpha = j, ratio, alpha
			}
		}
		if q < 0 {
			return ErrInfeasible
		}

		b := t.basis[r]
		target := t.hi[b]
		if toLower {
			target = t.lo[b]
		}
		t.shift(q, (t.x[b]-target)/qAlpha)
		t.x[b] = target
		t.pivot(r, q)
		t.upper[b] = !toLower
	}
}

// refresh recomputes the basic values from the right-hand side column.
func (t *tableau) refresh() {
	for i, b := range t.basis {
		row := t.row(i)
		v := row[t.n]
		for j := 0; j < t.n; j++ {
			if t.pos[j] < 0 && row[j] != 0 {
				v -= row[j] * t.x[j]
			}
		}
		t.x[b] = v
	}
}

func (t *tableau) infeasibility() float64 {
	var worst float64
	for _, b := range t.basis {
		worst = math.Max(worst, math.Max(t.lo[b]-t.x[b], t.x[b]-t.hi[b]))
	}
	return worst
}
