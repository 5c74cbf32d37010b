package optimizer

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/kilianp07/gridbalance/core/horizon"
	"github.com/kilianp07/gridbalance/core/milp"
	"github.com/kilianp07/gridbalance/core/model"
)

// batteryVars holds the variable indices of one battery.
type batteryVars struct {
	ch, dis []int
	// energy has one entry per grid point, Len()+1 in total, in kWh.
	energy []int
}

// layout records where each quantity lives in the problem.
type layout struct {
	pv, imp, exp []int
	alphaImp     int
	alphaExp     int
	bats         []batteryVars
}

// build translates the horizon and batteries into a MILP. Energies are
// expressed in kWh and powers in kW. The charge/discharge and import/export
// indicators are carried as exclusive pairs: each pair may have at most one
// nonzero member, which is the feasible set of a binary indicator per
// member, a rating link and an indicator sum of at most one.
func build(h *horizon.Horizon, bats []model.Battery, curtail bool) (*milp.Problem, *layout) {
	T := h.Len()
	dtH := h.StepSeconds() / 3600
	p := &milp.Problem{}
	l := &layout{
		pv: make([]int, T), imp: make([]int, T), exp: make([]int, T),
		bats: make([]batteryVars, len(bats)),
	}
	inf := math.Inf(1)

	l.alphaImp = p.AddVar("alpha_imp", 0, inf, 1)
	l.alphaExp = p.AddVar("alpha_exp", 0, inf, 1)

	pDisTotal := lo.SumBy(bats, func(b model.Battery) float64 {
		if b.IsHousehold() {
			return 0
		}
		return b.PDisMaxKW
	})

	for n, b := range bats {
		bv := batteryVars{
			ch: make([]int, T), dis: make([]int, T),
			energy: make([]int, T+1),
		}
		capKWh := b.CapacityKWs / 3600
		eMin, eMax := b.MinSoC*capKWh, b.MaxSoC*capKWh
		for k := 0; k <= T; k++ {
			bv.energy[k] = p.AddVar(fmt.Sprintf("E_%s_%d", b.ID, k), eMin, eMax, 0)
		}
		e0 := math.Min(math.Max(b.InitialSoC*capKWh, eMin), eMax)
		pin(p, bv.energy[0], e0)

		switch {
		case b.IsHousehold():
			pin(p, bv.energy[h.DayEndIndex+1], eMax)
		case b.FinalSoC != nil:
			pin(p, bv.energy[T], math.Min(math.Max(*b.FinalSoC*capKWh, eMin), eMax))
		}

		for k := 0; k < T; k++ {
			bv.ch[k] = p.AddVar(fmt.Sprintf("ch_%s_%d", b.ID, k), 0, b.PChMaxKW, 0)
			bv.dis[k] = p.AddVar(fmt.Sprintf("dis_%s_%d", b.ID, k), 0, b.PDisMaxKW, 0)
			p.AddExclusive(bv.ch[k], bv.dis[k])
			if b.IsHousehold() {
				pin(p, bv.dis[k], 0)
			}

			p.AddRow(fmt.Sprintf("soc_%s_%d", b.ID, k), milp.EQ, 0,
				milp.T(bv.energy[k+1], 1),
				milp.T(bv.energy[k], -1),
				milp.T(bv.ch[k], -b.ChEfficiency*dtH),
				milp.T(bv.dis[k], dtH/b.DisEfficiency),
			)
		}
		l.bats[n] = bv
	}

	for k, pt := range h.Points {
		net := pt.NetKW()
		gen := math.Max(pt.PGenKW, 0)

		pvLo := gen
		if curtail {
			pvLo = 0
		}
		l.pv[k] = p.AddVar(fmt.Sprintf("pv_%d", k), pvLo, gen, 0)

		impMax := math.Max(net, 0)
		expMax := gen + pDisTotal + impMax
		l.imp[k] = p.AddVar(fmt.Sprintf("imp_%d", k), 0, impMax, 1)
		l.exp[k] = p.AddVar(fmt.Sprintf("exp_%d", k), 0, expMax, 1)
		p.AddExclusive(l.imp[k], l.exp[k])

		balance := []milp.Term{milp.T(l.pv[k], 1), milp.T(l.imp[k], 1), milp.T(l.exp[k], -1)}
		var charge []milp.Term
		for n := range bats {
			bv := l.bats[n]
			balance = append(balance, milp.T(bv.dis[k], 1), milp.T(bv.ch[k], -1))
			charge = append(charge, milp.T(bv.ch[k], 1))
		}
		p.AddRow(fmt.Sprintf("balance_%d", k), milp.EQ, pt.PLoadKW, balance...)

		p.AddRow(fmt.Sprintf("peak_imp_%d", k), milp.LE, 0, milp.T(l.imp[k], 1), milp.T(l.alphaImp, -1))
		p.AddRow(fmt.Sprintf("peak_exp_%d", k), milp.LE, 0, milp.T(l.exp[k], 1), milp.T(l.alphaExp, -1))

		if net >= 0 {
			for n := range bats {
				pin(p, l.bats[n].ch[k], 0)
			}
		}
		if net <= 0 {
			pin(p, l.imp[k], 0)
			p.AddRow(fmt.Sprintf("surplus_%d", k), milp.LE, -net, charge...)
		}

		if u := h.Upper[k]; u != nil {
			p.AddRow(fmt.Sprintf("upper_%d", k), milp.LE, *u, milp.T(l.imp[k], 1), milp.T(l.exp[k], -1))
		}
		if lw := h.Lower[k]; lw != nil {
			p.AddRow(fmt.Sprintf("lower_%d", k), milp.GE, *lw, milp.T(l.imp[k], 1), milp.T(l.exp[k], -1))
		}
	}

	if w := h.Bulk; w != nil {
		var terms []milp.Term
		for n, b := range bats {
			bv := l.bats[n]
			for k := w.From; k <= w.To; k++ {
				terms = append(terms,
					milp.T(bv.ch[k], b.ChEfficiency*dtH),
					milp.T(bv.dis[k], -dtH/b.DisEfficiency))
			}
		}
		p.AddRow("bulk", milp.EQ, w.EnergyKWh, terms...)
	}
	return p, l
}

func pin(p *milp.Problem, v int, val float64) {
	p.Vars[v].Lower, p.Vars[v].Upper = val, val
}
