package control

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/kilianp07/gridbalance/core/model"
)

// Capability is an optional request feature a strategy may honour.
type Capability uint8

const (
	CapFinalSoC Capability = 1 << iota
	CapBulk
	CapBounds
	CapCurtailment
	CapMultiBattery
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapFinalSoC, "final_soc"},
	{CapBulk, "bulk"},
	{CapBounds, "bounds"},
	{CapCurtailment, "curtailment"},
	{CapMultiBattery, "multi_battery"},
}

// Capabilities is a set of Capability flags.
type Capabilities uint8

// Has reports whether c is in the set.
func (s Capabilities) Has(c Capability) bool { return uint8(s)&uint8(c) != 0 }

func (s Capabilities) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if s.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Kind enumerates the supported (control_logic, operation_mode) pairs.
type Kind int

const (
	RuleScheduling Kind = iota + 1
	RuleNearRealTime
	OptimizationScheduling
)

func (k Kind) String() string {
	switch k {
	case RuleScheduling:
		return "rule_based/scheduling"
	case RuleNearRealTime:
		return "rule_based/near_real_time"
	case OptimizationScheduling:
		return "optimization_based/scheduling"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Strategy is the resolved dispatch strategy of a request.
type Strategy struct {
	Kind         Kind
	Capabilities Capabilities
}

// IsRuleBased reports whether the strategy runs the greedy controller.
func (s Strategy) IsRuleBased() bool {
	return s.Kind == RuleScheduling || s.Kind == RuleNearRealTime
}

const allCapabilities = Capabilities(CapFinalSoC | CapBulk | CapBounds | CapCurtailment | CapMultiBattery)

// Resolve maps a control logic and operation mode to a Strategy. Unsupported
// pairs yield a *ConfigurationError.
func Resolve(logic model.ControlLogic, mode model.OperationMode) (Strategy, error) {
	switch {
	case logic == model.RuleBased && mode == model.Scheduling:
		return Strategy{Kind: RuleScheduling}, nil
	case logic == model.RuleBased && mode == model.NearRealTime:
		return Strategy{Kind: RuleNearRealTime}, nil
	case logic == model.OptimizationBased && mode == model.Scheduling:
		return Strategy{Kind: OptimizationScheduling, Capabilities: allCapabilities}, nil
	case logic == model.OptimizationBased && mode == model.NearRealTime:
		return Strategy{}, &ConfigurationError{Logic: logic, Mode: mode,
			Reason: "optimization-based control does not support near-real-time operation"}
	}
	return Strategy{}, &ConfigurationError{Logic: logic, Mode: mode, Reason: "unsupported combination"}
}

// ignored lists the request features the strategy will not honour.
func (s Strategy) ignored(req model.Request) []string {
	var out []string
	check := func(c Capability, present bool, name string) {
		if present && !s.Capabilities.Has(c) {
			out = append(out, name)
		}
	}
	hasFinal := lo.SomeBy(req.Batteries, func(b model.BatterySpec) bool { return b.FinalSoC != nil })
	check(CapFinalSoC, hasFinal, "final_SoC")
	check(CapBulk, req.Bulk != nil, "bulk")
	check(CapBounds, len(req.Limitations) > 0, "P_net_after_kW_limitation")
	check(CapCurtailment, req.PVCurtailment(), "pv_curtailment")
	return out
}
