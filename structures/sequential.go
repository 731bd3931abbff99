package structures

import "github.com/warp/cashflow-engine/engine"

// Sequential is the base priority: senior fees, tranche interest by
// seniority, coverage cures, reserve funding, subordinate fees, then the
// principal waterfall (principal cure, reinvestment, sequential principal)
// and residual distributions.
type Sequential struct {
	blueprint Blueprint
	steps     []engine.Step
}

func NewSequential(b Blueprint) *Sequential {
	s := &Sequential{blueprint: b}
	s.steps = s.build()
	return s
}

func (s *Sequential) Name() string { return "sequential" }

func (s *Sequential) build() []engine.Step {
	var steps []engine.Step
	steps = append(steps, feeSteps("senior", s.blueprint.SeniorFees)...)
	steps = append(steps, interestSteps(s.blueprint.Tranches)...)
	steps = append(steps, cureSteps()...)
	steps = append(steps, reserveStep(s.blueprint)...)
	steps = append(steps, feeSteps("sub", s.blueprint.SubordinateFees)...)

	steps = append(steps, engine.Step{
		Name:   "oc-cure-principal",
		Kind:   engine.StepOCCurePrincipal,
		Source: engine.CashPrincipal,
		Target: "oc",
	})
	steps = append(steps, engine.Step{
		Name:   "reinvestment",
		Kind:   engine.StepReinvest,
		Source: engine.CashPrincipal,
		Target: "reinvest",
	})
	steps = append(steps, principalSteps(s.blueprint.Tranches, engine.CashPrincipal)...)
	steps = append(steps, residualSteps()...)
	return steps
}

func (s *Sequential) Steps() []engine.Step { return s.steps }

func (s *Sequential) Gate(ctx *engine.AllocationContext, step engine.Step) bool {
	if step.Kind == engine.StepReinvest && s.blueprint.GateReinvestOnCoverage {
		return coveragePassing(ctx)
	}
	return true
}

func (s *Sequential) AmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	return defaultAmountFor(ctx, step)
}

var _ engine.Structure = (*Sequential)(nil)
