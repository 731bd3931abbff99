package structures

import "github.com/warp/cashflow-engine/engine"

// Turbo moves principal amortization earlier in the priority: excess
// interest pays down tranche principal ahead of reserve funding and
// subordinate fees, accelerating deleveraging.
type Turbo struct {
	blueprint Blueprint
	steps     []engine.Step
}

func NewTurbo(b Blueprint) *Turbo {
	t := &Turbo{blueprint: b}
	t.steps = t.build()
	return t
}

func (t *Turbo) Name() string { return "turbo" }

func (t *Turbo) build() []engine.Step {
	var steps []engine.Step
	steps = append(steps, feeSteps("senior", t.blueprint.SeniorFees)...)
	steps = append(steps, interestSteps(t.blueprint.Tranches)...)
	steps = append(steps, cureSteps()...)

	// The turbo feature: principal paid from excess interest, before the
	// reserve is funded.
	for _, id := range t.blueprint.Tranches {
		steps = append(steps, engine.Step{
			Name:   "turbo-principal-" + string(id),
			Kind:   engine.StepTranchePrincipal,
			Source: engine.CashInterest,
			Target: string(id),
		})
	}

	steps = append(steps, reserveStep(t.blueprint)...)
	steps = append(steps, feeSteps("sub", t.blueprint.SubordinateFees)...)

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
	steps = append(steps, principalSteps(t.blueprint.Tranches, engine.CashPrincipal)...)
	steps = append(steps, residualSteps()...)
	return steps
}

func (t *Turbo) Steps() []engine.Step { return t.steps }

func (t *Turbo) Gate(ctx *engine.AllocationContext, step engine.Step) bool {
	if step.Kind == engine.StepReinvest && t.blueprint.GateReinvestOnCoverage {
		return coveragePassing(ctx)
	}
	return true
}

func (t *Turbo) AmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	return defaultAmountFor(ctx, step)
}

var _ engine.Structure = (*Turbo)(nil)
