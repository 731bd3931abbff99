package structures

import "github.com/warp/cashflow-engine/engine"

// PIK wraps the sequential priority with a payment-in-kind toggle: for the
// blueprint's PIK-eligible tranches, the interest step converts to a
// balance capitalization while the election condition holds. The election
// here is a failing interest-coverage test; a passing test restores cash
// pay.
type PIK struct {
	blueprint Blueprint
	steps     []engine.Step
	pikable   map[engine.TrancheID]bool
}

func NewPIK(b Blueprint) *PIK {
	p := &PIK{
		blueprint: b,
		pikable:   make(map[engine.TrancheID]bool, len(b.PIKTranches)),
	}
	for _, id := range b.PIKTranches {
		p.pikable[id] = true
	}
	p.steps = p.build()
	return p
}

func (p *PIK) Name() string { return "pik" }

func (p *PIK) build() []engine.Step {
	var steps []engine.Step
	steps = append(steps, feeSteps("senior", p.blueprint.SeniorFees)...)

	// Each PIK-eligible tranche gets a paired cash step and PIK step;
	// exactly one of the pair is open in any period.
	for _, id := range p.blueprint.Tranches {
		steps = append(steps, engine.Step{
			Name:   "interest-" + string(id),
			Kind:   engine.StepTrancheInterest,
			Source: engine.CashInterest,
			Target: string(id),
		})
		if p.pikable[id] {
			steps = append(steps, engine.Step{
				Name:   "interest-pik-" + string(id),
				Kind:   engine.StepTranchePIK,
				Source: engine.CashInterest,
				Target: string(id),
			})
		}
	}

	steps = append(steps, cureSteps()...)
	steps = append(steps, reserveStep(p.blueprint)...)
	steps = append(steps, feeSteps("sub", p.blueprint.SubordinateFees)...)

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
	steps = append(steps, principalSteps(p.blueprint.Tranches, engine.CashPrincipal)...)
	steps = append(steps, residualSteps()...)
	return steps
}

func (p *PIK) Steps() []engine.Step { return p.steps }

func (p *PIK) pikElected(ctx *engine.AllocationContext) bool {
	return !ctx.State.IC.CurrentStatus()
}

func (p *PIK) Gate(ctx *engine.AllocationContext, step engine.Step) bool {
	switch step.Kind {
	case engine.StepTrancheInterest:
		if p.pikable[engine.TrancheID(step.Target)] && p.pikElected(ctx) {
			return false // cash pay closed; the PIK step takes over
		}
		return true
	case engine.StepTranchePIK:
		return p.pikElected(ctx)
	case engine.StepReinvest:
		if p.blueprint.GateReinvestOnCoverage {
			return coveragePassing(ctx)
		}
	}
	return true
}

func (p *PIK) AmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	return defaultAmountFor(ctx, step)
}

var _ engine.Structure = (*PIK)(nil)
