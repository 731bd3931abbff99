package structures

import "github.com/warp/cashflow-engine/engine"

// Liquidation is the distinct event-of-default priority: senior fees, then
// each tranche in strict seniority order receives interest (from interest
// proceeds, then from principal proceeds if short) followed by principal.
// No reserve funding, no reinvestment, no subordinate fee payments until
// every rated tranche is whole; anything left goes to equity.
type Liquidation struct {
	blueprint Blueprint
	steps     []engine.Step
}

func NewLiquidation(b Blueprint) *Liquidation {
	l := &Liquidation{blueprint: b}
	l.steps = l.build()
	return l
}

func (l *Liquidation) Name() string { return "liquidation" }

func (l *Liquidation) build() []engine.Step {
	var steps []engine.Step
	steps = append(steps, feeSteps("senior", l.blueprint.SeniorFees)...)

	for _, id := range l.blueprint.Tranches {
		steps = append(steps,
			engine.Step{
				Name:   "liq-interest-" + string(id),
				Kind:   engine.StepTrancheInterest,
				Source: engine.CashInterest,
				Target: string(id),
			},
			// Interest shortfall covered from liquidation proceeds.
			engine.Step{
				Name:   "liq-interest-shortfall-" + string(id),
				Kind:   engine.StepTrancheInterest,
				Source: engine.CashPrincipal,
				Target: string(id),
			},
			engine.Step{
				Name:   "liq-principal-" + string(id),
				Kind:   engine.StepTranchePrincipal,
				Source: engine.CashPrincipal,
				Target: string(id),
			},
		)
	}

	steps = append(steps, feeSteps("sub", l.blueprint.SubordinateFees)...)
	steps = append(steps, residualSteps()...)
	return steps
}

func (l *Liquidation) Steps() []engine.Step { return l.steps }

func (l *Liquidation) Gate(ctx *engine.AllocationContext, step engine.Step) bool {
	if step.Kind == engine.StepFee {
		// Subordinate fees wait until the rated stack is retired.
		for _, id := range l.blueprint.SubordinateFees {
			if string(id) == step.Target {
				return ctx.State.LiabilitiesRetired()
			}
		}
	}
	return true
}

func (l *Liquidation) AmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	return defaultAmountFor(ctx, step)
}

var _ engine.Structure = (*Liquidation)(nil)
