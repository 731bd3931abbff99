package structures

import "github.com/warp/cashflow-engine/engine"

// Clawback replaces the plain residual distribution with a performance
// hurdle: residual cash first covers the cumulative equity hurdle
// shortfall, then the manager catches up with a share of the excess, and
// the remainder goes to equity.
type Clawback struct {
	blueprint Blueprint
	steps     []engine.Step

	// CatchupShare is the manager's fraction of residual cash above the
	// hurdle.
	CatchupShare engine.Rate
}

func NewClawback(b Blueprint, catchupShare engine.Rate) *Clawback {
	c := &Clawback{blueprint: b, CatchupShare: catchupShare}
	c.steps = c.build()
	return c
}

func (c *Clawback) Name() string { return "clawback" }

func (c *Clawback) build() []engine.Step {
	var steps []engine.Step
	steps = append(steps, feeSteps("senior", c.blueprint.SeniorFees)...)
	steps = append(steps, interestSteps(c.blueprint.Tranches)...)
	steps = append(steps, cureSteps()...)
	steps = append(steps, reserveStep(c.blueprint)...)
	steps = append(steps, feeSteps("sub", c.blueprint.SubordinateFees)...)

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
	steps = append(steps, principalSteps(c.blueprint.Tranches, engine.CashPrincipal)...)

	// The claw-back residual: hurdle first, manager catch-up second,
	// remainder to equity. Interest and principal residuals each pass
	// through the same three-way split.
	for _, source := range []engine.CashKind{engine.CashInterest, engine.CashPrincipal} {
		suffix := "-" + string(source)
		steps = append(steps,
			engine.Step{Name: "residual-hurdle" + suffix, Kind: engine.StepResidual, Source: source, Target: "equity"},
			engine.Step{Name: "residual-catchup" + suffix, Kind: engine.StepIncentive, Source: source, Target: "manager"},
			engine.Step{Name: "residual-excess" + suffix, Kind: engine.StepResidual, Source: source, Target: "equity"},
		)
	}
	return steps
}

func (c *Clawback) Steps() []engine.Step { return c.steps }

func (c *Clawback) Gate(ctx *engine.AllocationContext, step engine.Step) bool {
	switch step.Name {
	case "residual-catchup-interest", "residual-catchup-principal",
		"residual-excess-interest", "residual-excess-principal":
		// Claw-back: nothing above the hurdle is distributed until the
		// cumulative hurdle has been met.
		return ctx.State.HurdleShortfall().IsZero()
	}
	if step.Kind == engine.StepReinvest && c.blueprint.GateReinvestOnCoverage {
		return coveragePassing(ctx)
	}
	return true
}

func (c *Clawback) AmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	switch step.Name {
	case "residual-hurdle-interest", "residual-hurdle-principal":
		return ctx.State.HurdleShortfall().Min(ctx.Pools.Of(step.Source))
	case "residual-catchup-interest", "residual-catchup-principal":
		return ctx.Pools.Of(step.Source).MulRate(c.CatchupShare)
	}
	return defaultAmountFor(ctx, step)
}

var _ engine.Structure = (*Clawback)(nil)
