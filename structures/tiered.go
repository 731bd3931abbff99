package structures

import "github.com/warp/cashflow-engine/engine"

// Tiered layers performance-driven fee steps over the sequential priority:
// the subordinate (deferrable) fees are deferred while the trailing equity
// return sits below the deferral threshold, and an incentive fee-sharing
// step opens once the trailing return clears the incentive threshold.
type Tiered struct {
	blueprint Blueprint
	steps     []engine.Step

	// Trailing metric configuration.
	Window         int // trailing periods
	PeriodsPerYear int

	// DeferralThreshold: below it, deferrable subordinate fees skip.
	DeferralThreshold engine.Rate

	// IncentiveThreshold and IncentiveShare: above the threshold, the
	// manager shares in residual interest.
	IncentiveThreshold engine.Rate
	IncentiveShare     engine.Rate
}

func NewTiered(b Blueprint, window, periodsPerYear int, deferral, incentive, share engine.Rate) *Tiered {
	t := &Tiered{
		blueprint:          b,
		Window:             window,
		PeriodsPerYear:     periodsPerYear,
		DeferralThreshold:  deferral,
		IncentiveThreshold: incentive,
		IncentiveShare:     share,
	}
	t.steps = t.build()
	return t
}

func (t *Tiered) Name() string { return "tiered" }

func (t *Tiered) build() []engine.Step {
	var steps []engine.Step
	steps = append(steps, feeSteps("senior", t.blueprint.SeniorFees)...)
	steps = append(steps, interestSteps(t.blueprint.Tranches)...)
	steps = append(steps, cureSteps()...)
	steps = append(steps, reserveStep(t.blueprint)...)
	steps = append(steps, feeSteps("sub", t.blueprint.SubordinateFees)...)

	// Fee sharing: a slice of residual interest to the manager when the
	// trailing equity return clears the incentive threshold.
	steps = append(steps, engine.Step{
		Name:   "incentive-share",
		Kind:   engine.StepIncentive,
		Source: engine.CashInterest,
		Target: "manager",
	})

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

func (t *Tiered) Steps() []engine.Step { return t.steps }

func (t *Tiered) trailingReturn(ctx *engine.AllocationContext) engine.Rate {
	return ctx.State.TrailingEquityReturn(t.Window, t.PeriodsPerYear)
}

func (t *Tiered) Gate(ctx *engine.AllocationContext, step engine.Step) bool {
	switch {
	case step.Kind == engine.StepFee:
		fee := ctx.State.Fee(engine.FeeID(step.Target))
		if fee != nil && fee.Deferrable && t.trailingReturn(ctx).LessThan(t.DeferralThreshold) {
			return false // fee defers; unpaid balance carries forward
		}
		return true
	case step.Name == "incentive-share":
		return t.trailingReturn(ctx).GreaterOrEqual(t.IncentiveThreshold)
	case step.Kind == engine.StepReinvest && t.blueprint.GateReinvestOnCoverage:
		return coveragePassing(ctx)
	}
	return true
}

func (t *Tiered) AmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	if step.Name == "incentive-share" {
		return ctx.Pools.Of(step.Source).MulRate(t.IncentiveShare)
	}
	return defaultAmountFor(ctx, step)
}

var _ engine.Structure = (*Tiered)(nil)
