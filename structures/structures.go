/*
Package structures implements the deal's waterfall variants.

PURPOSE:
  Each variant is a Structure: the fixed ordered step list, the per-step
  amount formulas, and the per-step gates for one payment priority. The
  allocator state machine in the engine package is written once; variants
  differ only here.

VARIANTS:
  Sequential  - reserve funding before principal; principal in strict
                tranche seniority order
  Turbo       - excess interest pays principal ahead of reserve funding
  PIK         - interest steps convert to balance capitalization while the
                PIK election condition (a failing IC test) holds
  Clawback    - residual distribution gated behind an equity performance
                hurdle, manager catch-up once the hurdle is met
  Tiered      - performance-tiered fee deferral and fee sharing driven by
                the trailing equity-return metric
  Liquidation - the distinct event-of-default priority

All variants are built from a Blueprint describing the deal's fee and
tranche ordering, taken once at deal setup. Steps are never recomputed
per period; gates may still close individual steps.
*/
package structures

import (
	"github.com/warp/cashflow-engine/engine"
)

// =============================================================================
// BLUEPRINT - What every variant needs to know about the deal
// =============================================================================

// Blueprint is the deal-level input to step-list construction.
type Blueprint struct {
	// SeniorFees are paid at the top of the interest waterfall, in order.
	SeniorFees []engine.FeeID

	// SubordinateFees are paid after cures and reserve funding, in order.
	SubordinateFees []engine.FeeID

	// Tranches in seniority order (most senior first), excluding equity.
	Tranches []engine.TrancheID

	// PIKTranches may capitalize interest under a PIK election.
	PIKTranches []engine.TrancheID

	// ReserveAccount and ReserveTarget configure the reserve-funding step.
	// An empty account name omits the step.
	ReserveAccount string
	ReserveTarget  engine.Amount

	// GateReinvestOnCoverage closes the reinvestment step while either
	// coverage test is failing.
	GateReinvestOnCoverage bool
}

// WithTranchesFrom derives the Blueprint's tranche ordering from the deal
// state, most senior first. Fees must still be split by the caller.
func (b Blueprint) WithTranchesFrom(state *engine.DealState) Blueprint {
	tranches := state.Tranches()
	maxSeniority := 0
	for _, t := range tranches {
		if !t.IsEquity && t.Seniority > maxSeniority {
			maxSeniority = t.Seniority
		}
	}
	var ids []engine.TrancheID
	for senior := 1; senior <= maxSeniority; senior++ {
		for _, t := range tranches {
			if !t.IsEquity && t.Seniority == senior {
				ids = append(ids, t.ID)
			}
		}
	}
	b.Tranches = ids
	return b
}

// =============================================================================
// SHARED FORMULAS AND GATES
// =============================================================================

// defaultAmountFor is the shared amount-due formula table. Variants layer
// their own cases on top of it.
func defaultAmountFor(ctx *engine.AllocationContext, step engine.Step) engine.Amount {
	switch step.Kind {
	case engine.StepFee:
		if f := ctx.State.Fee(engine.FeeID(step.Target)); f != nil {
			return f.Due()
		}
	case engine.StepTrancheInterest, engine.StepTranchePIK:
		if t := ctx.State.Tranche(engine.TrancheID(step.Target)); t != nil {
			return t.InterestDue
		}
	case engine.StepICCure:
		return ctx.State.IC.CureAmount()
	case engine.StepOCCureInterest:
		return ctx.State.OC.CureAmount()
	case engine.StepOCCurePrincipal:
		return ctx.State.OC.PrincipalCureNeeded()
	case engine.StepTranchePrincipal:
		if t := ctx.State.Tranche(engine.TrancheID(step.Target)); t != nil {
			return t.Balance
		}
	case engine.StepReserveFund:
		if a := ctx.State.Account(step.Target); a != nil && step.Cap != nil {
			return step.Cap.Sub(a.Total()).FloorZero()
		}
	case engine.StepReinvest:
		return ctx.MaxReinvest
	case engine.StepResidual, engine.StepIncentive:
		// "All remaining cash" formula.
		return ctx.Pools.Of(step.Source)
	}
	return engine.ZeroAmount()
}

func coveragePassing(ctx *engine.AllocationContext) bool {
	return ctx.State.OC.CurrentStatus() && ctx.State.IC.CurrentStatus()
}

// =============================================================================
// STEP-LIST BUILDING BLOCKS
// =============================================================================

func feeSteps(prefix string, fees []engine.FeeID) []engine.Step {
	steps := make([]engine.Step, 0, len(fees))
	for _, id := range fees {
		steps = append(steps, engine.Step{
			Name:   prefix + "-fee-" + string(id),
			Kind:   engine.StepFee,
			Source: engine.CashInterest,
			Target: string(id),
		})
	}
	return steps
}

func interestSteps(tranches []engine.TrancheID) []engine.Step {
	steps := make([]engine.Step, 0, len(tranches))
	for _, id := range tranches {
		steps = append(steps, engine.Step{
			Name:   "interest-" + string(id),
			Kind:   engine.StepTrancheInterest,
			Source: engine.CashInterest,
			Target: string(id),
		})
	}
	return steps
}

func principalSteps(tranches []engine.TrancheID, source engine.CashKind) []engine.Step {
	steps := make([]engine.Step, 0, len(tranches))
	for _, id := range tranches {
		steps = append(steps, engine.Step{
			Name:   "principal-" + string(id),
			Kind:   engine.StepTranchePrincipal,
			Source: source,
			Target: string(id),
		})
	}
	return steps
}

func cureSteps() []engine.Step {
	return []engine.Step{
		{Name: "ic-cure", Kind: engine.StepICCure, Source: engine.CashInterest, Target: "ic"},
		{Name: "oc-cure-interest", Kind: engine.StepOCCureInterest, Source: engine.CashInterest, Target: "oc"},
	}
}

func reserveStep(b Blueprint) []engine.Step {
	if b.ReserveAccount == "" {
		return nil
	}
	target := b.ReserveTarget
	return []engine.Step{{
		Name:   "reserve-funding",
		Kind:   engine.StepReserveFund,
		Source: engine.CashInterest,
		Target: b.ReserveAccount,
		Cap:    &target,
	}}
}

func residualSteps() []engine.Step {
	return []engine.Step{
		{Name: "residual-interest", Kind: engine.StepResidual, Source: engine.CashInterest, Target: "equity"},
		{Name: "residual-principal", Kind: engine.StepResidual, Source: engine.CashPrincipal, Target: "equity"},
	}
}
