/*
waterfall.go - Cash-allocation state machine

PURPOSE:
  The allocator walks a deal's fixed, ordered step list once per period,
  paying each step min(amount due, remaining pool of the step's cash type)
  and recording every outcome. Variant policies (sequential-pay, turbo,
  PIK, equity claw-back, performance-tiered) differ only in step ordering,
  formulas, and gates - all supplied through the Structure interface - so
  the state machine itself is written once.

STATE MACHINE:
  Idle -> StepEvaluating -> StepPaying -> StepAdvancing -> Exhausted|Complete

  A period's allocation terminates when every step has been processed
  (Complete) or when both cash pools reach zero with steps remaining
  (Exhausted). Determinism: re-running allocation on an identical input
  snapshot produces an identical ExecutionRecord.

SEE ALSO:
  - structures/: the variant implementations of Structure
  - deal.go: the orchestrator that builds AllocationContext per period
*/
package engine

import "fmt"

// =============================================================================
// STEPS
// =============================================================================

type StepKind string

const (
	StepFee              StepKind = "fee"
	StepTrancheInterest  StepKind = "tranche_interest"
	StepTranchePIK       StepKind = "tranche_pik"
	StepICCure           StepKind = "ic_cure"
	StepOCCureInterest   StepKind = "oc_cure_interest"
	StepOCCurePrincipal  StepKind = "oc_cure_principal"
	StepReserveFund      StepKind = "reserve_fund"
	StepTranchePrincipal StepKind = "tranche_principal"
	StepReinvest         StepKind = "reinvest"
	StepIncentive        StepKind = "incentive"
	StepResidual         StepKind = "residual"
)

// Step is one ordered waterfall entry. The sequence of steps for a deal is
// fixed at setup; individual steps may still be gated closed in a period.
type Step struct {
	Name   string
	Kind   StepKind
	Source CashKind

	// Target names the tranche, fee, trigger, or account the step pays.
	Target string

	// Cap, when set, bounds the payment regardless of the amount due.
	Cap *Amount
}

// =============================================================================
// STRUCTURE - The per-variant capability interface
// =============================================================================

// Structure is the capability interface every waterfall variant implements.
// The ordered step list is chosen once per deal; Gate and AmountFor are
// evaluated against the current period's context.
type Structure interface {
	// Name identifies the variant (for records and configuration).
	Name() string

	// Steps returns the deal's fixed ordered step list.
	Steps() []Step

	// Gate reports whether the step is open this period. A closed gate
	// skips the step with zero payment.
	Gate(ctx *AllocationContext, step Step) bool

	// AmountFor computes the step's amount due under the variant's formula.
	AmountFor(ctx *AllocationContext, step Step) Amount
}

// =============================================================================
// CASH POOLS
// =============================================================================

// CashPools partitions the period's available cash by type. The allocator
// only ever deducts; collections were credited by the orchestrator.
type CashPools struct {
	Interest  Amount
	Principal Amount
}

func (p *CashPools) Of(kind CashKind) Amount {
	if kind == CashPrincipal {
		return p.Principal
	}
	return p.Interest
}

func (p *CashPools) Deduct(kind CashKind, amount Amount) {
	if kind == CashPrincipal {
		p.Principal = p.Principal.Sub(amount).FloorZero()
		return
	}
	p.Interest = p.Interest.Sub(amount).FloorZero()
}

func (p *CashPools) Exhausted() bool {
	return p.Interest.IsZero() && p.Principal.IsZero()
}

// =============================================================================
// ALLOCATION CONTEXT
// =============================================================================

// AllocationContext is what a Structure sees: read access to deal state and
// the period, plus the live pools. Write access to deal state is limited to
// ApplyPayment.
type AllocationContext struct {
	State       *DealState
	Period      Period
	Pools       *CashPools
	Liquidating bool

	// MaxReinvest is the principal the orchestrator permits the reinvest
	// step to divert this period (zero when liquidating or past the
	// reinvestment period).
	MaxReinvest Amount
}

// ApplyPayment applies a step's payment to its target entity and returns
// the amount actually applied. Paid-in-kind steps report pik=true and move
// no cash.
func (ctx *AllocationContext) ApplyPayment(step Step, amount Amount) (applied Amount, pik bool, err error) {
	switch step.Kind {
	case StepFee:
		fee := ctx.State.Fee(FeeID(step.Target))
		if fee == nil {
			return ZeroAmount(), false, &ConfigurationError{Field: "step." + step.Name, Detail: "unknown fee " + step.Target}
		}
		excess, perr := fee.Pay(amount)
		return amount.Sub(excess), false, perr

	case StepTrancheInterest:
		tr := ctx.State.Tranche(TrancheID(step.Target))
		if tr == nil {
			return ZeroAmount(), false, &ConfigurationError{Field: "step." + step.Name, Detail: "unknown tranche " + step.Target}
		}
		return tr.PayInterest(amount), false, nil

	case StepTranchePIK:
		tr := ctx.State.Tranche(TrancheID(step.Target))
		if tr == nil {
			return ZeroAmount(), false, &ConfigurationError{Field: "step." + step.Name, Detail: "unknown tranche " + step.Target}
		}
		return tr.CapitalizeInterest(amount), true, nil

	case StepICCure:
		remainder, perr := ctx.State.IC.PayCure(amount)
		return amount.Sub(remainder), false, perr

	case StepOCCureInterest:
		remainder, perr := ctx.State.OC.PayInterest(amount)
		return amount.Sub(remainder), false, perr

	case StepOCCurePrincipal:
		remainder, perr := ctx.State.OC.PayPrincipal(amount)
		return amount.Sub(remainder), false, perr

	case StepReserveFund:
		acct := ctx.State.Account(step.Target)
		if acct == nil {
			return ZeroAmount(), false, &ConfigurationError{Field: "step." + step.Name, Detail: "unknown account " + step.Target}
		}
		if perr := acct.Add(step.Source, amount); perr != nil {
			return ZeroAmount(), false, perr
		}
		return amount, false, nil

	case StepTranchePrincipal:
		tr := ctx.State.Tranche(TrancheID(step.Target))
		if tr == nil {
			return ZeroAmount(), false, &ConfigurationError{Field: "step." + step.Name, Detail: "unknown tranche " + step.Target}
		}
		return tr.PayPrincipal(amount), false, nil

	case StepReinvest:
		return ctx.State.Reinvest(ctx.Period, amount), false, nil

	case StepIncentive:
		ctx.State.PayManagerIncentive(amount)
		return amount, false, nil

	case StepResidual:
		ctx.State.DistributeResidual(amount)
		return amount, false, nil

	default:
		return ZeroAmount(), false, &ConfigurationError{Field: "step." + step.Name, Detail: fmt.Sprintf("unknown step kind %q", step.Kind)}
	}
}

// =============================================================================
// ALLOCATOR
// =============================================================================

type AllocState string

const (
	AllocIdle           AllocState = "idle"
	AllocStepEvaluating AllocState = "step_evaluating"
	AllocStepPaying     AllocState = "step_paying"
	AllocStepAdvancing  AllocState = "step_advancing"
	AllocExhausted      AllocState = "exhausted"
	AllocComplete       AllocState = "complete"
)

type Allocator struct {
	structure Structure
	state     AllocState
}

func NewAllocator(structure Structure) *Allocator {
	return &Allocator{structure: structure, state: AllocIdle}
}

func (a *Allocator) State() AllocState { return a.state }

// Run allocates the period's pools across the structure's steps, appending
// one StepRecord per step to rec. Steps drawing on an empty pool are still
// recorded (with zero paid) so the audit trail is complete.
func (a *Allocator) Run(ctx *AllocationContext, rec *ExecutionRecord) error {
	a.state = AllocIdle
	steps := a.structure.Steps()

	for i, step := range steps {
		a.state = AllocStepEvaluating

		if !a.structure.Gate(ctx, step) {
			rec.Steps = append(rec.Steps, StepRecord{
				Step:           step.Name,
				Source:         step.Source,
				Gated:          true,
				AmountDue:      ZeroAmount(),
				AmountPaid:     ZeroAmount(),
				RemainingAfter: ctx.Pools.Of(step.Source),
			})
			a.state = AllocStepAdvancing
			continue
		}

		// Interest cures have strict priority over principal cures: the
		// OC interest-cure phase closes when the principal-cure step is
		// reached, exposing any remaining shortfall to principal.
		if step.Kind == StepOCCurePrincipal && ctx.State.OC != nil {
			ctx.State.OC.CloseInterestPhase()
		}

		due := a.structure.AmountFor(ctx, step).FloorZero()
		if step.Cap != nil {
			due = due.Min(*step.Cap)
		}

		a.state = AllocStepPaying
		offer := due
		if step.Kind != StepTranchePIK {
			// PIK conversion consumes no cash, so the pool is no ceiling.
			offer = due.Min(ctx.Pools.Of(step.Source))
		}

		paid, pik, err := ctx.ApplyPayment(step, offer)
		if err != nil {
			return err
		}
		if !pik {
			ctx.Pools.Deduct(step.Source, paid)
		}

		rec.Steps = append(rec.Steps, StepRecord{
			Step:           step.Name,
			Source:         step.Source,
			AmountDue:      due,
			AmountPaid:     paid,
			PaidInKind:     pik,
			RemainingAfter: ctx.Pools.Of(step.Source),
		})

		a.state = AllocStepAdvancing
		if ctx.Pools.Exhausted() && i < len(steps)-1 {
			a.state = AllocExhausted
			return nil
		}
	}

	a.state = AllocComplete
	return nil
}
