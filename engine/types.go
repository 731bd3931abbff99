/*
Package engine implements the period-orchestration and cash-allocation core
for a structured-finance vehicle.

PURPOSE:
  This package contains the deal-agnostic types and algorithms that drive a
  deal through its accounting periods: the period scheduler, the cash ledger,
  the coverage-trigger calculators, the fee-accrual engine, the reinvestment
  amortizer, the waterfall allocation state machine, and the orchestrator
  that threads state from one period into the next.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: An exact base-10 currency quantity (no binary-float drift)
  - Rate: An exact base-10 ratio (coupons, thresholds, curve points)
  - CashKind: Interest vs. principal typing for every cash movement
  - Tranche: A liability class with balance, coupon, and seniority

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so ratio tests never flip near a
     threshold because of rounding.
  2. Explicit state threading: All cross-period state lives in owned
     aggregates that are rolled forward, never in package globals.
  3. Determinism: Tranches, fees, and triggers are held in insertion order
     so re-running a period produces an identical ExecutionRecord.

USAGE:
  bal := engine.MustAmount("250000000")
  coupon := engine.RateFromFloat(0.065)
  due := bal.MulRate(coupon).MulRate(engine.Thirty360.Fraction(start, end))

SEE ALSO:
  - schedule.go: Period generation
  - waterfall.go: Allocation state machine
  - deal.go: The orchestrator tying everything together
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Exact currency quantity
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func NewAmountFromInt(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value)}
}

// MustAmount parses a decimal string, returning zero on malformed input.
// Use in configuration defaults and tests where the literal is known good.
func MustAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Value: decimal.Zero}
	}
	return Amount{Value: d}
}

func ZeroAmount() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount        { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount        { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount                { return Amount{Value: a.Value.Neg()} }
func (a Amount) MulRate(r Rate) Amount      { return Amount{Value: a.Value.Mul(r.Value)} }
func (a Amount) Div(d decimal.Decimal) Amount { return Amount{Value: a.Value.Div(d)} }
func (a Amount) IsZero() bool               { return a.Value.IsZero() }
func (a Amount) IsNegative() bool           { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool           { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool        { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool  { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool     { return a.Value.LessThan(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// FloorZero clamps a negative amount to zero. Balances and cure requirements
// are never allowed below zero.
func (a Amount) FloorZero() Amount {
	if a.IsNegative() {
		return ZeroAmount()
	}
	return a
}

// Half returns a/2 exactly; used by average-balance fee bases.
func (a Amount) Half() Amount {
	return Amount{Value: a.Value.Div(decimal.NewFromInt(2))}
}

func (a Amount) String() string { return a.Value.String() }

// =============================================================================
// RATE - Exact ratio (coupons, thresholds, curve points, day-count fractions)
// =============================================================================

type Rate struct {
	Value decimal.Decimal
}

func RateFromFloat(v float64) Rate { return Rate{Value: decimal.NewFromFloat(v)} }

func MustRate(s string) Rate {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{Value: decimal.Zero}
	}
	return Rate{Value: d}
}

func ZeroRate() Rate { return Rate{Value: decimal.Zero} }
func OneRate() Rate  { return Rate{Value: decimal.NewFromInt(1)} }

func (r Rate) Add(o Rate) Rate            { return Rate{Value: r.Value.Add(o.Value)} }
func (r Rate) Sub(o Rate) Rate            { return Rate{Value: r.Value.Sub(o.Value)} }
func (r Rate) Mul(o Rate) Rate            { return Rate{Value: r.Value.Mul(o.Value)} }
func (r Rate) Equal(o Rate) bool          { return r.Value.Equal(o.Value) }
func (r Rate) IsZero() bool               { return r.Value.IsZero() }
func (r Rate) IsNegative() bool           { return r.Value.IsNegative() }
func (r Rate) GreaterThan(o Rate) bool    { return r.Value.GreaterThan(o.Value) }
func (r Rate) LessThan(o Rate) bool       { return r.Value.LessThan(o.Value) }
func (r Rate) GreaterOrEqual(o Rate) bool { return !r.Value.LessThan(o.Value) }
func (r Rate) Complement() Rate           { return OneRate().Sub(r) }
func (r Rate) String() string             { return r.Value.String() }

// =============================================================================
// CASH KIND - Every cash movement is typed interest or principal
// =============================================================================

type CashKind string

const (
	CashInterest  CashKind = "interest"
	CashPrincipal CashKind = "principal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TrancheID string
type FeeID string
type TriggerID string

// =============================================================================
// TRANCHE - A liability class with balance, coupon, and seniority
// =============================================================================

// Tranche is owned by the Deal. Its balance is mutated in exactly two places:
// the per-period interest accrual step, and waterfall payment application.
type Tranche struct {
	ID       TrancheID
	Name     string
	Seniority int // 1 = most senior; drives sequential-pay ordering

	// Current outstanding principal balance.
	Balance Amount

	// Annual coupon over the period's reference rate (or fixed when
	// SpreadOverReference is false).
	Coupon              Rate
	SpreadOverReference bool
	DayCount            DayCount

	// Interest accrued for the current period and not yet paid.
	InterestDue Amount

	// Interest deferred in kind (capitalized onto Balance by a PIK step).
	PIKBalance Amount

	// IsEquity marks the residual class: no stated coupon, paid only from
	// residual steps.
	IsEquity bool
}

// AccrueInterest computes the period's interest due from the opening balance.
// Equity tranches never accrue stated interest.
func (t *Tranche) AccrueInterest(begin, end Date, reference Rate) {
	if t.IsEquity {
		return
	}
	rate := t.Coupon
	if t.SpreadOverReference {
		rate = reference.Add(t.Coupon)
	}
	frac := t.DayCount.Fraction(begin, end)
	t.InterestDue = t.InterestDue.Add(t.Balance.MulRate(rate).MulRate(frac))
}

// PayInterest applies a cash interest payment, never exceeding the amount due.
// Returns the amount actually applied.
func (t *Tranche) PayInterest(amount Amount) Amount {
	applied := amount.Min(t.InterestDue)
	t.InterestDue = t.InterestDue.Sub(applied)
	return applied
}

// CapitalizeInterest converts due interest into principal balance (payment in
// kind). Returns the amount capitalized.
func (t *Tranche) CapitalizeInterest(amount Amount) Amount {
	applied := amount.Min(t.InterestDue)
	t.InterestDue = t.InterestDue.Sub(applied)
	t.Balance = t.Balance.Add(applied)
	t.PIKBalance = t.PIKBalance.Add(applied)
	return applied
}

// PayPrincipal amortizes the balance, never below zero. Returns the amount
// actually applied.
func (t *Tranche) PayPrincipal(amount Amount) Amount {
	applied := amount.Min(t.Balance)
	t.Balance = t.Balance.Sub(applied)
	return applied
}

func (t *Tranche) IsRetired() bool {
	return t.Balance.IsZero() && t.InterestDue.IsZero()
}
