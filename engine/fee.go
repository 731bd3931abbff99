/*
fee.go - Per-fee-type accrual and unpaid-balance rollforward

PURPOSE:
  Each Fee accrues once per period from its configured basis and day count,
  carries any unpaid balance across periods, and optionally charges interest
  on that unpaid balance at the period's reference rate plus a spread.

BASES:
  BasisBeginning - fee = opening basis x rate x day-count fraction
  BasisAverage   - fee = avg(opening, closing basis) x rate x fraction
  BasisFixed     - flat amount per period; basis and day count are ignored

INVARIANTS:
  - The unpaid balance never goes negative.
  - A payment never exceeds the amount currently due (current accrual plus
    carried unpaid balance); the excess is returned to the caller.
*/
package engine

type FeeBasis string

const (
	BasisBeginning FeeBasis = "beginning_balance"
	BasisAverage   FeeBasis = "average_balance"
	BasisFixed     FeeBasis = "fixed"
)

type Fee struct {
	ID   FeeID
	Name string

	Basis       FeeBasis
	Rate        Rate   // annual rate; ignored for fixed fees
	FixedAmount Amount // per-period amount for fixed fees
	DayCount    DayCount

	// InterestOnUnpaid charges reference+Spread on the carried unpaid
	// balance before the new period's accrual is added.
	InterestOnUnpaid bool
	Spread           Rate

	// Deferrable fees can be skipped by a gated waterfall step without
	// counting as a missed payment (performance-tiered structures).
	Deferrable bool

	accrued Amount // this period's accrual (incl. unpaid-balance interest)
	unpaid  Amount // carried unpaid balance from prior periods
}

func NewFee(id FeeID, name string, basis FeeBasis, rate Rate, dayCount DayCount) *Fee {
	return &Fee{
		ID:          id,
		Name:        name,
		Basis:       basis,
		Rate:        rate,
		FixedAmount: ZeroAmount(),
		DayCount:    dayCount,
		Spread:      ZeroRate(),
		accrued:     ZeroAmount(),
		unpaid:      ZeroAmount(),
	}
}

func NewFixedFee(id FeeID, name string, perPeriod Amount) *Fee {
	f := NewFee(id, name, BasisFixed, ZeroRate(), Thirty360)
	f.FixedAmount = perPeriod
	return f
}

// Accrue computes the period's fee. basisBegin/basisEnd are the fee basis
// at the period's open and close (e.g., aggregate collateral balance);
// referenceRate feeds unpaid-balance interest when enabled.
func (f *Fee) Accrue(periodBegin, periodEnd Date, basisBegin, basisEnd Amount, referenceRate Rate) error {
	if basisBegin.IsNegative() || basisEnd.IsNegative() {
		return &InputError{Op: "fee.accrue", Detail: "negative fee basis"}
	}

	frac := f.DayCount.Fraction(periodBegin, periodEnd)

	// Unpaid balance accrues interest before the new period's fee is added.
	if f.InterestOnUnpaid && f.unpaid.IsPositive() {
		f.unpaid = f.unpaid.Add(f.unpaid.MulRate(referenceRate.Add(f.Spread)).MulRate(frac))
	}

	switch f.Basis {
	case BasisFixed:
		f.accrued = f.FixedAmount
	case BasisAverage:
		f.accrued = basisBegin.Add(basisEnd).Half().MulRate(f.Rate).MulRate(frac)
	default:
		f.accrued = basisBegin.MulRate(f.Rate).MulRate(frac)
	}
	return nil
}

// Due is the total currently payable: this period's accrual plus carried
// unpaid balance.
func (f *Fee) Due() Amount { return f.accrued.Add(f.unpaid) }

func (f *Fee) Accrued() Amount { return f.accrued }
func (f *Fee) Unpaid() Amount  { return f.unpaid }

// Pay applies a payment against the carried unpaid balance first, then the
// current accrual, and returns any excess. The unpaid balance never goes
// negative.
func (f *Fee) Pay(amount Amount) (Amount, error) {
	if amount.IsNegative() {
		return ZeroAmount(), &InputError{Op: "fee.pay", Detail: "negative amount"}
	}
	toUnpaid := amount.Min(f.unpaid)
	f.unpaid = f.unpaid.Sub(toUnpaid)
	remainder := amount.Sub(toUnpaid)

	toAccrued := remainder.Min(f.accrued)
	f.accrued = f.accrued.Sub(toAccrued)
	return remainder.Sub(toAccrued), nil
}

// Rollforward carries whatever is still due into the next period's opening
// unpaid balance.
func (f *Fee) Rollforward() {
	f.unpaid = f.unpaid.Add(f.accrued)
	f.accrued = ZeroAmount()
}

// FeeSnapshot is the per-period record of a fee.
type FeeSnapshot struct {
	ID      FeeID
	Name    string
	Accrued Amount
	Unpaid  Amount
	Due     Amount
}

func (f *Fee) Snapshot() FeeSnapshot {
	return FeeSnapshot{
		ID:      f.ID,
		Name:    f.Name,
		Accrued: f.accrued,
		Unpaid:  f.unpaid,
		Due:     f.Due(),
	}
}
