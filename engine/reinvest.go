/*
reinvest.go - Reinvestment-pool amortizer

PURPOSE:
  When the waterfall diverts principal into reinvestment instead of paying
  it out, a ReinvestmentLot is created: a synthetic sub-portfolio that runs
  off through prepayment/default/severity curves. Each lot keeps one
  cash-flow record per lot-relative period; the ending balance of period n
  feeds the beginning balance of period n+1 until the lot fully amortizes
  or is explicitly liquidated.

CURVE INDEXING:
  Curves are fixed-length ordered sequences addressed by 0-based
  lot-relative period. An index beyond the defined length reuses the last
  defined value (a pure function, not array-bounds patching).
*/
package engine

// CurveAt resolves a curve point for a lot-relative period. Past the end of
// the curve the last defined value applies; an empty curve reads zero.
func CurveAt(curve []Rate, index int) Rate {
	if len(curve) == 0 {
		return ZeroRate()
	}
	if index < 0 {
		index = 0
	}
	if index >= len(curve) {
		index = len(curve) - 1
	}
	return curve[index]
}

// LotCashflow is one lot-period's record.
type LotCashflow struct {
	LotPeriod         int // 0-based, lot-relative
	BeginningBalance  Amount
	InterestProceeds  Amount
	PrincipalProceeds Amount // prepayment + recovery (+ liquidation proceeds)
	DefaultAmount     Amount
	EndingBalance     Amount
	Liquidated        bool
}

// ReinvestmentLot is created when principal is diverted to reinvestment.
type ReinvestmentLot struct {
	ID           string
	OriginPeriod int // deal period in which the lot was funded

	Coupon   Rate
	DayCount DayCount

	PrepayCurve   []Rate
	DefaultCurve  []Rate
	SeverityCurve []Rate

	balance    Amount
	lotPeriod  int
	cashflows  []LotCashflow
	liquidated bool
}

func NewReinvestmentLot(id string, originPeriod int, principal Amount, coupon Rate, dayCount DayCount, prepay, def, severity []Rate) (*ReinvestmentLot, error) {
	if principal.IsNegative() {
		return nil, &InputError{Op: "reinvest.new_lot", Detail: "negative principal"}
	}
	return &ReinvestmentLot{
		ID:            id,
		OriginPeriod:  originPeriod,
		Coupon:        coupon,
		DayCount:      dayCount,
		PrepayCurve:   prepay,
		DefaultCurve:  def,
		SeverityCurve: severity,
		balance:       principal,
	}, nil
}

func (l *ReinvestmentLot) Balance() Amount          { return l.balance }
func (l *ReinvestmentLot) Cashflows() []LotCashflow { return l.cashflows }
func (l *ReinvestmentLot) IsRunOff() bool           { return l.balance.IsZero() }

// RunPeriod amortizes the lot through one period and records the cash flow.
// Returns the period's record; a fully run-off or liquidated lot produces a
// zero record.
func (l *ReinvestmentLot) RunPeriod(begin, end Date) LotCashflow {
	beginning := l.balance
	cf := LotCashflow{
		LotPeriod:         l.lotPeriod,
		BeginningBalance:  beginning,
		InterestProceeds:  ZeroAmount(),
		PrincipalProceeds: ZeroAmount(),
		DefaultAmount:     ZeroAmount(),
		EndingBalance:     beginning,
	}
	if l.liquidated || beginning.IsZero() {
		l.cashflows = append(l.cashflows, cf)
		l.lotPeriod++
		return cf
	}

	prepayRate := CurveAt(l.PrepayCurve, l.lotPeriod)
	defaultRate := CurveAt(l.DefaultCurve, l.lotPeriod)
	severity := CurveAt(l.SeverityCurve, l.lotPeriod)

	defaulted := beginning.MulRate(defaultRate)
	recovery := defaulted.MulRate(severity.Complement())
	prepayment := beginning.Sub(defaulted).MulRate(prepayRate)

	cf.InterestProceeds = beginning.MulRate(l.Coupon).MulRate(l.DayCount.Fraction(begin, end))
	cf.DefaultAmount = defaulted
	cf.PrincipalProceeds = prepayment.Add(recovery)
	cf.EndingBalance = beginning.Sub(prepayment).Sub(defaulted).FloorZero()

	l.balance = cf.EndingBalance
	l.cashflows = append(l.cashflows, cf)
	l.lotPeriod++
	return cf
}

// Liquidate closes the lot at the given price: proceeds are balance x price,
// the ending balance is forced to zero, and the lot never amortizes again.
func (l *ReinvestmentLot) Liquidate(price Rate) LotCashflow {
	beginning := l.balance
	proceeds := beginning.MulRate(price)
	cf := LotCashflow{
		LotPeriod:         l.lotPeriod,
		BeginningBalance:  beginning,
		PrincipalProceeds: proceeds,
		InterestProceeds:  ZeroAmount(),
		DefaultAmount:     ZeroAmount(),
		EndingBalance:     ZeroAmount(),
		Liquidated:        true,
	}
	l.balance = ZeroAmount()
	l.liquidated = true
	l.cashflows = append(l.cashflows, cf)
	l.lotPeriod++
	return cf
}

// =============================================================================
// REINVESTMENT POLICY - How much principal may be diverted
// =============================================================================

// PrincipalCategory selects which principal collections are reinvestable.
type PrincipalCategory string

const (
	CategoryAllPrincipal PrincipalCategory = "all_principal"
	CategoryUnscheduled  PrincipalCategory = "unscheduled_only"
)

// ReinvestmentPolicy is configured once per deal. The percentage and
// category switch at the reinvestment-period-end date.
type ReinvestmentPolicy struct {
	ReinvestmentEnd Date

	// During the reinvestment period.
	Percentage Rate
	Category   PrincipalCategory

	// After the reinvestment period ends.
	PostPercentage Rate
	PostCategory   PrincipalCategory
}

// MaxReinvestable returns the principal eligible for reinvestment this
// period. A set liquidation flag returns exactly zero for every category.
func (p ReinvestmentPolicy) MaxReinvestable(paymentDate Date, c Collections, liquidating bool) Amount {
	if liquidating {
		return ZeroAmount()
	}
	pct, cat := p.Percentage, p.Category
	if !p.ReinvestmentEnd.IsZero() && paymentDate.After(p.ReinvestmentEnd) {
		pct, cat = p.PostPercentage, p.PostCategory
	}
	var base Amount
	switch cat {
	case CategoryUnscheduled:
		base = c.UnscheduledPrincipal
	default:
		base = c.PrincipalTotal()
	}
	return base.MulRate(pct).FloorZero()
}
