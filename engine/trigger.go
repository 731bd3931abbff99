/*
trigger.go - Coverage-ratio trigger calculators

PURPOSE:
  Implements the two compliance tests that gate the waterfall:

  IC (interest coverage): interest collections over interest due. A failing
  test produces a single cure requirement payable from interest proceeds,
  capped at the outstanding liability balance.

  OC (overcollateralization): adjusted collateral par over liability
  balance. A failing test produces a shortfall curable through two
  mechanisms in strict priority: interest-proceed cures first, then
  principal-proceed cures for whatever shortfall remains.

CURE MEMORY:
  Both triggers hold cumulative unreimbursed cure memory that survives
  rollforward:

    cumulative(n+1) = max(0, cumulative(n) + cureNeeded(n) - curePaid(n))

  A payment in period n reduces what is owed; a failing test in a later
  period re-invokes the still-unpaid carryforward (CureDue includes it until
  reimbursed). Within a period, curePaid never exceeds cureNeeded.

ZERO DENOMINATORS:
  A zero denominator is an arithmetic guard, not a silent NaN: the trigger's
  policy either treats the test as an automatic pass (the default - no
  liabilities outstanding means nothing to cover) or rejects the inputs.
  Both policies are explicit and tested.
*/
package engine

// =============================================================================
// COMMON CONTRACT
// =============================================================================

// ZeroDenominatorPolicy resolves ratio tests whose denominator is zero.
type ZeroDenominatorPolicy string

const (
	// ZeroDenomPass treats a zero denominator as an automatic pass.
	ZeroDenomPass ZeroDenominatorPolicy = "pass"

	// ZeroDenomError rejects the calculation with ErrZeroDenominator.
	ZeroDenomError ZeroDenominatorPolicy = "error"
)

// TriggerSnapshot is the per-period record of a trigger test.
type TriggerSnapshot struct {
	ID          TriggerID
	Period      int
	Numerator   Amount
	Denominator Amount
	Ratio       Rate
	RatioDefined bool // false when the denominator was zero
	Pass        bool
	CureNeeded  Amount
	CurePaid    Amount
	CarriedCure Amount // unreimbursed cure carried from prior periods
}

// Trigger is the contract shared by the OC and IC calculators.
type Trigger interface {
	TriggerID() TriggerID

	// CurrentStatus reports whether the most recent test passed.
	CurrentStatus() bool

	// CureAmount is the total unreimbursed cure outstanding right now:
	// the current period's unpaid requirement plus any carryforward.
	CureAmount() Amount

	// Rollforward advances the period pointer, folding unpaid cure into
	// the carryforward memory.
	Rollforward()

	Snapshot() TriggerSnapshot
}

// shortfall returns max(0, threshold*denominator - numerator).
func shortfall(threshold Rate, numerator, denominator Amount) Amount {
	return denominator.MulRate(threshold).Sub(numerator).FloorZero()
}

func ratioOf(numerator, denominator Amount) Rate {
	return Rate{Value: numerator.Value.Div(denominator.Value)}
}

// =============================================================================
// IC - Interest coverage
// =============================================================================

type ICTrigger struct {
	id         TriggerID
	threshold  Rate
	zeroPolicy ZeroDenominatorPolicy

	period int

	numerator    Amount
	denominator  Amount
	ratio        Rate
	ratioDefined bool
	pass         bool

	cureNeeded Amount
	curePaid   Amount

	// carried is the cumulative unreimbursed cure from prior periods.
	carried Amount

	calculated bool
}

func NewICTrigger(id TriggerID, threshold Rate, zeroPolicy ZeroDenominatorPolicy) *ICTrigger {
	return &ICTrigger{
		id:         id,
		threshold:  threshold,
		zeroPolicy: zeroPolicy,
		period:     1,
		pass:       true,
		cureNeeded: ZeroAmount(),
		curePaid:   ZeroAmount(),
		carried:    ZeroAmount(),
	}
}

func (t *ICTrigger) TriggerID() TriggerID { return t.id }

// Calculate runs the period's test. The cure requirement is bounded by the
// outstanding liability balance: paying down every liability is the most a
// cure can ever be asked to do.
func (t *ICTrigger) Calculate(numerator, denominator, liabilityBalance Amount) error {
	if numerator.IsNegative() || denominator.IsNegative() || liabilityBalance.IsNegative() {
		return &InputError{Op: "ic.calculate", Detail: "negative balance"}
	}

	t.numerator = numerator
	t.denominator = denominator
	t.curePaid = ZeroAmount()
	t.calculated = true

	if denominator.IsZero() {
		if t.zeroPolicy == ZeroDenomError {
			t.calculated = false
			return ErrZeroDenominator
		}
		t.ratioDefined = false
		t.ratio = ZeroRate()
		t.pass = true
		t.cureNeeded = ZeroAmount()
		return nil
	}

	t.ratioDefined = true
	t.ratio = ratioOf(numerator, denominator)
	t.pass = t.ratio.GreaterOrEqual(t.threshold)

	if t.pass {
		t.cureNeeded = ZeroAmount()
		return nil
	}
	t.cureNeeded = shortfall(t.threshold, numerator, denominator).Min(liabilityBalance)
	return nil
}

// PayCure applies a cure payment: first to the current period's requirement
// (bounded so curePaid never exceeds cureNeeded), then to the carryforward.
// Returns the unused remainder.
func (t *ICTrigger) PayCure(amount Amount) (Amount, error) {
	if amount.IsNegative() {
		return ZeroAmount(), &InputError{Op: "ic.pay_cure", Detail: "negative amount"}
	}
	toCurrent := amount.Min(t.cureNeeded.Sub(t.curePaid))
	t.curePaid = t.curePaid.Add(toCurrent)
	remainder := amount.Sub(toCurrent)

	toCarried := remainder.Min(t.carried)
	t.carried = t.carried.Sub(toCarried)
	return remainder.Sub(toCarried), nil
}

func (t *ICTrigger) CurrentStatus() bool { return t.pass }

func (t *ICTrigger) CureAmount() Amount {
	return t.cureNeeded.Sub(t.curePaid).Add(t.carried)
}

func (t *ICTrigger) Rollforward() {
	t.carried = t.carried.Add(t.cureNeeded).Sub(t.curePaid).FloorZero()
	t.cureNeeded = ZeroAmount()
	t.curePaid = ZeroAmount()
	t.calculated = false
	t.period++
}

func (t *ICTrigger) Snapshot() TriggerSnapshot {
	return TriggerSnapshot{
		ID:           t.id,
		Period:       t.period,
		Numerator:    t.numerator,
		Denominator:  t.denominator,
		Ratio:        t.ratio,
		RatioDefined: t.ratioDefined,
		Pass:         t.pass,
		CureNeeded:   t.cureNeeded,
		CurePaid:     t.curePaid,
		CarriedCure:  t.carried,
	}
}

// =============================================================================
// OC - Overcollateralization
// =============================================================================

// OCTrigger splits its cure into two mechanisms. The period's shortfall is
// first reducible by interest-proceed cures; whatever remains when the
// interest phase closes becomes the principal-cure requirement.
type OCTrigger struct {
	id         TriggerID
	threshold  Rate
	zeroPolicy ZeroDenominatorPolicy

	period int

	numerator    Amount
	denominator  Amount
	ratio        Rate
	ratioDefined bool
	pass         bool

	// shortfallLeft is the period's uncured shortfall. Interest and
	// principal cures both draw it down, interest first.
	shortfallLeft Amount
	cureNeeded    Amount // shortfall as computed this period (for records)
	curePaid      Amount // interest + principal cures paid this period

	// interestPhaseDone is set by the allocator once the interest waterfall
	// has run; before that, the principal-cure requirement reads zero.
	interestPhaseDone bool

	carried Amount

	calculated bool
}

func NewOCTrigger(id TriggerID, threshold Rate, zeroPolicy ZeroDenominatorPolicy) *OCTrigger {
	return &OCTrigger{
		id:            id,
		threshold:     threshold,
		zeroPolicy:    zeroPolicy,
		period:        1,
		pass:          true,
		shortfallLeft: ZeroAmount(),
		cureNeeded:    ZeroAmount(),
		curePaid:      ZeroAmount(),
		carried:       ZeroAmount(),
	}
}

func (t *OCTrigger) TriggerID() TriggerID { return t.id }

func (t *OCTrigger) Calculate(numerator, denominator Amount) error {
	if numerator.IsNegative() || denominator.IsNegative() {
		return &InputError{Op: "oc.calculate", Detail: "negative balance"}
	}

	t.numerator = numerator
	t.denominator = denominator
	t.curePaid = ZeroAmount()
	t.interestPhaseDone = false
	t.calculated = true

	if denominator.IsZero() {
		if t.zeroPolicy == ZeroDenomError {
			t.calculated = false
			return ErrZeroDenominator
		}
		t.ratioDefined = false
		t.ratio = ZeroRate()
		t.pass = true
		t.shortfallLeft = ZeroAmount()
		t.cureNeeded = ZeroAmount()
		return nil
	}

	t.ratioDefined = true
	t.ratio = ratioOf(numerator, denominator)
	t.pass = t.ratio.GreaterOrEqual(t.threshold)

	if t.pass {
		t.shortfallLeft = ZeroAmount()
		t.cureNeeded = ZeroAmount()
		return nil
	}
	t.shortfallLeft = shortfall(t.threshold, numerator, denominator)
	t.cureNeeded = t.shortfallLeft
	return nil
}

// InterestCureNeeded is the shortfall currently payable from interest
// proceeds.
func (t *OCTrigger) InterestCureNeeded() Amount {
	return t.shortfallLeft
}

// PrincipalCureNeeded is the shortfall payable from principal proceeds. It
// is zero until the interest-cure phase has closed: interest cures have
// strict priority.
func (t *OCTrigger) PrincipalCureNeeded() Amount {
	if !t.interestPhaseDone {
		return ZeroAmount()
	}
	return t.shortfallLeft
}

// PayInterest applies an interest-proceed cure and returns the unused
// remainder.
func (t *OCTrigger) PayInterest(amount Amount) (Amount, error) {
	return t.payCure("oc.pay_interest", amount)
}

// PayPrincipal applies a principal-proceed cure to the shortfall remaining
// after interest cures. Returns the unused remainder.
func (t *OCTrigger) PayPrincipal(amount Amount) (Amount, error) {
	return t.payCure("oc.pay_principal", amount)
}

func (t *OCTrigger) payCure(op string, amount Amount) (Amount, error) {
	if amount.IsNegative() {
		return ZeroAmount(), &InputError{Op: op, Detail: "negative amount"}
	}
	applied := amount.Min(t.shortfallLeft)
	t.shortfallLeft = t.shortfallLeft.Sub(applied)
	t.curePaid = t.curePaid.Add(applied)
	remainder := amount.Sub(applied)

	toCarried := remainder.Min(t.carried)
	t.carried = t.carried.Sub(toCarried)
	return remainder.Sub(toCarried), nil
}

// CloseInterestPhase marks the interest waterfall as complete, exposing any
// remaining shortfall as the principal-cure requirement.
func (t *OCTrigger) CloseInterestPhase() { t.interestPhaseDone = true }

func (t *OCTrigger) CurrentStatus() bool { return t.pass }

func (t *OCTrigger) CureAmount() Amount {
	return t.shortfallLeft.Add(t.carried)
}

func (t *OCTrigger) Rollforward() {
	t.carried = t.carried.Add(t.cureNeeded).Sub(t.curePaid).FloorZero()
	t.shortfallLeft = ZeroAmount()
	t.cureNeeded = ZeroAmount()
	t.curePaid = ZeroAmount()
	t.interestPhaseDone = false
	t.calculated = false
	t.period++
}

func (t *OCTrigger) Snapshot() TriggerSnapshot {
	return TriggerSnapshot{
		ID:           t.id,
		Period:       t.period,
		Numerator:    t.numerator,
		Denominator:  t.denominator,
		Ratio:        t.ratio,
		RatioDefined: t.ratioDefined,
		Pass:         t.pass,
		CureNeeded:   t.cureNeeded,
		CurePaid:     t.curePaid,
		CarriedCure:  t.carried,
	}
}

// Compile-time checks that both calculators satisfy the shared contract.
var (
	_ Trigger = (*ICTrigger)(nil)
	_ Trigger = (*OCTrigger)(nil)
)
