/*
state.go - The owned deal-state aggregate

PURPOSE:
  DealState is the single aggregate holding every stateful sub-component of
  a deal: tranches, fees, triggers, accounts, and reinvestment lots. It is
  owned exclusively by the orchestrator and threaded explicitly through
  each period call - never accessed as ambient global state.

ORDERING:
  Tranches, fees, and accounts are held as insertion-ordered mappings
  (slice of keys plus lookup map) so iteration order is deterministic and
  reporting is reproducible run to run.
*/
package engine

import "fmt"

type DealState struct {
	trancheOrder []TrancheID
	tranches     map[TrancheID]*Tranche

	feeOrder []FeeID
	fees     map[FeeID]*Fee

	accountOrder []string
	accounts     map[string]*Account

	OC *OCTrigger
	IC *ICTrigger

	// Reinvestment configuration: new lots inherit the deal's curve set.
	ReinvestPolicy   ReinvestmentPolicy
	LotCoupon        Rate
	LotDayCount      DayCount
	LotPrepayCurve   []Rate
	LotDefaultCurve  []Rate
	LotSeverityCurve []Rate
	LiquidationPrice Rate

	Lots   []*ReinvestmentLot
	lotSeq int

	// Equity economics for claw-back and performance-tiered structures.
	EquityNotional Amount
	HurdleRate     Rate
	HurdleDayCount DayCount

	hurdleAccrued        Amount
	cumulativeEquityPaid Amount
	periodEquityPaid     Amount
	equityPaidHistory    []Amount // one entry per closed period

	reinvestedThisPeriod Amount
	managerIncentivePaid Amount
}

func NewDealState() *DealState {
	return &DealState{
		tranches:             make(map[TrancheID]*Tranche),
		fees:                 make(map[FeeID]*Fee),
		accounts:             make(map[string]*Account),
		LotDayCount:          Thirty360,
		HurdleDayCount:       Thirty360,
		LiquidationPrice:     OneRate(),
		EquityNotional:       ZeroAmount(),
		hurdleAccrued:        ZeroAmount(),
		cumulativeEquityPaid: ZeroAmount(),
		periodEquityPaid:     ZeroAmount(),
		reinvestedThisPeriod: ZeroAmount(),
		managerIncentivePaid: ZeroAmount(),
	}
}

// =============================================================================
// ORDERED COMPONENT REGISTRIES
// =============================================================================

func (s *DealState) AddTranche(t *Tranche) {
	if _, ok := s.tranches[t.ID]; !ok {
		s.trancheOrder = append(s.trancheOrder, t.ID)
	}
	s.tranches[t.ID] = t
}

func (s *DealState) Tranche(id TrancheID) *Tranche { return s.tranches[id] }

// Tranches returns all tranches in insertion order.
func (s *DealState) Tranches() []*Tranche {
	out := make([]*Tranche, 0, len(s.trancheOrder))
	for _, id := range s.trancheOrder {
		out = append(out, s.tranches[id])
	}
	return out
}

func (s *DealState) AddFee(f *Fee) {
	if _, ok := s.fees[f.ID]; !ok {
		s.feeOrder = append(s.feeOrder, f.ID)
	}
	s.fees[f.ID] = f
}

func (s *DealState) Fee(id FeeID) *Fee { return s.fees[id] }

func (s *DealState) Fees() []*Fee {
	out := make([]*Fee, 0, len(s.feeOrder))
	for _, id := range s.feeOrder {
		out = append(out, s.fees[id])
	}
	return out
}

func (s *DealState) AddAccount(a *Account) {
	if _, ok := s.accounts[a.Name]; !ok {
		s.accountOrder = append(s.accountOrder, a.Name)
	}
	s.accounts[a.Name] = a
}

func (s *DealState) Account(name string) *Account { return s.accounts[name] }

func (s *DealState) Accounts() []*Account {
	out := make([]*Account, 0, len(s.accountOrder))
	for _, name := range s.accountOrder {
		out = append(out, s.accounts[name])
	}
	return out
}

// =============================================================================
// AGGREGATES
// =============================================================================

// TotalLiabilityBalance sums outstanding principal across rated (non-equity)
// tranches.
func (s *DealState) TotalLiabilityBalance() Amount {
	total := ZeroAmount()
	for _, t := range s.Tranches() {
		if t.IsEquity {
			continue
		}
		total = total.Add(t.Balance)
	}
	return total
}

// TotalInterestDue sums accrued unpaid interest across rated tranches.
func (s *DealState) TotalInterestDue() Amount {
	total := ZeroAmount()
	for _, t := range s.Tranches() {
		if t.IsEquity {
			continue
		}
		total = total.Add(t.InterestDue)
	}
	return total
}

// LotBalance sums the outstanding balance of every reinvestment lot.
func (s *DealState) LotBalance() Amount {
	total := ZeroAmount()
	for _, lot := range s.Lots {
		total = total.Add(lot.Balance())
	}
	return total
}

// LiabilitiesRetired reports whether every rated tranche is fully paid.
func (s *DealState) LiabilitiesRetired() bool {
	for _, t := range s.Tranches() {
		if t.IsEquity {
			continue
		}
		if !t.IsRetired() {
			return false
		}
	}
	return true
}

// =============================================================================
// REINVESTMENT
// =============================================================================

// Reinvest diverts principal into a new lot carrying the deal's curve set.
// Returns the amount actually diverted (zero if non-positive).
func (s *DealState) Reinvest(period Period, amount Amount) Amount {
	if !amount.IsPositive() {
		return ZeroAmount()
	}
	s.lotSeq++
	lot, err := NewReinvestmentLot(
		fmt.Sprintf("lot-%d", s.lotSeq),
		period.Index,
		amount,
		s.LotCoupon,
		s.LotDayCount,
		s.LotPrepayCurve,
		s.LotDefaultCurve,
		s.LotSeverityCurve,
	)
	if err != nil {
		return ZeroAmount()
	}
	s.Lots = append(s.Lots, lot)
	s.reinvestedThisPeriod = s.reinvestedThisPeriod.Add(amount)
	return amount
}

// ReinvestedThisPeriod is reset at rollforward.
func (s *DealState) ReinvestedThisPeriod() Amount { return s.reinvestedThisPeriod }

// =============================================================================
// EQUITY ECONOMICS
// =============================================================================

// AccrueHurdle advances the equity performance hurdle for the period
// (simple, non-compounded accrual on the equity notional).
func (s *DealState) AccrueHurdle(begin, end Date) {
	if s.EquityNotional.IsZero() || s.HurdleRate.IsZero() {
		return
	}
	s.hurdleAccrued = s.hurdleAccrued.Add(
		s.EquityNotional.MulRate(s.HurdleRate).MulRate(s.HurdleDayCount.Fraction(begin, end)))
}

// HurdleShortfall is the cumulative hurdle not yet covered by equity
// distributions. The claw-back structure pays residual cash here first.
func (s *DealState) HurdleShortfall() Amount {
	return s.hurdleAccrued.Sub(s.cumulativeEquityPaid).FloorZero()
}

// DistributeResidual records a residual payment to the equity class.
func (s *DealState) DistributeResidual(amount Amount) {
	s.periodEquityPaid = s.periodEquityPaid.Add(amount)
	s.cumulativeEquityPaid = s.cumulativeEquityPaid.Add(amount)
}

// PayManagerIncentive records an incentive-fee share of residual cash.
func (s *DealState) PayManagerIncentive(amount Amount) {
	s.managerIncentivePaid = s.managerIncentivePaid.Add(amount)
}

func (s *DealState) CumulativeEquityPaid() Amount { return s.cumulativeEquityPaid }
func (s *DealState) ManagerIncentivePaid() Amount { return s.managerIncentivePaid }

// TrailingEquityReturn annualizes equity distributions over the trailing
// `window` closed periods against the equity notional. Used as the gating
// metric by performance-tiered structures. Returns zero until the notional
// is set or any period has closed.
func (s *DealState) TrailingEquityReturn(window, periodsPerYear int) Rate {
	if window <= 0 || s.EquityNotional.IsZero() || len(s.equityPaidHistory) == 0 {
		return ZeroRate()
	}
	n := window
	if n > len(s.equityPaidHistory) {
		n = len(s.equityPaidHistory)
	}
	sum := ZeroAmount()
	for _, a := range s.equityPaidHistory[len(s.equityPaidHistory)-n:] {
		sum = sum.Add(a)
	}
	annualized := sum.MulRate(Rate{Value: NewAmountFromInt(int64(periodsPerYear)).Value.Div(NewAmountFromInt(int64(n)).Value)})
	return Rate{Value: annualized.Value.Div(s.EquityNotional.Value)}
}

// =============================================================================
// ROLLFORWARD
// =============================================================================

// Rollforward closes the period for every stateful sub-component the state
// owns. Lots advance inside the period run, not here.
func (s *DealState) Rollforward() {
	if s.OC != nil {
		s.OC.Rollforward()
	}
	if s.IC != nil {
		s.IC.Rollforward()
	}
	for _, f := range s.Fees() {
		f.Rollforward()
	}
	for _, a := range s.Accounts() {
		a.Rollforward()
	}
	s.equityPaidHistory = append(s.equityPaidHistory, s.periodEquityPaid)
	s.periodEquityPaid = ZeroAmount()
	s.reinvestedThisPeriod = ZeroAmount()
}
