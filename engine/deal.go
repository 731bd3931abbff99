/*
deal.go - The period orchestrator

PURPOSE:
  Deal drives the discrete-period loop: pull collections from the asset
  pool, feed the cash ledger, accrue tranche interest, run the coverage
  triggers and fee accruals, determine reinvestable principal, execute the
  waterfall (or the event-of-default liquidation priority), evaluate the
  liquidation trigger for the next period, roll every stateful component
  forward, and decide termination.

STATE MACHINE:
  Setup -> PeriodActive -> WaterfallExecuted -> RolledForward
        -> (next PeriodActive | Terminated)

  Period n+1 cannot begin before period n's rollforward completes; every
  sub-component's state is a function of the prior period's ending state.
  Independent deals share nothing and may run concurrently; a single deal
  is strictly sequential.

ERRORS:
  Setup problems surface as ConfigurationError before any period runs.
  A fatal error mid-run aborts the deal; the ExecutionRecords up to the
  last closed period remain valid and inspectable.
*/
package engine

import (
	"context"

	"go.uber.org/zap"
)

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// Collections are the period's pooled cash receipts, split by category.
type Collections struct {
	Interest             Amount
	ScheduledPrincipal   Amount
	UnscheduledPrincipal Amount
	Recoveries           Amount
}

func (c Collections) PrincipalTotal() Amount {
	return c.ScheduledPrincipal.Add(c.UnscheduledPrincipal).Add(c.Recoveries)
}

// PoolMetrics are the aggregate portfolio measures feeding the trigger
// numerators.
type PoolMetrics struct {
	// CollateralPar is the aggregate performing par balance.
	CollateralPar Amount

	// DefaultedMarketValue is the carrying value of defaulted assets.
	DefaultedMarketValue Amount

	// CCCHaircut is the excess-CCC-bucket haircut deducted from the OC
	// numerator.
	CCCHaircut Amount
}

// OCNumerator is the adjusted collateral measure for the OC test.
func (m PoolMetrics) OCNumerator() Amount {
	return m.CollateralPar.Add(m.DefaultedMarketValue).Sub(m.CCCHaircut).FloorZero()
}

// AssetPool supplies the engine's external inputs. Implementations must
// resolve all data before the call returns; the engine performs no I/O of
// its own and has no retry or timeout semantics.
type AssetPool interface {
	Collections(ctx context.Context, period Period) (Collections, error)
	Metrics(ctx context.Context, period Period) (PoolMetrics, error)
}

// RateFixer resolves the reference rate fixed on a period's determination
// date.
type RateFixer interface {
	Fix(determination Date) Rate
}

// ConstantRate is a RateFixer returning the same rate every period.
type ConstantRate struct {
	Rate Rate
}

func (c ConstantRate) Fix(Date) Rate { return c.Rate }

// =============================================================================
// DEAL
// =============================================================================

type DealStatus string

const (
	StatusSetup             DealStatus = "setup"
	StatusPeriodActive      DealStatus = "period_active"
	StatusWaterfallExecuted DealStatus = "waterfall_executed"
	StatusRolledForward     DealStatus = "rolled_forward"
	StatusTerminated        DealStatus = "terminated"
)

// DealParams wires a deal together. The factory package builds these from a
// YAML definition; tests build them directly.
type DealParams struct {
	Name     string
	Schedule []Period
	State    *DealState
	Pool     AssetPool
	Rates    RateFixer

	// Structure is the normal-priority waterfall; Liquidation is the
	// distinct event-of-default priority (falls back to Structure when nil).
	Structure   Structure
	Liquidation Structure

	// LiquidationFloor arms the liquidation trigger: when the
	// collateral-to-liability ratio drops below the floor, the next period
	// runs the liquidation priority. Zero disables the trigger.
	LiquidationFloor Rate

	Logger *zap.Logger
}

type Deal struct {
	name     string
	schedule []Period
	state    *DealState
	pool     AssetPool
	rates    RateFixer

	allocator    *Allocator
	liqAllocator *Allocator

	liquidationFloor Rate

	collections *Account // the period cash ledger

	periodIdx   int // next period to run (0-based into schedule)
	status      DealStatus
	liquidating bool // run the liquidation priority this period
	records     []ExecutionRecord

	// lastFeeBasis threads the fee basis from one period's close into the
	// next period's opening basis.
	lastFeeBasis Amount
	feeBasisSet  bool

	log *zap.Logger
}

func NewDeal(params DealParams) (*Deal, error) {
	if len(params.Schedule) == 0 {
		return nil, &ConfigurationError{Field: "schedule", Detail: "empty period sequence"}
	}
	if params.State == nil {
		return nil, &ConfigurationError{Field: "state", Detail: "deal state is required"}
	}
	if params.State.OC == nil || params.State.IC == nil {
		return nil, &ConfigurationError{Field: "triggers", Detail: "both OC and IC triggers are required"}
	}
	if params.Pool == nil {
		return nil, &ConfigurationError{Field: "pool", Detail: "asset pool collaborator is required"}
	}
	if params.Structure == nil {
		return nil, &ConfigurationError{Field: "structure", Detail: "waterfall structure is required"}
	}

	rates := params.Rates
	if rates == nil {
		rates = ConstantRate{Rate: ZeroRate()}
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	liq := params.Liquidation
	if liq == nil {
		liq = params.Structure
	}

	return &Deal{
		name:             params.Name,
		schedule:         params.Schedule,
		state:            params.State,
		pool:             params.Pool,
		rates:            rates,
		allocator:        NewAllocator(params.Structure),
		liqAllocator:     NewAllocator(liq),
		liquidationFloor: params.LiquidationFloor,
		collections:      NewAccount("collections", AccountCollection),
		status:           StatusSetup,
		lastFeeBasis:     ZeroAmount(),
		log:              logger.With(zap.String("deal", params.Name)),
	}, nil
}

func (d *Deal) Status() DealStatus { return d.status }
func (d *Deal) State() *DealState  { return d.state }
func (d *Deal) Schedule() []Period { return d.schedule }

// Records exposes the append-only audit trail. Read-only: the slice is
// shared, the records are never mutated after period close.
func (d *Deal) Records() []ExecutionRecord { return d.records }

// =============================================================================
// PERIOD LOOP
// =============================================================================

// Run drives every remaining period until the deal terminates.
func (d *Deal) Run(ctx context.Context) error {
	for d.status != StatusTerminated {
		if err := d.RunPeriod(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunPeriod executes exactly one accounting period, appends its
// ExecutionRecord, and rolls all state forward.
func (d *Deal) RunPeriod(ctx context.Context) error {
	if d.status == StatusTerminated {
		return &StateError{Op: "run_period", Have: d.status, Want: "an unterminated deal"}
	}
	if d.periodIdx >= len(d.schedule) {
		d.status = StatusTerminated
		return &StateError{Op: "run_period", Have: d.status, Want: "remaining periods"}
	}

	period := d.schedule[d.periodIdx]
	d.status = StatusPeriodActive

	// (a) Pull collections from the asset pool.
	collections, err := d.pool.Collections(ctx, period)
	if err != nil {
		return err
	}
	metrics, err := d.pool.Metrics(ctx, period)
	if err != nil {
		return err
	}

	// (b) Feed the ledger: external collections plus reinvestment-lot
	// runoff. In a liquidation period lots are sold, not amortized.
	if err := d.collections.Add(CashInterest, collections.Interest); err != nil {
		return err
	}
	if err := d.collections.Add(CashPrincipal, collections.PrincipalTotal()); err != nil {
		return err
	}
	for _, lot := range d.state.Lots {
		if d.liquidating {
			cf := lot.Liquidate(d.state.LiquidationPrice)
			if err := d.collections.Add(CashPrincipal, cf.PrincipalProceeds); err != nil {
				return err
			}
			continue
		}
		cf := lot.RunPeriod(period.CollectionStart, period.CollectionEnd)
		if err := d.collections.Add(CashInterest, cf.InterestProceeds); err != nil {
			return err
		}
		if err := d.collections.Add(CashPrincipal, cf.PrincipalProceeds); err != nil {
			return err
		}
	}

	// (c) Accrue tranche interest at the rate fixed on the determination
	// date, and advance the equity hurdle.
	reference := d.rates.Fix(period.DeterminationDate)
	for _, t := range d.state.Tranches() {
		t.AccrueInterest(period.CollectionStart, period.CollectionEnd, reference)
	}
	d.state.AccrueHurdle(period.CollectionStart, period.CollectionEnd)

	// (d)+(e) Portfolio aggregates feed the trigger tests. Lot balances
	// count as collateral.
	ocNumerator := metrics.OCNumerator().Add(d.state.LotBalance())
	liabilities := d.state.TotalLiabilityBalance()
	if err := d.state.OC.Calculate(ocNumerator, liabilities); err != nil {
		return err
	}
	if err := d.state.IC.Calculate(d.collections.Interest(), d.state.TotalInterestDue(), liabilities); err != nil {
		return err
	}

	// (f) Fee accruals. The opening basis is the prior period's closing
	// basis; the first period opens at its own closing measure.
	basisEnd := metrics.CollateralPar.Add(d.state.LotBalance())
	basisBegin := d.lastFeeBasis
	if !d.feeBasisSet {
		basisBegin = basisEnd
	}
	for _, f := range d.state.Fees() {
		if err := f.Accrue(period.CollectionStart, period.CollectionEnd, basisBegin, basisEnd, reference); err != nil {
			return err
		}
	}
	d.lastFeeBasis = basisEnd
	d.feeBasisSet = true

	// Interest proceeds short of the period's tranche interest are topped
	// up from reserve accounts before the waterfall runs.
	shortfall := d.state.TotalInterestDue().Sub(d.collections.Interest()).FloorZero()
	for _, a := range d.state.Accounts() {
		if !shortfall.IsPositive() {
			break
		}
		drawn := a.Draw(CashInterest, shortfall)
		if drawn.IsPositive() {
			if err := d.collections.Add(CashInterest, drawn); err != nil {
				return err
			}
			shortfall = shortfall.Sub(drawn)
			d.log.Debug("reserve draw",
				zap.String("account", a.Name),
				zap.String("amount", drawn.String()))
		}
	}

	// (g) Reinvestable principal: zero when liquidating, otherwise the
	// policy's percentage of the policy's category.
	maxReinvest := d.state.ReinvestPolicy.MaxReinvestable(period.PaymentDate, collections, d.liquidating)

	// (h)/(i) Execute the waterfall: the liquidation priority in an
	// event-of-default period, the normal priority otherwise.
	pools := &CashPools{
		Interest:  d.collections.Interest(),
		Principal: d.collections.Principal(),
	}
	allocCtx := &AllocationContext{
		State:       d.state,
		Period:      period,
		Pools:       pools,
		Liquidating: d.liquidating,
		MaxReinvest: maxReinvest,
	}
	rec := ExecutionRecord{
		Period:             period.Index,
		PaymentDate:        period.PaymentDate,
		InterestCollected:  d.collections.Interest(),
		PrincipalCollected: d.collections.Principal(),
		Liquidating:        d.liquidating,
	}

	allocator := d.allocator
	if d.liquidating {
		allocator = d.liqAllocator
	}
	if err := allocator.Run(allocCtx, &rec); err != nil {
		return err
	}
	d.status = StatusWaterfallExecuted

	rec.Reinvested = d.state.ReinvestedThisPeriod()
	rec.InterestRemaining = pools.Interest
	rec.PrincipalRemaining = pools.Principal
	rec.Triggers = []TriggerSnapshot{d.state.OC.Snapshot(), d.state.IC.Snapshot()}
	for _, f := range d.state.Fees() {
		rec.Fees = append(rec.Fees, f.Snapshot())
	}
	d.records = append(d.records, rec)

	// (j) Liquidation trigger for the next period: collateral-to-liability
	// ratio below the floor flips the deal into event-of-default.
	wasLiquidating := d.liquidating
	if !d.liquidationFloor.IsZero() {
		liabAfter := d.state.TotalLiabilityBalance()
		collateral := metrics.OCNumerator().Add(d.state.LotBalance())
		if liabAfter.IsPositive() {
			ratio := Rate{Value: collateral.Value.Div(liabAfter.Value)}
			if ratio.LessThan(d.liquidationFloor) {
				d.liquidating = true
			}
		}
	}

	// (k) Rollforward every stateful sub-component.
	d.state.Rollforward()
	d.collections.Rollforward()
	d.status = StatusRolledForward
	d.periodIdx++

	d.log.Debug("period closed",
		zap.Int("period", period.Index),
		zap.String("payment_date", period.PaymentDate.String()),
		zap.Bool("liquidating", rec.Liquidating),
		zap.String("interest_collected", rec.InterestCollected.String()),
		zap.String("principal_collected", rec.PrincipalCollected.String()),
		zap.String("liabilities", d.state.TotalLiabilityBalance().String()),
	)

	// (l) Termination: periods exhausted, pool fully run off, liabilities
	// retired, or an event-of-default with its liquidation proceeds spent.
	poolEmpty := metrics.CollateralPar.IsZero() && d.state.LotBalance().IsZero()
	liquidationSpent := wasLiquidating && rec.InterestRemaining.IsZero() && rec.PrincipalRemaining.IsZero() && poolEmpty
	if d.periodIdx >= len(d.schedule) || poolEmpty || d.state.LiabilitiesRetired() || liquidationSpent {
		d.status = StatusTerminated
		d.log.Info("deal terminated",
			zap.Int("periods_run", len(d.records)),
			zap.Bool("liabilities_retired", d.state.LiabilitiesRetired()),
		)
	}
	return nil
}
