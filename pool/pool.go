/*
Package pool provides a deterministic asset-pool collaborator.

PURPOSE:
  The engine consumes aggregated collections and portfolio metrics from an
  AssetPool; it never models assets itself. This package supplies a
  synthetic, fully deterministic implementation driven by declining-balance
  arithmetic, so whole deals can be simulated and tested without external
  data.

MODEL:
  The pool starts at an initial par balance and, each period, produces
  interest at a weighted-average coupon plus principal at configured
  scheduled/unscheduled runoff rates and a default rate with a recovery
  lag of zero (recoveries realized in-period at 1 - severity).
*/
package pool

import (
	"context"

	"github.com/warp/cashflow-engine/engine"
)

// Static is a deterministic declining-balance pool.
type Static struct {
	InitialPar engine.Amount

	// WAC is the pool's weighted-average coupon (annual).
	WAC      engine.Rate
	DayCount engine.DayCount

	// Per-period runoff rates applied to the opening balance.
	ScheduledRate   engine.Rate
	UnscheduledRate engine.Rate
	DefaultRate     engine.Rate
	Severity        engine.Rate

	// CCCHaircut is a flat haircut applied to the OC numerator.
	CCCHaircut engine.Amount

	balance    engine.Amount
	lastPeriod int
}

func NewStatic(initialPar engine.Amount, wac engine.Rate, dayCount engine.DayCount) *Static {
	return &Static{
		InitialPar: initialPar,
		WAC:        wac,
		DayCount:   dayCount,
		CCCHaircut: engine.ZeroAmount(),
		balance:    initialPar,
	}
}

func (p *Static) Balance() engine.Amount { return p.balance }

// Collections amortizes the pool through one period. Periods must be
// requested in order; the pool is as strictly sequential as the deal.
func (p *Static) Collections(_ context.Context, period engine.Period) (engine.Collections, error) {
	if period.Index <= p.lastPeriod {
		return engine.Collections{}, &engine.InputError{Op: "pool.collections", Detail: "period requested out of order"}
	}
	p.lastPeriod = period.Index

	opening := p.balance
	frac := p.DayCount.Fraction(period.CollectionStart, period.CollectionEnd)

	interest := opening.MulRate(p.WAC).MulRate(frac)
	defaulted := opening.MulRate(p.DefaultRate)
	recovered := defaulted.MulRate(p.Severity.Complement())
	performing := opening.Sub(defaulted)
	scheduled := performing.MulRate(p.ScheduledRate)
	unscheduled := performing.MulRate(p.UnscheduledRate)

	p.balance = opening.Sub(defaulted).Sub(scheduled).Sub(unscheduled).FloorZero()

	return engine.Collections{
		Interest:             interest,
		ScheduledPrincipal:   scheduled,
		UnscheduledPrincipal: unscheduled,
		Recoveries:           recovered,
	}, nil
}

func (p *Static) Metrics(_ context.Context, _ engine.Period) (engine.PoolMetrics, error) {
	return engine.PoolMetrics{
		CollateralPar:        p.balance,
		DefaultedMarketValue: engine.ZeroAmount(),
		CCCHaircut:           p.CCCHaircut,
	}, nil
}

var _ engine.AssetPool = (*Static)(nil)

// Scripted replays explicit per-period collections and metrics, indexed by
// period. Tests use it to pin exact inputs.
type Scripted struct {
	ByPeriod map[int]engine.Collections
	Balances map[int]engine.PoolMetrics
}

func (s *Scripted) Collections(_ context.Context, period engine.Period) (engine.Collections, error) {
	return s.ByPeriod[period.Index], nil
}

func (s *Scripted) Metrics(_ context.Context, period engine.Period) (engine.PoolMetrics, error) {
	return s.Balances[period.Index], nil
}

var _ engine.AssetPool = (*Scripted)(nil)
