package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/cashflow-engine/engine"
	"github.com/warp/cashflow-engine/pool"
	"github.com/warp/cashflow-engine/structures"
)

// =============================================================================
// DEAL FIXTURES
// =============================================================================

func newDealState() *engine.DealState {
	state := engine.NewDealState()
	state.AddTranche(&engine.Tranche{
		ID: "A", Name: "Class A", Seniority: 1,
		Balance:     usd("100000000"),
		Coupon:      rate("0.05"),
		DayCount:    engine.Thirty360,
		InterestDue: engine.ZeroAmount(),
		PIKBalance:  engine.ZeroAmount(),
	})
	state.AddTranche(&engine.Tranche{
		ID: "equity", Name: "Subordinated Notes", IsEquity: true,
		Balance: engine.ZeroAmount(), InterestDue: engine.ZeroAmount(),
		PIKBalance: engine.ZeroAmount(),
	})
	state.AddFee(engine.NewFee("senior-mgmt", "Senior Management Fee",
		engine.BasisBeginning, rate("0.004"), engine.Thirty360))
	state.OC = engine.NewOCTrigger("oc", rate("1.00"), engine.ZeroDenomPass)
	state.IC = engine.NewICTrigger("ic", rate("1.00"), engine.ZeroDenomPass)
	return state
}

func newDealStructure(state *engine.DealState) engine.Structure {
	return structures.NewSequential(structures.Blueprint{
		SeniorFees: []engine.FeeID{"senior-mgmt"},
	}.WithTranchesFrom(state))
}

func fourQuarterSchedule(t *testing.T) []engine.Period {
	t.Helper()
	periods, err := engine.BuildSchedule(engine.ScheduleConfig{
		Closing:        date(2023, time.February, 15),
		FirstPayment:   date(2023, time.May, 15),
		Maturity:       date(2024, time.February, 15),
		IntervalMonths: 3,
		Convention:     engine.ConventionUnadjusted,
		Stub:           engine.StubReject,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return periods
}

func steadyPool(periods, parM int) *pool.Scripted {
	byPeriod := make(map[int]engine.Collections, periods)
	balances := make(map[int]engine.PoolMetrics, periods)
	for i := 1; i <= periods; i++ {
		byPeriod[i] = engine.Collections{
			Interest:           usd("3000000"),
			ScheduledPrincipal: usd("10000000"),
		}
		balances[i] = engine.PoolMetrics{
			CollateralPar: engine.NewAmountFromInt(int64(parM) * 1000000),
		}
	}
	return &pool.Scripted{ByPeriod: byPeriod, Balances: balances}
}

// =============================================================================
// FULL RUNS
// =============================================================================

func TestDeal_RunToTermination(t *testing.T) {
	// GIVEN: A one-tranche deal over four quarterly periods
	// WHEN: The deal runs to termination
	// THEN: Four records exist, each conserving cash exactly, and Class A
	//       amortizes by the full principal collected

	state := newDealState()
	deal, err := engine.NewDeal(engine.DealParams{
		Name:      "test-deal",
		Schedule:  fourQuarterSchedule(t),
		State:     state,
		Pool:      steadyPool(4, 120),
		Rates:     engine.ConstantRate{Rate: engine.ZeroRate()},
		Structure: newDealStructure(state),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := deal.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if deal.Status() != engine.StatusTerminated {
		t.Errorf("expected terminated, got %s", deal.Status())
	}
	records := deal.Records()
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	for _, rec := range records {
		collected := rec.InterestCollected.Add(rec.PrincipalCollected)
		accounted := rec.TotalPaid().Add(rec.InterestRemaining).Add(rec.PrincipalRemaining)
		assertAmount(t, accounted, collected, "cash conservation")
	}

	// 4 x 10M of principal flowed to the single rated tranche.
	assertAmount(t, state.Tranche("A").Balance, usd("60000000"), "Class A amortization")
}

func TestDeal_RunPeriodAfterTermination_Rejected(t *testing.T) {
	state := newDealState()
	deal, err := engine.NewDeal(engine.DealParams{
		Name:      "test-deal",
		Schedule:  fourQuarterSchedule(t),
		State:     state,
		Pool:      steadyPool(4, 120),
		Structure: newDealStructure(state),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := deal.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	err = deal.RunPeriod(context.Background())
	if !errors.Is(err, engine.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestDeal_MissingCollaborators_Rejected(t *testing.T) {
	state := newDealState()
	cases := map[string]engine.DealParams{
		"no schedule":  {State: state, Pool: steadyPool(1, 100), Structure: newDealStructure(state)},
		"no state":     {Schedule: fourQuarterSchedule(t), Pool: steadyPool(1, 100), Structure: newDealStructure(state)},
		"no pool":      {Schedule: fourQuarterSchedule(t), State: state, Structure: newDealStructure(state)},
		"no structure": {Schedule: fourQuarterSchedule(t), State: state, Pool: steadyPool(1, 100)},
	}
	for name, params := range cases {
		if _, err := engine.NewDeal(params); !engine.IsConfigError(err) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestDeal_ReserveCoversInterestShortfall(t *testing.T) {
	// GIVEN: Period 1 funds a 2M reserve; period 2 collects only 500k of
	//        interest against 1.25M of tranche interest due
	// WHEN: Period 2 runs
	// THEN: The 750k shortfall is drawn from the reserve into the interest
	//       pool before the waterfall allocates

	state := newDealState()
	state.AddAccount(engine.NewAccount("reserve", engine.AccountReserve))

	blueprint := structures.Blueprint{
		SeniorFees:     []engine.FeeID{"senior-mgmt"},
		ReserveAccount: "reserve",
		ReserveTarget:  usd("2000000"),
	}.WithTranchesFrom(state)

	periods, err := engine.BuildSchedule(engine.ScheduleConfig{
		Closing:        date(2023, time.February, 15),
		FirstPayment:   date(2023, time.May, 15),
		Maturity:       date(2023, time.August, 15),
		IntervalMonths: 3,
		Convention:     engine.ConventionUnadjusted,
		Stub:           engine.StubReject,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	scripted := &pool.Scripted{
		ByPeriod: map[int]engine.Collections{
			1: {Interest: usd("4000000")},
			2: {Interest: usd("500000")},
		},
		Balances: map[int]engine.PoolMetrics{
			1: {CollateralPar: usd("120000000")},
			2: {CollateralPar: usd("120000000")},
		},
	}

	deal, err := engine.NewDeal(engine.DealParams{
		Name:      "reserve-deal",
		Schedule:  periods,
		State:     state,
		Pool:      scripted,
		Structure: structures.NewSequential(blueprint),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := deal.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	records := deal.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// Period 1 filled the reserve to target.
	reserveStep := findStepRecord(t, records[0], "reserve-funding")
	assertAmount(t, reserveStep.AmountPaid, usd("2000000"), "reserve funding")

	// Period 2's pool includes the 750k draw.
	assertAmount(t, records[1].InterestCollected, usd("1250000"), "interest pool after draw")
	assertAmount(t, state.Account("reserve").Total(), usd("1250000"), "reserve after draw")
}

func TestDeal_NegativeLotProceeds_SurfaceAsError(t *testing.T) {
	// GIVEN: A reinvestment lot whose prepayment curve carries a negative
	//        point, so its period cash flow comes out negative
	// WHEN: The period after the lot is funded runs
	// THEN: The run fails with an invalid-amount error instead of silently
	//       dropping the negative proceeds from the ledger

	state := newDealState()
	state.ReinvestPolicy = engine.ReinvestmentPolicy{
		ReinvestmentEnd: date(2030, time.January, 1),
		Percentage:      rate("1.0"),
		Category:        engine.CategoryAllPrincipal,
	}
	state.LotCoupon = rate("0.07")
	state.LotDayCount = engine.Thirty360
	state.LotPrepayCurve = []engine.Rate{rate("-0.10")}

	periods, err := engine.BuildSchedule(engine.ScheduleConfig{
		Closing:        date(2023, time.February, 15),
		FirstPayment:   date(2023, time.May, 15),
		Maturity:       date(2023, time.August, 15),
		IntervalMonths: 3,
		Convention:     engine.ConventionUnadjusted,
		Stub:           engine.StubReject,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	scripted := &pool.Scripted{
		ByPeriod: map[int]engine.Collections{
			1: {Interest: usd("3000000"), ScheduledPrincipal: usd("10000000")},
			2: {Interest: usd("3000000")},
		},
		Balances: map[int]engine.PoolMetrics{
			1: {CollateralPar: usd("120000000")},
			2: {CollateralPar: usd("120000000")},
		},
	}

	deal, err := engine.NewDeal(engine.DealParams{
		Name:      "bad-curve-deal",
		Schedule:  periods,
		State:     state,
		Pool:      scripted,
		Structure: newDealStructure(state),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = deal.Run(context.Background())
	if !errors.Is(err, engine.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func findStepRecord(t *testing.T, rec engine.ExecutionRecord, name string) engine.StepRecord {
	t.Helper()
	for _, s := range rec.Steps {
		if s.Step == name {
			return s
		}
	}
	t.Fatalf("step %q not recorded in period %d", name, rec.Period)
	return engine.StepRecord{}
}

// =============================================================================
// LIQUIDATION
// =============================================================================

func TestDeal_LiquidationTriggerFlipsPriority(t *testing.T) {
	// GIVEN: A collateral-to-liability ratio far below the liquidation floor
	//        after period 1
	// WHEN: Period 2 runs
	// THEN: It executes the liquidation priority and reinvests nothing,
	//       despite a wide-open reinvestment policy

	state := newDealState()
	state.ReinvestPolicy = engine.ReinvestmentPolicy{
		ReinvestmentEnd: date(2030, time.January, 1),
		Percentage:      rate("1.0"),
		Category:        engine.CategoryAllPrincipal,
	}

	periods, err := engine.BuildSchedule(engine.ScheduleConfig{
		Closing:        date(2023, time.February, 15),
		FirstPayment:   date(2023, time.May, 15),
		Maturity:       date(2023, time.August, 15),
		IntervalMonths: 3,
		Convention:     engine.ConventionUnadjusted,
		Stub:           engine.StubReject,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Thin collections keep liabilities outstanding; collateral at 50M
	// against 100M of liabilities sits far below the 0.9 floor.
	scripted := &pool.Scripted{
		ByPeriod: map[int]engine.Collections{
			1: {Interest: usd("1500000")},
			2: {Interest: usd("1500000"), ScheduledPrincipal: usd("45000000")},
		},
		Balances: map[int]engine.PoolMetrics{
			1: {CollateralPar: usd("50000000")},
			2: {CollateralPar: usd("50000000")},
		},
	}

	blueprint := structures.Blueprint{
		SeniorFees: []engine.FeeID{"senior-mgmt"},
	}.WithTranchesFrom(state)

	deal, err := engine.NewDeal(engine.DealParams{
		Name:             "eod-deal",
		Schedule:         periods,
		State:            state,
		Pool:             scripted,
		Structure:        structures.NewSequential(blueprint),
		Liquidation:      structures.NewLiquidation(blueprint),
		LiquidationFloor: rate("0.9"),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := deal.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	records := deal.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Liquidating {
		t.Error("period 1 should run the normal priority")
	}
	if !records[1].Liquidating {
		t.Error("period 2 should run the liquidation priority")
	}
	assertAmount(t, records[1].Reinvested, engine.ZeroAmount(),
		"liquidation period must reinvest nothing")
}
