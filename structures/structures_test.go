package structures_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/engine"
	"github.com/warp/cashflow-engine/structures"
)

// =============================================================================
// FIXTURES
// =============================================================================

func usd(s string) engine.Amount { return engine.MustAmount(s) }
func rate(s string) engine.Rate  { return engine.MustRate(s) }

// twoTrancheState is the shared deal: two rated tranches with interest due,
// an equity class, a senior fee with accrued balance, a reserve account,
// and coverage tests at 1.00.
func twoTrancheState(t *testing.T) *engine.DealState {
	t.Helper()
	state := engine.NewDealState()
	state.AddTranche(&engine.Tranche{
		ID: "A", Name: "Class A", Seniority: 1,
		Balance:     usd("100000000"),
		InterestDue: usd("1250000"),
		PIKBalance:  engine.ZeroAmount(),
	})
	state.AddTranche(&engine.Tranche{
		ID: "B", Name: "Class B", Seniority: 2,
		Balance:     usd("50000000"),
		InterestDue: usd("875000"),
		PIKBalance:  engine.ZeroAmount(),
	})
	state.AddTranche(&engine.Tranche{
		ID: "equity", Name: "Subordinated Notes", IsEquity: true,
		Balance: engine.ZeroAmount(), InterestDue: engine.ZeroAmount(),
		PIKBalance: engine.ZeroAmount(),
	})

	fee := engine.NewFee("senior-mgmt", "Senior Management Fee",
		engine.BasisBeginning, rate("0.004"), engine.Thirty360)
	require.NoError(t, fee.Accrue(
		engine.NewDate(2023, time.February, 15), engine.NewDate(2023, time.May, 15),
		usd("160000000"), usd("160000000"), engine.ZeroRate()))
	state.AddFee(fee)

	state.AddAccount(engine.NewAccount("reserve", engine.AccountReserve))
	state.OC = engine.NewOCTrigger("oc", rate("1.00"), engine.ZeroDenomPass)
	state.IC = engine.NewICTrigger("ic", rate("1.00"), engine.ZeroDenomPass)
	return state
}

func passTriggers(t *testing.T, state *engine.DealState) {
	t.Helper()
	require.NoError(t, state.OC.Calculate(usd("200000000"), usd("150000000")))
	require.NoError(t, state.IC.Calculate(usd("5000000"), usd("2125000"), usd("150000000")))
}

func failIC(t *testing.T, state *engine.DealState) {
	t.Helper()
	require.NoError(t, state.OC.Calculate(usd("200000000"), usd("150000000")))
	require.NoError(t, state.IC.Calculate(usd("1000000"), usd("2125000"), usd("150000000")))
}

func baseBlueprint(state *engine.DealState) structures.Blueprint {
	return structures.Blueprint{
		SeniorFees:     []engine.FeeID{"senior-mgmt"},
		ReserveAccount: "reserve",
		ReserveTarget:  usd("2000000"),
	}.WithTranchesFrom(state)
}

func runStructure(t *testing.T, state *engine.DealState, s engine.Structure,
	interest, principal engine.Amount) (*engine.ExecutionRecord, *engine.CashPools) {
	t.Helper()
	pools := &engine.CashPools{Interest: interest, Principal: principal}
	ctx := &engine.AllocationContext{
		State:       state,
		Period:      engine.Period{Index: 1},
		Pools:       pools,
		MaxReinvest: engine.ZeroAmount(),
	}
	rec := &engine.ExecutionRecord{Period: 1}
	require.NoError(t, engine.NewAllocator(s).Run(ctx, rec))
	return rec, pools
}

func findStep(t *testing.T, rec *engine.ExecutionRecord, name string) engine.StepRecord {
	t.Helper()
	for _, s := range rec.Steps {
		if s.Step == name {
			return s
		}
	}
	t.Fatalf("step %q not recorded", name)
	return engine.StepRecord{}
}

func stepNames(s engine.Structure) []string {
	steps := s.Steps()
	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.Name
	}
	return names
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// =============================================================================
// SEQUENTIAL
// =============================================================================

func TestSequential_StepOrder(t *testing.T) {
	// GIVEN: The base blueprint with a senior fee, two tranches, and a reserve
	// WHEN: The sequential priority is built
	// THEN: Steps follow fee, interest, cures, reserve, principal waterfall,
	//       residual order with tranches most senior first

	state := twoTrancheState(t)
	seq := structures.NewSequential(baseBlueprint(state))

	assert.Equal(t, []string{
		"senior-fee-senior-mgmt",
		"interest-A",
		"interest-B",
		"ic-cure",
		"oc-cure-interest",
		"reserve-funding",
		"oc-cure-principal",
		"reinvestment",
		"principal-A",
		"principal-B",
		"residual-interest",
		"residual-principal",
	}, stepNames(seq))
}

func TestSequential_ReserveFundsToTarget(t *testing.T) {
	// GIVEN: An empty reserve with a 2M target and ample interest
	// WHEN: The sequential priority allocates
	// THEN: The reserve step tops the account up to exactly its target

	state := twoTrancheState(t)
	passTriggers(t, state)
	seq := structures.NewSequential(baseBlueprint(state))

	rec, _ := runStructure(t, state, seq, usd("6000000"), engine.ZeroAmount())

	reserve := findStep(t, rec, "reserve-funding")
	assert.True(t, reserve.AmountPaid.Equal(usd("2000000")),
		"reserve funded to target, got %s", reserve.AmountPaid)
	assert.True(t, state.Account("reserve").Total().Equal(usd("2000000")))
}

// =============================================================================
// TURBO
// =============================================================================

func TestTurbo_PrincipalFromInterestBeforeReserve(t *testing.T) {
	// GIVEN: The turbo priority
	// WHEN: The step list is built
	// THEN: Turbo principal steps draw on interest and sit between the
	//       coverage cures and the reserve funding

	state := twoTrancheState(t)
	turbo := structures.NewTurbo(baseBlueprint(state))
	names := stepNames(turbo)

	turboA := indexOf(names, "turbo-principal-A")
	require.GreaterOrEqual(t, turboA, 0)
	assert.Less(t, indexOf(names, "oc-cure-interest"), turboA)
	assert.Less(t, turboA, indexOf(names, "turbo-principal-B"))
	assert.Less(t, indexOf(names, "turbo-principal-B"), indexOf(names, "reserve-funding"))

	for _, step := range turbo.Steps() {
		if step.Name == "turbo-principal-A" {
			assert.Equal(t, engine.CashInterest, step.Source)
		}
	}
}

func TestTurbo_ExcessInterestAmortizes(t *testing.T) {
	// GIVEN: 3M of interest against 160k fee and 2.125M of tranche interest
	// WHEN: The turbo priority allocates with no principal collections
	// THEN: The 715k of excess interest pays down Class A principal

	state := twoTrancheState(t)
	passTriggers(t, state)
	turbo := structures.NewTurbo(baseBlueprint(state))

	rec, pools := runStructure(t, state, turbo, usd("3000000"), engine.ZeroAmount())

	turboA := findStep(t, rec, "turbo-principal-A")
	assert.True(t, turboA.AmountPaid.Equal(usd("715000")),
		"turbo principal, got %s", turboA.AmountPaid)
	assert.True(t, state.Tranche("A").Balance.Equal(usd("99285000")))
	assert.True(t, pools.Interest.IsZero())
}
