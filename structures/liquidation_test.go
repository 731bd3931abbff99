package structures_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/engine"
	"github.com/warp/cashflow-engine/structures"
)

func liquidationState(t *testing.T) *engine.DealState {
	t.Helper()
	state := twoTrancheState(t)
	sub := engine.NewFee("sub-mgmt", "Subordinated Management Fee",
		engine.BasisBeginning, rate("0.002"), engine.Thirty360)
	require.NoError(t, sub.Accrue(
		engine.NewDate(2023, time.February, 15), engine.NewDate(2023, time.May, 15),
		usd("160000000"), usd("160000000"), engine.ZeroRate()))
	state.AddFee(sub)
	return state
}

func liquidationBlueprint(state *engine.DealState) structures.Blueprint {
	b := baseBlueprint(state)
	b.SubordinateFees = []engine.FeeID{"sub-mgmt"}
	return b
}

func TestLiquidation_StepOrder(t *testing.T) {
	// GIVEN: The event-of-default blueprint
	// WHEN: The liquidation priority is built
	// THEN: Each tranche in seniority order takes interest, then its interest
	//       shortfall from principal proceeds, then principal; no reserve or
	//       reinvestment steps exist

	state := liquidationState(t)
	liq := structures.NewLiquidation(liquidationBlueprint(state))

	assert.Equal(t, []string{
		"senior-fee-senior-mgmt",
		"liq-interest-A",
		"liq-interest-shortfall-A",
		"liq-principal-A",
		"liq-interest-B",
		"liq-interest-shortfall-B",
		"liq-principal-B",
		"sub-fee-sub-mgmt",
		"residual-interest",
		"residual-principal",
	}, stepNames(liq))
}

func TestLiquidation_InterestShortfallFromProceeds(t *testing.T) {
	// GIVEN: 1M of interest against Class A's 1.25M due, with 3M of
	//        liquidation proceeds
	// WHEN: The liquidation priority allocates
	// THEN: The 410k interest shortfall is covered from principal proceeds
	//       before any principal repayment, and subordinate fees stay gated
	//       while the rated stack is outstanding

	state := liquidationState(t)
	passTriggers(t, state)
	liq := structures.NewLiquidation(liquidationBlueprint(state))

	rec, _ := runStructure(t, state, liq, usd("1000000"), usd("3000000"))

	interestA := findStep(t, rec, "liq-interest-A")
	assert.True(t, interestA.AmountPaid.Equal(usd("840000")),
		"cash interest after the senior fee, got %s", interestA.AmountPaid)

	shortfallA := findStep(t, rec, "liq-interest-shortfall-A")
	assert.Equal(t, engine.CashPrincipal, shortfallA.Source)
	assert.True(t, shortfallA.AmountPaid.Equal(usd("410000")),
		"shortfall from proceeds, got %s", shortfallA.AmountPaid)
	assert.True(t, state.Tranche("A").InterestDue.IsZero())

	principalA := findStep(t, rec, "liq-principal-A")
	assert.True(t, principalA.AmountPaid.Equal(usd("2590000")),
		"remaining proceeds to Class A principal, got %s", principalA.AmountPaid)
}

func TestLiquidation_SubFeesWaitForRetiredStack(t *testing.T) {
	// GIVEN: Proceeds large enough to retire both rated tranches
	// WHEN: The liquidation priority allocates
	// THEN: Both tranches are made whole, the subordinate fee opens and pays,
	//       and the remainder reaches equity

	state := liquidationState(t)
	passTriggers(t, state)
	liq := structures.NewLiquidation(liquidationBlueprint(state))

	rec, _ := runStructure(t, state, liq, usd("3000000"), usd("151000000"))

	assert.True(t, state.Tranche("A").IsRetired())
	assert.True(t, state.Tranche("B").IsRetired())
	require.True(t, state.LiabilitiesRetired())

	subFee := findStep(t, rec, "sub-fee-sub-mgmt")
	assert.False(t, subFee.Gated)
	assert.True(t, subFee.AmountPaid.Equal(usd("80000")))

	// 3M interest less 160k fee, 2.125M tranche interest, 80k sub fee.
	assert.True(t, findStep(t, rec, "residual-interest").AmountPaid.Equal(usd("635000")))
	// 151M proceeds less 150M of principal.
	assert.True(t, findStep(t, rec, "residual-principal").AmountPaid.Equal(usd("1000000")))
}

func TestLiquidation_SubFeeGatedWhileOutstanding(t *testing.T) {
	state := liquidationState(t)
	passTriggers(t, state)
	liq := structures.NewLiquidation(liquidationBlueprint(state))

	rec, _ := runStructure(t, state, liq, usd("3000000"), usd("10000000"))

	assert.False(t, state.LiabilitiesRetired())
	assert.True(t, findStep(t, rec, "sub-fee-sub-mgmt").Gated)
}
