package recorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/engine"
	"github.com/warp/cashflow-engine/recorder"
)

func sampleRecord(period int) engine.ExecutionRecord {
	usd := engine.MustAmount
	return engine.ExecutionRecord{
		Period:             period,
		PaymentDate:        engine.NewDate(2023, time.May, 15),
		InterestCollected:  usd("3000000"),
		PrincipalCollected: usd("10000000"),
		Reinvested:         usd("2000000"),
		InterestRemaining:  engine.ZeroAmount(),
		PrincipalRemaining: usd("500000"),
		Steps: []engine.StepRecord{
			{
				Step: "senior-fee-senior-mgmt", Source: engine.CashInterest,
				AmountDue: usd("160000"), AmountPaid: usd("160000"),
				RemainingAfter: usd("2840000"),
			},
			{
				Step: "reinvestment", Source: engine.CashPrincipal,
				Gated: true, AmountDue: engine.ZeroAmount(),
				AmountPaid: engine.ZeroAmount(), RemainingAfter: usd("10000000"),
			},
		},
		Triggers: []engine.TriggerSnapshot{
			{
				ID: "oc", Period: period,
				Numerator: usd("200000000"), Denominator: usd("150000000"),
				Ratio: engine.MustRate("1.3333"), RatioDefined: true, Pass: true,
				CureNeeded: engine.ZeroAmount(), CurePaid: engine.ZeroAmount(),
				CarriedCure: engine.ZeroAmount(),
			},
		},
		Fees: []engine.FeeSnapshot{
			{
				ID: "senior-mgmt", Name: "Senior Management Fee",
				Accrued: usd("160000"), Unpaid: engine.ZeroAmount(),
				Due: usd("160000"),
			},
		},
	}
}

func TestSQLite_RecordAndReadBack(t *testing.T) {
	// GIVEN: An in-memory record database
	// WHEN: Two periods are recorded for one deal
	// THEN: The period index reads back in order

	rec, err := recorder.NewSQLite(":memory:")
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, "test-deal", sampleRecord(1)))
	require.NoError(t, rec.Record(ctx, "test-deal", sampleRecord(2)))

	periods, err := rec.Periods(ctx, "test-deal")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, periods)

	other, err := rec.Periods(ctx, "other-deal")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLite_AppendOnly(t *testing.T) {
	// GIVEN: A period already recorded for a deal
	// WHEN: The same (deal, period) is recorded again
	// THEN: The insert fails; the audit trail is never rewritten

	rec, err := recorder.NewSQLite(":memory:")
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, "test-deal", sampleRecord(1)))

	err = rec.Record(ctx, "test-deal", sampleRecord(1))
	assert.Error(t, err)

	// Same period under a different deal key is fine.
	assert.NoError(t, rec.Record(ctx, "second-deal", sampleRecord(1)))
}

func TestNoop_DiscardsEverything(t *testing.T) {
	var rec recorder.Noop
	require.NoError(t, rec.Record(context.Background(), "test-deal", sampleRecord(1)))
	require.NoError(t, rec.Close())
}
