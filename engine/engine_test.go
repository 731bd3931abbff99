package engine_test

import (
	"testing"
	"time"

	"github.com/warp/cashflow-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func usd(s string) engine.Amount {
	return engine.MustAmount(s)
}

func rate(s string) engine.Rate {
	return engine.MustRate(s)
}

func date(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

func assertAmount(t *testing.T, got, want engine.Amount, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

func assertRate(t *testing.T, got, want engine.Rate, label string) {
	t.Helper()
	if !got.Value.Equal(want.Value) {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

// quarterly returns a ready quarterly schedule config spanning two years.
func quarterly() engine.ScheduleConfig {
	return engine.ScheduleConfig{
		Closing:        date(2023, time.February, 15),
		FirstPayment:   date(2023, time.May, 15),
		Maturity:       date(2025, time.May, 15),
		IntervalMonths: 3,
		Convention:     engine.ConventionUnadjusted,
		Stub:           engine.StubReject,
	}
}
