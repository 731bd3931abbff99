/*
schedule.go - Period generation

PURPOSE:
  Generates the ordered, finite sequence of accounting periods spanning the
  deal's closing date to its maturity. The sequence is produced once at deal
  setup and never mutated; every other component addresses periods by index.

CONTRACT:
  - Payment dates are strictly increasing.
  - Collection windows tile the deal life with no gaps or overlaps: period
    n's collection end is period n+1's collection start.
  - The final period's payment date equals (or is business-day adjusted
    from) the maturity date.
  - A first payment date before the closing date, or a span the nominal
    interval does not evenly tile (under StubReject), is a configuration
    error surfaced before any period runs.

STUB POLICY:
  Whether an uneven division of the deal life is an error or tolerated with
  a short final period is a per-deal policy, not a hidden default:
    StubReject     -> ConfigurationError
    StubShortFinal -> final period shortened to end at maturity
*/
package engine

import "time"

// =============================================================================
// PERIOD - One accounting period, immutable once generated
// =============================================================================

type Period struct {
	// Index is 1-based; period 0 does not exist.
	Index int

	// Collection window [CollectionStart, CollectionEnd). Windows are
	// contiguous across the schedule.
	CollectionStart Date
	CollectionEnd   Date

	// PaymentDate is the business-day adjusted distribution date.
	PaymentDate Date

	// DeterminationDate fixes the period's reference rate, a configured
	// number of business days before the collection window opens.
	DeterminationDate Date
}

// =============================================================================
// SCHEDULE CONFIGURATION
// =============================================================================

type StubPolicy string

const (
	StubReject     StubPolicy = "reject"
	StubShortFinal StubPolicy = "short_final"
)

type ScheduleConfig struct {
	Closing      Date
	FirstPayment Date
	Maturity     Date

	// IntervalMonths is the nominal payment interval (e.g., 3 for quarterly).
	IntervalMonths int

	// PaymentDay anchors each nominal payment date to a day of month,
	// clamped to the month's length (31 means month-end everywhere). Zero
	// takes the first payment date's day of month.
	PaymentDay int

	Convention BusinessDayConvention
	Calendar   Calendar
	Stub       StubPolicy

	// DeterminationOffsetDays is the business-day lead of the rate
	// determination date before each collection window opens. Zero means
	// rates fix on the window start itself.
	DeterminationOffsetDays int
}

// =============================================================================
// SCHEDULER
// =============================================================================

// BuildSchedule generates the full period sequence for the deal.
func BuildSchedule(cfg ScheduleConfig) ([]Period, error) {
	if cfg.IntervalMonths <= 0 {
		return nil, &ConfigurationError{Field: "interval_months", Detail: "must be positive"}
	}
	if cfg.Closing.IsZero() || cfg.FirstPayment.IsZero() || cfg.Maturity.IsZero() {
		return nil, &ConfigurationError{Field: "anchor_dates", Detail: "closing, first payment, and maturity are all required"}
	}
	if cfg.FirstPayment.Before(cfg.Closing) {
		return nil, &ConfigurationError{Field: "first_payment", Detail: "precedes closing date"}
	}
	if !cfg.Maturity.After(cfg.FirstPayment) && !cfg.Maturity.Equal(cfg.FirstPayment) {
		return nil, &ConfigurationError{Field: "maturity", Detail: "precedes first payment date"}
	}

	cal := cfg.Calendar
	if cal == nil {
		cal = WeekendCalendar{}
	}

	paymentDay := cfg.PaymentDay
	if paymentDay == 0 {
		paymentDay = cfg.FirstPayment.Day()
	}
	if paymentDay < 1 || paymentDay > 31 {
		return nil, &ConfigurationError{Field: "payment_day", Detail: "must be between 1 and 31"}
	}
	if !nominalPaymentDate(cfg.FirstPayment, 0, paymentDay).Equal(cfg.FirstPayment) {
		return nil, &ConfigurationError{Field: "payment_day", Detail: "does not produce the first payment date"}
	}

	// Nominal (unadjusted) payment dates tile the span. Each is anchored to
	// the payment day of its own month rather than chained through AddMonths,
	// so month-end schedules keep their anchor instead of drifting through
	// short months. Adjustment applies to the distribution date only, never
	// to the collection windows, so windows stay contiguous regardless of
	// weekends.
	var nominal []Date
	for k := 0; ; k++ {
		current := nominalPaymentDate(cfg.FirstPayment, k*cfg.IntervalMonths, paymentDay)
		if current.Before(cfg.Maturity) {
			nominal = append(nominal, current)
			continue
		}
		if current.Equal(cfg.Maturity) {
			nominal = append(nominal, current)
			break
		}
		switch cfg.Stub {
		case StubShortFinal:
			nominal = append(nominal, cfg.Maturity)
		default:
			return nil, &ConfigurationError{
				Field:  "maturity",
				Detail: "nominal interval does not evenly tile the deal life (stub policy is reject)",
			}
		}
		break
	}

	periods := make([]Period, 0, len(nominal))
	windowStart := cfg.Closing
	for i, nom := range nominal {
		p := Period{
			Index:             i + 1,
			CollectionStart:   windowStart,
			CollectionEnd:     nom,
			PaymentDate:       cfg.Convention.Adjust(nom, cal),
			DeterminationDate: AddBusinessDays(windowStart, -cfg.DeterminationOffsetDays, cal),
		}
		if i > 0 && !p.PaymentDate.After(periods[i-1].PaymentDate) {
			return nil, &ConfigurationError{Field: "schedule", Detail: "payment dates are not strictly increasing"}
		}
		periods = append(periods, p)
		windowStart = nom
	}
	return periods, nil
}

// nominalPaymentDate is the payment-day anchor stepped monthsAhead months
// from the first payment's month, with the day clamped to the target
// month's length.
func nominalPaymentDate(first Date, monthsAhead, day int) Date {
	months := int(first.Month()) - 1 + monthsAhead
	year := first.Year() + months/12
	month := time.Month(months%12 + 1)
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
