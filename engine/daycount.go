package engine

import "github.com/shopspring/decimal"

// =============================================================================
// DAY COUNT - Year-fraction conventions for accruals
// =============================================================================

type DayCount string

const (
	Thirty360 DayCount = "30/360"
	Act360    DayCount = "ACT/360"
	Act365    DayCount = "ACT/365"
)

var (
	days360 = decimal.NewFromInt(360)
	days365 = decimal.NewFromInt(365)
)

// Fraction returns the exact year fraction between two dates under the
// convention. A reversed or degenerate range yields zero, never a negative
// accrual.
func (dc DayCount) Fraction(begin, end Date) Rate {
	if !begin.Before(end) {
		return ZeroRate()
	}
	switch dc {
	case Act360:
		return Rate{Value: decimal.NewFromInt(int64(DaysBetween(begin, end))).Div(days360)}
	case Act365:
		return Rate{Value: decimal.NewFromInt(int64(DaysBetween(begin, end))).Div(days365)}
	default:
		return Rate{Value: decimal.NewFromInt(int64(thirty360Days(begin, end))).Div(days360)}
	}
}

// thirty360Days implements the US 30/360 day count: each month counts 30
// days, with the standard 31st-of-month clamps.
func thirty360Days(begin, end Date) int {
	d1, d2 := begin.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	years := end.Year() - begin.Year()
	months := int(end.Month()) - int(begin.Month())
	return years*360 + months*30 + (d2 - d1)
}
