package engine

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity time point (all deal dates are whole days)
// =============================================================================

type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateFromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.Time.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// =============================================================================
// CALENDAR - Holiday lookup for business-day adjustment
// =============================================================================

// Calendar answers whether a date is a market holiday. Weekends are handled
// by the conventions themselves, not by the calendar.
type Calendar interface {
	IsHoliday(date Date) bool
}

// WeekendCalendar is the default calendar: no holidays beyond weekends.
type WeekendCalendar struct{}

func (WeekendCalendar) IsHoliday(date Date) bool { return false }

// FixedCalendar holds an explicit holiday list.
type FixedCalendar struct {
	Holidays []Date
}

func (c FixedCalendar) IsHoliday(date Date) bool {
	for _, h := range c.Holidays {
		if h.Equal(date) {
			return true
		}
	}
	return false
}

// IsBusinessDay reports whether the date is neither a weekend nor a holiday.
func IsBusinessDay(d Date, cal Calendar) bool {
	if d.IsWeekend() {
		return false
	}
	if cal != nil && cal.IsHoliday(d) {
		return false
	}
	return true
}

// =============================================================================
// BUSINESS-DAY CONVENTIONS
// =============================================================================

type BusinessDayConvention string

const (
	// ConventionUnadjusted leaves dates where they fall.
	ConventionUnadjusted BusinessDayConvention = "unadjusted"

	// ConventionFollowing rolls to the next business day.
	ConventionFollowing BusinessDayConvention = "following"

	// ConventionModifiedFollowing rolls forward unless that crosses a
	// month-end, in which case it rolls backward.
	ConventionModifiedFollowing BusinessDayConvention = "modified_following"
)

// Adjust applies the convention to a date under the given calendar.
func (bdc BusinessDayConvention) Adjust(d Date, cal Calendar) Date {
	switch bdc {
	case ConventionFollowing:
		return nextBusinessDay(d, cal)
	case ConventionModifiedFollowing:
		adjusted := nextBusinessDay(d, cal)
		if adjusted.Month() != d.Month() {
			return previousBusinessDay(d, cal)
		}
		return adjusted
	default:
		return d
	}
}

func nextBusinessDay(d Date, cal Calendar) Date {
	for !IsBusinessDay(d, cal) {
		d = d.AddDays(1)
	}
	return d
}

func previousBusinessDay(d Date, cal Calendar) Date {
	for !IsBusinessDay(d, cal) {
		d = d.AddDays(-1)
	}
	return d
}

// AddBusinessDays walks n business days from d (n may be negative).
func AddBusinessDays(d Date, n int, cal Calendar) Date {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for i := 0; i < n; i++ {
		d = d.AddDays(step)
		for !IsBusinessDay(d, cal) {
			d = d.AddDays(step)
		}
	}
	return d
}
