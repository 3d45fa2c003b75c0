package generic

import "time"

// =============================================================================
// PERIOD - Inclusive calendar window
// =============================================================================

// Period is an inclusive date window [Start, End].
//
// Examples:
//   - Payroll month: Jan 1 - Jan 31
//   - Split fortnight: Mar 16 - Mar 31
type Period struct {
	Start Date
	End   Date
}

// MonthPeriod returns the calendar month containing the given year/month.
func MonthPeriod(year int, month int) Period {
	m := monthOf(month)
	return Period{Start: StartOfMonth(year, m), End: EndOfMonth(year, m)}
}

// Valid reports whether both bounds are set and End is not before Start.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// DayCount returns the inclusive number of calendar days, 0 for an invalid period.
func (p Period) DayCount() int {
	if !p.Valid() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

func monthOf(month int) time.Month {
	if month < 1 || month > 12 {
		return time.January
	}
	return time.Month(month)
}
