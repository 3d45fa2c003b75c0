package payroll

import (
	"math"

	"github.com/obrasur/payroll-engine/generic"
)

// =============================================================================
// ELIGIBILITY - Days of a period an employee can be paid for
// =============================================================================

// FallbackPeriodDays is used when a period has neither a configured day count
// nor a usable date window.
const FallbackPeriodDays = 30

// Eligibility is the result of ResolveEligibility.
//
// Invariant: 0 <= EligibleDays <= PeriodDayCount and
// GapDays = PeriodDayCount - EligibleDays.
type Eligibility struct {
	PeriodDayCount float64 `json:"periodDayCount"`
	EligibleDays   float64 `json:"eligibleDays"`
	GapDays        float64 `json:"gapDays"`
}

// Full reports whether the employee is eligible for the whole period.
func (e Eligibility) Full() bool {
	return e.GapDays == 0
}

// PeriodDayCount resolves the day count a period is measured against:
// WorkingDays when in [1,30], else the inclusive length of the date window,
// else FallbackPeriodDays.
func PeriodDayCount(p PayrollPeriod) float64 {
	if p.WorkingDays >= 1 && p.WorkingDays <= 30 {
		return float64(p.WorkingDays)
	}
	if w, ok := p.Window(); ok {
		return float64(w.DayCount())
	}
	return FallbackPeriodDays
}

// EffectiveStartDate prefers the attendance-level start date over the
// employee record's.
func EffectiveStartDate(att AttendanceFacts, emp Employee) *generic.Date {
	if att.StartDate != nil && !att.StartDate.IsZero() {
		return att.StartDate
	}
	if emp.StartDate != nil && !emp.StartDate.IsZero() {
		return emp.StartDate
	}
	return nil
}

// ResolveEligibility computes eligible and gap days for a start date.
//
// Rules, in order:
//   - no start date, or no usable period window: fully eligible
//   - start after the period end: nothing eligible, the whole period is gap
//   - start on or before the period start: fully eligible
//   - otherwise: periodEnd - start + 1 days, clamped to [0, periodDayCount]
func ResolveEligibility(p PayrollPeriod, start *generic.Date) Eligibility {
	total := PeriodDayCount(p)
	full := Eligibility{PeriodDayCount: total, EligibleDays: total}

	if start == nil || start.IsZero() {
		return full
	}
	window, ok := p.Window()
	if !ok {
		return full
	}
	if start.After(window.End) {
		return Eligibility{PeriodDayCount: total, GapDays: total}
	}
	if start.BeforeOrEqual(window.Start) {
		return full
	}

	eligible := float64(generic.DaysBetween(*start, window.End) + 1)
	eligible = math.Min(math.Max(eligible, 0), total)
	return Eligibility{
		PeriodDayCount: total,
		EligibleDays:   eligible,
		GapDays:        math.Max(total-eligible, 0),
	}
}

// EntryEligibility resolves eligibility for an entry, using the attendance
// start date when set and the employee's otherwise.
func EntryEligibility(entry PayrollEntry, emp Employee, p PayrollPeriod) Eligibility {
	return ResolveEligibility(p, EffectiveStartDate(entry.Attendance, emp))
}
