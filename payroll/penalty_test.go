package payroll_test

import (
	"testing"
	"time"

	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/stretchr/testify/assert"
)

func marchDays(days ...int) []generic.Date {
	out := make([]generic.Date, len(days))
	for i, d := range days {
		out[i] = generic.NewDate(2025, time.March, d)
	}
	return out
}

func TestSundayPenalty_OneDayPerWeek(t *testing.T) {
	// GIVEN: March 2025 (Mar 1 is a Saturday), Monday-start weeks
	// WHEN: Two absences in the week of Mar 3-9 and one in Mar 10-16
	// THEN: Two penalty days (Sundays Mar 9 and Mar 16)

	window := generic.MonthPeriod(2025, 3)
	policy := payroll.DefaultPenaltyPolicy()

	assert.Equal(t, 1.0, policy.PenaltyDays(marchDays(4, 6), window))
	assert.Equal(t, 2.0, policy.PenaltyDays(marchDays(4, 6, 12), window))
}

func TestSundayPenalty_SundayOutsideWindowNotCharged(t *testing.T) {
	window := generic.MonthPeriod(2025, 3)
	policy := payroll.DefaultPenaltyPolicy()

	// Mon Mar 31 belongs to the week whose Sunday is Apr 6
	assert.Equal(t, 0.0, policy.PenaltyDays(marchDays(31), window))
}

func TestSundayPenalty_SundayAbsenceIsNotAWeekdayAbsence(t *testing.T) {
	window := generic.MonthPeriod(2025, 3)
	assert.Equal(t, 0.0, payroll.DefaultPenaltyPolicy().PenaltyDays(marchDays(9), window))
}

func TestSundayPenalty_WeekBoundaryIsConfigurable(t *testing.T) {
	// Saturday Mar 1: Monday-start week ends Sunday Mar 2 (inside),
	// Sunday-start week began Sunday Feb 23 (outside)
	window := generic.MonthPeriod(2025, 3)

	monday := payroll.SundayPenalty{WeekStart: time.Monday}
	sunday := payroll.SundayPenalty{WeekStart: time.Sunday}

	assert.Equal(t, 1.0, monday.PenaltyDays(marchDays(1), window))
	assert.Equal(t, 0.0, sunday.PenaltyDays(marchDays(1), window))

	// Sat Mar 8: Sunday-start week Mar 2-8
	assert.Equal(t, 1.0, sunday.PenaltyDays(marchDays(8), window))
}

func TestPenaltyPolicies_Misc(t *testing.T) {
	window := generic.MonthPeriod(2025, 3)
	assert.Equal(t, 0.0, payroll.NoPenalty{}.PenaltyDays(marchDays(4, 5, 6), window))
	assert.Equal(t, 0.0, payroll.DefaultPenaltyPolicy().PenaltyDays(marchDays(4), generic.Period{}))
	assert.Equal(t, 0.0, payroll.DefaultPenaltyPolicy().PenaltyDays(
		[]generic.Date{generic.NewDate(2025, time.April, 2)}, window), "absence outside window")

	assert.IsType(t, payroll.NoPenalty{}, payroll.PolicyByName("none"))
	assert.IsType(t, payroll.SundayPenalty{}, payroll.PolicyByName("sunday"))
}
