/*
dayinfo.go - Core proration: net payable days for a period

PURPOSE:
  Combines eligibility, attendance counts and the unit normalizer into the
  number of days an employee is paid for, measured both against the base
  day count (pay) and against the period's actual length (display).

ALGORITHM:
  1. hoursPerDay from the breakdown rates (units.go)
  2. Permission hours >= one day roll into whole permission days
       20 h @ 8 h/day  ->  2 days + 4 h
  3. deductionDays  = absence + permissionDays + penaltyDays + gapDays
     deductionHours = permissionHours + tardinessMinutes/60
  4. netDaysFrom(total) = max(total - deductionDays - deductionHours/hoursPerDay, 0)
     netDays        = netDaysFrom(baseDays), capped by EligibleDaysOverride
     netDaysDisplay = netDaysFrom(displayDays)
  5. workedDays not supplied: eligible - (absence + permissionDays + penaltyDays)

EXAMPLE:
  Jan 1-31, baseDays 31, hired Jan 16 (gap 15), no absences:
    netDays = 31 - 15 = 16, Display = "16 días / 31"

SEE ALSO:
  - eligibility.go: gap days
  - summary.go: the only production caller
*/
package payroll

import (
	"math"

	"github.com/obrasur/payroll-engine/generic"
)

// DefaultBaseDays is the base day count when none is supplied.
const DefaultBaseDays = 30

// DayInfoOptions tune ComputeDayInfo. Zero values fall back to defaults.
type DayInfoOptions struct {
	// BaseDays is the pay base (DefaultBaseDays when <= 0).
	BaseDays float64

	// DisplayDays is the period's actual day count for the human summary.
	DisplayDays float64

	// DisplayDaysFallback is used when DisplayDays is not set. BaseDays otherwise.
	DisplayDaysFallback float64

	// InitialGapDays are the unworked days before the employee's start.
	InitialGapDays float64

	// EligibleDaysOverride caps NetDays when smaller.
	EligibleDaysOverride *float64

	// EligibleDays, when known, backfills a missing WorkedDays.
	EligibleDays float64
}

// DayInfo is the output of ComputeDayInfo. All day figures are >= 0.
type DayInfo struct {
	HoursPerDay     float64 `json:"hoursPerDay"`
	NetDays         float64 `json:"netDays"`
	NetDaysDisplay  float64 `json:"netDaysDisplay"`
	WorkedDays      float64 `json:"workedDays"`
	DisplayDays     float64 `json:"displayDays"`
	PermissionDays  float64 `json:"permissionDays"`
	PermissionHours float64 `json:"permissionHours"`
	DeductionDays   float64 `json:"deductionDays"`
	DeductionHours  float64 `json:"deductionHours"`
	Display         string  `json:"display"`
}

// NormalizePermission folds permission hours worth one or more days into the
// day count and returns the sub-day hour remainder.
func NormalizePermission(days, hours, hoursPerDay float64) (float64, float64) {
	if hoursPerDay <= 0 || math.IsNaN(hoursPerDay) {
		hoursPerDay = DefaultHoursPerDay
	}
	days = generic.NormalizeQuantity(generic.NonNegative(days))
	hours = generic.NormalizeQuantity(generic.NonNegative(hours))

	extra := math.Floor(generic.NormalizeQuantity(hours / hoursPerDay))
	remainder := generic.NormalizeQuantity(math.Max(hours-extra*hoursPerDay, 0))
	return generic.NormalizeQuantity(days + extra), remainder
}

// ComputeDayInfo runs the proration steps for one entry.
func ComputeDayInfo(att AttendanceFacts, b Breakdown, opts DayInfoOptions) DayInfo {
	hpd := HoursPerDay(b)

	permDays, permHours := NormalizePermission(att.PermissionDays, att.PermissionHours, hpd)

	absence := generic.NonNegative(att.AbsenceDays)
	penalty := generic.NonNegative(att.AbsencePenaltyDays)
	gap := generic.NonNegative(opts.InitialGapDays)

	deductionDays := generic.NormalizeQuantity(absence + permDays + penalty + gap)
	deductionHours := generic.NormalizeQuantity(permHours + generic.NonNegative(att.TardinessMinutes)/60)

	netDaysFrom := func(total float64) float64 {
		return generic.NormalizeQuantity(math.Max(total-deductionDays-deductionHours/hpd, 0))
	}

	baseDays := generic.NonNegative(opts.BaseDays)
	if baseDays == 0 {
		baseDays = DefaultBaseDays
	}
	displayDays := generic.NonNegative(opts.DisplayDays)
	if displayDays == 0 {
		displayDays = generic.NonNegative(opts.DisplayDaysFallback)
	}
	if displayDays == 0 {
		displayDays = baseDays
	}

	netDays := netDaysFrom(baseDays)
	if opts.EligibleDaysOverride != nil {
		if limit := generic.NonNegative(*opts.EligibleDaysOverride); limit < netDays {
			netDays = generic.NormalizeQuantity(limit)
		}
	}
	netDaysDisplay := netDaysFrom(displayDays)

	worked := generic.NonNegative(att.WorkedDays)
	if worked == 0 {
		if eligible, ok := knownEligibleDays(att, opts); ok {
			worked = math.Max(eligible-(absence+permDays+penalty), 0)
		}
	}

	return DayInfo{
		HoursPerDay:     hpd,
		NetDays:         netDays,
		NetDaysDisplay:  netDaysDisplay,
		WorkedDays:      generic.NormalizeQuantity(worked),
		DisplayDays:     displayDays,
		PermissionDays:  permDays,
		PermissionHours: permHours,
		DeductionDays:   deductionDays,
		DeductionHours:  deductionHours,
		Display:         FormatDaysHours(netDaysDisplay, hpd) + " / " + FormatQuantity(displayDays),
	}
}

// DeductionDayEquivalent is DeductionDays plus DeductionHours expressed in days.
func (d DayInfo) DeductionDayEquivalent() float64 {
	hpd := d.HoursPerDay
	if hpd <= 0 {
		hpd = DefaultHoursPerDay
	}
	return generic.NormalizeQuantity(d.DeductionDays + d.DeductionHours/hpd)
}

func knownEligibleDays(att AttendanceFacts, opts DayInfoOptions) (float64, bool) {
	if opts.EligibleDaysOverride != nil {
		return generic.NonNegative(*opts.EligibleDaysOverride), true
	}
	if e := generic.NonNegative(opts.EligibleDays); e > 0 {
		return e, true
	}
	if e := generic.NonNegative(att.EligibleDays); e > 0 {
		return e, true
	}
	return 0, false
}
