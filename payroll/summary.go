/*
summary.go - One summary per payroll entry

PURPOSE:
  The single read path over a PayrollEntry. Payslips, per-area reports and
  the accumulation all consume EntrySummary; none of them reads breakdown
  fields directly, so deductions cannot be computed two different ways.

COMPOSITION (no new arithmetic):
  Eligibility       <- eligibility.go
  DayInfo           <- dayinfo.go
  Deductions        <- deductions.go
  ProratedBase      <- entry.BaseSalary, else ProrateBase()
  Paid              =  NetPay + ManualAdvances

SEE ALSO:
  - accumulation.go: sums summaries across periods
  - report/: renders summaries
*/
package payroll

import (
	"sort"

	"github.com/obrasur/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// SummaryOptions tune Summarize. BaseDays is the pay base for periods without
// WorkingDays (DefaultBaseDays when 0), matching BaseDaysFor.
type SummaryOptions struct {
	BaseDays float64
}

// EntrySummary is the composed view of one entry.
type EntrySummary struct {
	EntryID      EntryID    `json:"entryId"`
	PeriodID     PeriodID   `json:"periodId"`
	EmployeeID   EmployeeID `json:"employeeId"`
	EmployeeName string     `json:"employeeName"`
	Area         Area       `json:"area"`

	Eligibility Eligibility        `json:"eligibility"`
	DayInfo     DayInfo            `json:"dayInfo"`
	Deductions  DeductionBreakdown `json:"deductions"`

	MonthlyBase   decimal.Decimal `json:"monthlyBase"`
	ProratedBase  decimal.Decimal `json:"proratedBase"`
	OvertimeBonus decimal.Decimal `json:"overtimeBonus"`
	HolidayBonus  decimal.Decimal `json:"holidayBonus"`
	WeekendBonus  decimal.Decimal `json:"weekendBonus"`
	WeekendDays   float64         `json:"weekendDays"`
	ManualBonuses decimal.Decimal `json:"manualBonuses"`

	ManualAdvances   decimal.Decimal `json:"manualAdvances"`
	ActualDeductions decimal.Decimal `json:"actualDeductions"`
	Pension          decimal.Decimal `json:"pension"`
	Health           decimal.Decimal `json:"health"`

	NetPay decimal.Decimal `json:"netPay"`
	Paid   decimal.Decimal `json:"paid"`
}

// Summarize composes eligibility, day info and deductions for an entry. The
// employee may be the zero value when the roster no longer has it; the entry
// snapshot is used then.
func Summarize(entry PayrollEntry, emp Employee, period PayrollPeriod, opts SummaryOptions) EntrySummary {
	elig := EntryEligibility(entry, emp, period)

	baseDays := generic.NonNegative(opts.BaseDays)
	if period.WorkingDays > 0 {
		baseDays = float64(period.WorkingDays)
	}

	// The override only applies when something limits eligibility; a full
	// period measured against a longer base keeps the base-day result.
	var override *float64
	if !elig.Full() {
		e := elig.EligibleDays
		override = &e
	}
	if supplied := generic.NonNegative(entry.Attendance.EligibleDays); supplied > 0 && (override == nil || supplied < *override) {
		override = &supplied
	}

	info := ComputeDayInfo(entry.Attendance, entry.Breakdown, DayInfoOptions{
		BaseDays:             baseDays,
		DisplayDays:          elig.PeriodDayCount,
		DisplayDaysFallback:  entry.Breakdown.PeriodDays,
		InitialGapDays:       elig.GapDays,
		EligibleDaysOverride: override,
		EligibleDays:         elig.EligibleDays,
	})
	ded := ResolveDeductions(entry)

	prorated := entry.BaseSalary
	if !prorated.IsPositive() {
		prorated = ProrateBase(entry.Breakdown.MonthlyBase, entry.Breakdown.DailyRate, elig)
	}

	net := generic.ClampZero(entry.NetPay)
	return EntrySummary{
		EntryID:      entry.ID,
		PeriodID:     entry.PeriodID,
		EmployeeID:   entry.EmployeeID,
		EmployeeName: firstNonEmpty(emp.Name, entry.EmployeeName),
		Area:         ResolveArea(entry, emp),

		Eligibility: elig,
		DayInfo:     info,
		Deductions:  ded,

		MonthlyBase:   generic.ClampZero(entry.Breakdown.MonthlyBase),
		ProratedBase:  generic.ClampZero(prorated),
		OvertimeBonus: generic.ClampZero(entry.Breakdown.OvertimeBonus),
		HolidayBonus:  generic.ClampZero(entry.HolidayBonus),
		WeekendBonus:  generic.ClampZero(entry.Breakdown.WeekendSundayBonus),
		WeekendDays:   generic.NormalizeQuantity(generic.NonNegative(entry.Attendance.WeekendSundayDays)),
		ManualBonuses: generic.ClampZero(entry.Breakdown.ManualBonuses),

		ManualAdvances:   ded.Advances,
		ActualDeductions: ded.Total(),
		Pension:          generic.ClampZero(entry.PensionAmount),
		Health:           generic.ClampZero(entry.HealthAmount),

		NetPay: net,
		Paid:   net.Add(ded.Advances),
	}
}

// ResolveArea prefers the roster's area, then the entry snapshot, then OPERATIVE.
func ResolveArea(entry PayrollEntry, emp Employee) Area {
	if emp.Area != "" {
		return ParseArea(string(emp.Area))
	}
	return ParseArea(string(entry.Area))
}

// =============================================================================
// AREA REPORT
// =============================================================================

// AreaReportRow is one line of the per-area report.
type AreaReportRow struct {
	Area             Area            `json:"area"`
	Employees        int             `json:"employees"`
	ProratedBase     decimal.Decimal `json:"proratedBase"`
	Overtime         decimal.Decimal `json:"overtime"`
	Holiday          decimal.Decimal `json:"holiday"`
	Weekend          decimal.Decimal `json:"weekend"`
	ManualBonuses    decimal.Decimal `json:"manualBonuses"`
	Absence          decimal.Decimal `json:"absence"`
	Permission       decimal.Decimal `json:"permission"`
	Tardiness        decimal.Decimal `json:"tardiness"`
	Manual           decimal.Decimal `json:"manual"`
	Advances         decimal.Decimal `json:"advances"`
	ActualDeductions decimal.Decimal `json:"actualDeductions"`
	NetPay           decimal.Decimal `json:"netPay"`
}

// SummarizeAreas groups summaries into one row per area plus a trailing ALL row.
// Areas without employees are omitted.
func SummarizeAreas(summaries []EntrySummary) []AreaReportRow {
	byArea := make(map[Area]*AreaReportRow)
	all := &AreaReportRow{Area: AreaAll}
	seen := make(map[Area]map[EmployeeID]struct{})

	for _, s := range summaries {
		row, ok := byArea[s.Area]
		if !ok {
			row = &AreaReportRow{Area: s.Area}
			byArea[s.Area] = row
			seen[s.Area] = make(map[EmployeeID]struct{})
		}
		if _, dup := seen[s.Area][s.EmployeeID]; !dup {
			seen[s.Area][s.EmployeeID] = struct{}{}
			row.Employees++
			all.Employees++
		}
		row.add(s)
		all.add(s)
	}

	keys := make([]Area, 0, len(byArea))
	for a := range byArea {
		keys = append(keys, a)
	}
	sort.Slice(keys, func(i, j int) bool { return areaOrder(keys[i]) < areaOrder(keys[j]) })

	rows := make([]AreaReportRow, 0, len(keys)+1)
	for _, a := range keys {
		rows = append(rows, *byArea[a])
	}
	return append(rows, *all)
}

func (r *AreaReportRow) add(s EntrySummary) {
	r.ProratedBase = r.ProratedBase.Add(s.ProratedBase)
	r.Overtime = r.Overtime.Add(s.OvertimeBonus)
	r.Holiday = r.Holiday.Add(s.HolidayBonus)
	r.Weekend = r.Weekend.Add(s.WeekendBonus)
	r.ManualBonuses = r.ManualBonuses.Add(s.ManualBonuses)
	r.Absence = r.Absence.Add(s.Deductions.Absence)
	r.Permission = r.Permission.Add(s.Deductions.Permission)
	r.Tardiness = r.Tardiness.Add(s.Deductions.Tardiness)
	r.Manual = r.Manual.Add(s.Deductions.Manual)
	r.Advances = r.Advances.Add(s.ManualAdvances)
	r.ActualDeductions = r.ActualDeductions.Add(s.ActualDeductions)
	r.NetPay = r.NetPay.Add(s.NetPay)
}

func areaOrder(a Area) int {
	for i, known := range Areas {
		if a == known {
			return i
		}
	}
	return len(Areas)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
