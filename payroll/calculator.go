/*
calculator.go - Builds a PayrollEntry from attendance and adjustments

PURPOSE:
  Produces the breakdown and net pay of one employee in one period. Every
  other component in this package only reads what this file writes.

FORMULAS:
  baseDays    = period.WorkingDays, else Rates.BaseDays
  dailyRate   = monthlyBase / baseDays
  hourlyRate  = dailyRate / Rates.HoursPerDay
  Both rates are stored at generic.RatePlaces so that readers deriving the
  hours-per-day ratio from the breakdown get Rates.HoursPerDay back.

  remuneration = monthlyBase                          (fully eligible)
               = min(dailyRate * eligibleDays, base)  (started mid-period)

  absence     = dailyRate  * (absenceDays + penaltyDays)
  permission  = dailyRate  * permissionDays + hourlyRate * permissionHours
  tardiness   = hourlyRate * tardinessMinutes / 60
  overtime    = hourlyRate * overtimeHours * OvertimeFactor
  holiday     = dailyRate  * holidayDays   * HolidayFactor
  weekend     = dailyRate  * sundayDays    * SundayFactor

  manualDeductions = DEDUCTION adjustments + ADVANCE adjustments
  netPay = remuneration + overtime + holiday + weekend + manualBonuses
         - absence - permission - tardiness - manualDeductions   (>= 0)

  The start-date gap reduces remuneration only. It is never also charged
  as an absence.

SEE ALSO:
  - penalty.go: penalty days for employees with the Sunday rule
  - summary.go: reads the entry back
*/
package payroll

import (
	"github.com/obrasur/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RATES - Tunable calculation settings
// =============================================================================

// Rates are the company-wide calculation settings.
type Rates struct {
	BaseDays       float64         `json:"baseDays"`
	HoursPerDay    float64         `json:"hoursPerDay"`
	OvertimeFactor decimal.Decimal `json:"overtimeFactor"`
	HolidayFactor  decimal.Decimal `json:"holidayFactor"`
	SundayFactor   decimal.Decimal `json:"sundayFactor"`
	PenaltyPolicy  string          `json:"penaltyPolicy"`
	MaxPeriods     int             `json:"maxPeriods"`
}

// DefaultMaxPeriods bounds an accumulation selection.
const DefaultMaxPeriods = 6

// DefaultRates returns the standard construction settings.
func DefaultRates() Rates {
	return Rates{
		BaseDays:       DefaultBaseDays,
		HoursPerDay:    DefaultHoursPerDay,
		OvertimeFactor: decimal.RequireFromString("1.25"),
		HolidayFactor:  decimal.NewFromInt(1),
		SundayFactor:   decimal.NewFromInt(1),
		PenaltyPolicy:  "sunday",
		MaxPeriods:     DefaultMaxPeriods,
	}
}

// WithDefaults fills every unset or out-of-range field from DefaultRates.
func (r Rates) WithDefaults() Rates {
	d := DefaultRates()
	if r.BaseDays = generic.Finite(r.BaseDays); r.BaseDays <= 0 {
		r.BaseDays = d.BaseDays
	}
	if r.HoursPerDay = generic.Finite(r.HoursPerDay); r.HoursPerDay < MinHoursPerDay || r.HoursPerDay > MaxHoursPerDay {
		r.HoursPerDay = d.HoursPerDay
	}
	if !r.OvertimeFactor.IsPositive() {
		r.OvertimeFactor = d.OvertimeFactor
	}
	if !r.HolidayFactor.IsPositive() {
		r.HolidayFactor = d.HolidayFactor
	}
	if !r.SundayFactor.IsPositive() {
		r.SundayFactor = d.SundayFactor
	}
	if r.PenaltyPolicy == "" {
		r.PenaltyPolicy = d.PenaltyPolicy
	}
	if r.MaxPeriods <= 0 {
		r.MaxPeriods = d.MaxPeriods
	}
	return r
}

// =============================================================================
// CALCULATOR
// =============================================================================

// CalcInput carries everything needed for one entry. Penalty nil means the
// policy named in Rates.
type CalcInput struct {
	EntryID     EntryID
	Employee    Employee
	Period      PayrollPeriod
	Attendance  AttendanceFacts
	Adjustments []Adjustment
	Rates       Rates
	Penalty     PenaltyPolicy
}

// BaseDaysFor is the pay base of a period.
func BaseDaysFor(p PayrollPeriod, r Rates) float64 {
	if p.WorkingDays > 0 {
		return float64(p.WorkingDays)
	}
	return r.WithDefaults().BaseDays
}

// ProrateBase returns the remuneration for the eligible part of a period.
func ProrateBase(monthly, daily decimal.Decimal, elig Eligibility) decimal.Decimal {
	monthly = generic.ClampZero(monthly)
	if elig.Full() {
		return monthly
	}
	prorated := generic.ClampZero(daily).Mul(generic.Money(elig.EligibleDays))
	return decimal.Min(prorated, monthly)
}

// Calculate computes one payroll entry. It is deterministic: the same input
// always yields the same entry.
func Calculate(in CalcInput) PayrollEntry {
	rates := in.Rates.WithDefaults()
	emp := in.Employee
	att := in.Attendance

	baseDays := BaseDaysFor(in.Period, rates)
	monthly := generic.ClampZero(emp.BaseSalary)
	daily := monthly.Div(generic.Money(baseDays))
	hourly := daily.Div(generic.Money(rates.HoursPerDay))

	att.StartDate = EffectiveStartDate(att, emp)
	if emp.SundayPenalty && generic.NonNegative(att.AbsencePenaltyDays) == 0 {
		if window, ok := in.Period.Window(); ok {
			policy := in.Penalty
			if policy == nil {
				policy = PolicyByName(rates.PenaltyPolicy)
			}
			att.AbsencePenaltyDays = policy.PenaltyDays(att.AbsenceDates, window)
		}
	}

	elig := ResolveEligibility(in.Period, att.StartDate)

	b := Breakdown{
		MonthlyBase:  generic.RoundMoney(monthly),
		DailyRate:    generic.RoundRate(daily),
		HourlyRate:   generic.RoundRate(hourly),
		PeriodDays:   elig.PeriodDayCount,
		EligibleDays: elig.EligibleDays,
	}
	permDays, permHours := NormalizePermission(att.PermissionDays, att.PermissionHours, rates.HoursPerDay)

	qty := func(x float64) decimal.Decimal { return generic.Money(generic.NonNegative(x)) }

	remuneration := generic.RoundMoney(ProrateBase(monthly, daily, elig))
	b.AbsenceDeduction = generic.RoundMoney(daily.Mul(qty(att.AbsenceDays + att.AbsencePenaltyDays)))
	b.PermissionDeduction = generic.RoundMoney(daily.Mul(qty(permDays)).Add(hourly.Mul(qty(permHours))))
	b.TardinessDeduction = generic.RoundMoney(hourly.Mul(qty(att.TardinessMinutes)).Div(decimal.NewFromInt(60)))
	b.OvertimeBonus = generic.RoundMoney(hourly.Mul(qty(att.OvertimeHours)).Mul(rates.OvertimeFactor))
	holiday := generic.RoundMoney(daily.Mul(qty(att.HolidayDays)).Mul(rates.HolidayFactor))
	b.WeekendSundayBonus = generic.RoundMoney(daily.Mul(qty(att.WeekendSundayDays)).Mul(rates.SundayFactor))

	advances := generic.RoundMoney(SumAdjustments(in.Adjustments, AdjustmentAdvance))
	b.ManualBonuses = generic.RoundMoney(SumAdjustments(in.Adjustments, AdjustmentBonus))
	b.ManualDeductions = generic.RoundMoney(SumAdjustments(in.Adjustments, AdjustmentDeduction)).Add(advances)
	b.ManualAdvances = generic.OptionalDecimal(advances)

	bonuses := generic.Sum(b.OvertimeBonus, holiday, b.WeekendSundayBonus, b.ManualBonuses)
	withheld := generic.Sum(b.AbsenceDeduction, b.PermissionDeduction, b.TardinessDeduction, b.ManualDeductions)
	net := generic.ClampZero(remuneration.Add(bonuses).Sub(withheld))

	adjustments := make([]Adjustment, len(in.Adjustments))
	for i, a := range in.Adjustments {
		a.EntryID = in.EntryID
		adjustments[i] = a
	}

	return PayrollEntry{
		ID:            in.EntryID,
		PeriodID:      in.Period.ID,
		EmployeeID:    emp.ID,
		EmployeeName:  emp.Name,
		Area:          ParseArea(string(emp.Area)),
		BankFields:    emp.BankFields(),
		BaseSalary:    remuneration,
		NetPay:        net,
		HolidayBonus:  holiday,
		BonusesTotal:  bonuses,
		PensionAmount: generic.RoundMoney(remuneration.Mul(generic.ClampZero(emp.PensionRate))),
		HealthAmount:  generic.RoundMoney(remuneration.Mul(generic.ClampZero(emp.HealthRate))),
		Breakdown:     b,
		Attendance:    att,
		Adjustments:   adjustments,
	}
}

// Recalculate rebuilds an entry in place of a previous one, keeping its ID.
func Recalculate(prev PayrollEntry, in CalcInput) PayrollEntry {
	in.EntryID = prev.ID
	return Calculate(in)
}
