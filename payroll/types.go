/*
Package payroll is the proration and accumulation engine of the payroll system.

PURPOSE:
  Turns raw attendance facts, an employee's monthly base salary and start
  date into a prorated net amount for one period, a day/hour breakdown of
  what was paid and withheld, and a multi-period accumulation rolled up per
  employee and per area.

KEY CONCEPTS:
  Employee:        Roster snapshot as of the period being computed
  PayrollPeriod:   One monthly payroll run with a date window and base day count
  AttendanceFacts: Day/hour counts recorded for one employee in one period
  PayrollEntry:    One employee's computed result within one period
  Adjustment:      Manual BONUS / DEDUCTION / ADVANCE line on an entry

DATA FLOW:
  units.go + eligibility.go -> dayinfo.go
  deductions.go + dayinfo.go -> summary.go
  summary.go (many periods) + PaymentStatus -> accumulation.go

  calculator.go produces PayrollEntry values; everything else reads them.

DESIGN PRINCIPLES:
  1. Pure functions over immutable inputs. No I/O, no shared state.
  2. Silent numeric fallback: missing or non-finite numbers count as 0.
  3. One resolver per value. Consumers never re-derive a figure.

SEE ALSO:
  - generic/: dates, periods, quantity normalization, money helpers
  - loader.go: concurrent fetch of period entries before accumulation
*/
package payroll

import (
	"strconv"
	"strings"

	"github.com/obrasur/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PeriodID string
type EntryID string
type AdjustmentID string

// =============================================================================
// AREA - Organizational bucket used by reports and accumulation
// =============================================================================

type Area string

const (
	AreaOperative      Area = "OPERATIVE"
	AreaAdministrative Area = "ADMINISTRATIVE"

	// AreaAll is the synthetic bucket equal to the unfiltered sum.
	AreaAll Area = "ALL"
)

// Areas lists the real areas in report order.
var Areas = []Area{AreaOperative, AreaAdministrative}

// ParseArea maps free text onto a known area. Unknown values are OPERATIVE.
func ParseArea(s string) Area {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(AreaAdministrative), "ADMIN", "ADMINISTRATIVO":
		return AreaAdministrative
	default:
		return AreaOperative
	}
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the roster record the engine reads. Bank and contact fields are
// opaque; they are only carried through to accumulation rows.
type Employee struct {
	ID            EmployeeID      `json:"id"`
	Name          string          `json:"name"`
	DocumentID    string          `json:"documentId"`
	Position      string          `json:"position"`
	BaseSalary    decimal.Decimal `json:"baseSalary"`
	StartDate     *generic.Date   `json:"startDate,omitempty"`
	Area          Area            `json:"area"`
	BankName      string          `json:"bankName"`
	BankAccount   string          `json:"bankAccount"`
	AccountHolder string          `json:"accountHolder"`
	Phone         string          `json:"phone"`
	PensionRate   decimal.Decimal `json:"pensionRate"`
	HealthRate    decimal.Decimal `json:"healthRate"`
	SundayPenalty bool            `json:"sundayPenalty"`
	Active        bool            `json:"active"`
}

// BankFields returns the opaque disbursement fields.
func (e Employee) BankFields() BankFields {
	return BankFields{
		BankName:      e.BankName,
		BankAccount:   e.BankAccount,
		AccountHolder: e.AccountHolder,
		Phone:         e.Phone,
	}
}

// BankFields are the contact/disbursement fields resolved across periods.
type BankFields struct {
	BankName      string `json:"bankName"`
	BankAccount   string `json:"bankAccount"`
	AccountHolder string `json:"accountHolder"`
	Phone         string `json:"phone"`
}

// FillFrom copies each field of other into b where b is still empty.
func (b *BankFields) FillFrom(other BankFields) {
	if b.BankName == "" {
		b.BankName = strings.TrimSpace(other.BankName)
	}
	if b.BankAccount == "" {
		b.BankAccount = strings.TrimSpace(other.BankAccount)
	}
	if b.AccountHolder == "" {
		b.AccountHolder = strings.TrimSpace(other.AccountHolder)
	}
	if b.Phone == "" {
		b.Phone = strings.TrimSpace(other.Phone)
	}
}

// Complete reports whether every field is resolved.
func (b BankFields) Complete() bool {
	return b.BankName != "" && b.BankAccount != "" && b.AccountHolder != "" && b.Phone != ""
}

// =============================================================================
// PAYROLL PERIOD
// =============================================================================

type PeriodStatus string

const (
	StatusOpen      PeriodStatus = "OPEN"
	StatusProcessed PeriodStatus = "PROCESSED"
	StatusClosed    PeriodStatus = "CLOSED"
)

// PayrollPeriod is one monthly payroll run.
//
// WorkingDays is the configured base day count (0 = not configured).
type PayrollPeriod struct {
	ID          PeriodID      `json:"id"`
	Month       int           `json:"month"`
	Year        int           `json:"year"`
	StartDate   *generic.Date `json:"startDate,omitempty"`
	EndDate     *generic.Date `json:"endDate,omitempty"`
	WorkingDays int           `json:"workingDays"`
	Status      PeriodStatus  `json:"status"`
}

// Window returns the inclusive date window, false when either bound is missing
// or the window is inverted.
func (p PayrollPeriod) Window() (generic.Period, bool) {
	if p.StartDate == nil || p.EndDate == nil {
		return generic.Period{}, false
	}
	w := generic.Period{Start: *p.StartDate, End: *p.EndDate}
	return w, w.Valid()
}

// Label is the "Enero 2025" caption used in reports.
func (p PayrollPeriod) Label() string {
	return strings.TrimSpace(monthNames[clampMonth(p.Month)] + " " + strconv.Itoa(p.Year))
}

// Before orders periods chronologically: year, month, then start date, then ID.
func (p PayrollPeriod) Before(other PayrollPeriod) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	if p.Month != other.Month {
		return p.Month < other.Month
	}
	ps, os := generic.FormatPtr(p.StartDate), generic.FormatPtr(other.StartDate)
	if ps != os {
		return ps < os
	}
	return p.ID < other.ID
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceFacts are the day/hour counts recorded for one employee in one
// period. Zero means "not supplied".
type AttendanceFacts struct {
	WorkedDays         float64        `json:"workedDays"`
	AbsenceDays        float64        `json:"absenceDays"`
	TardinessMinutes   float64        `json:"tardinessMinutes"`
	PermissionDays     float64        `json:"permissionDays"`
	PermissionHours    float64        `json:"permissionHours"`
	HolidayDays        float64        `json:"holidayDays"`
	WeekendSundayDays  float64        `json:"weekendSundayDays"`
	OvertimeHours      float64        `json:"overtimeHours"`
	AbsencePenaltyDays float64        `json:"absencePenaltyDays"`
	EligibleDays       float64        `json:"eligibleDays"`
	StartDate          *generic.Date  `json:"startDate,omitempty"`
	AbsenceDates       []generic.Date `json:"absenceDates,omitempty"`
}

// =============================================================================
// BREAKDOWN & ENTRY
// =============================================================================

// Breakdown is the per-entry computation record. ManualAdvances is nil when the
// producer did not record it; see ResolveManualAdvances.
type Breakdown struct {
	MonthlyBase         decimal.Decimal  `json:"monthlyBase"`
	DailyRate           decimal.Decimal  `json:"dailyRate"`
	HourlyRate          decimal.Decimal  `json:"hourlyRate"`
	AbsenceDeduction    decimal.Decimal  `json:"absenceDeduction"`
	PermissionDeduction decimal.Decimal  `json:"permissionDeduction"`
	TardinessDeduction  decimal.Decimal  `json:"tardinessDeduction"`
	ManualAdvances      *decimal.Decimal `json:"manualAdvances,omitempty"`
	ManualDeductions    decimal.Decimal  `json:"manualDeductions"`
	OvertimeBonus       decimal.Decimal  `json:"overtimeBonus"`
	WeekendSundayBonus  decimal.Decimal  `json:"weekendSundayBonus"`
	ManualBonuses       decimal.Decimal  `json:"manualBonuses"`
	PeriodDays          float64          `json:"periodDays"`
	EligibleDays        float64          `json:"eligibleDays"`
}

type AdjustmentType string

const (
	AdjustmentBonus     AdjustmentType = "BONUS"
	AdjustmentDeduction AdjustmentType = "DEDUCTION"
	AdjustmentAdvance   AdjustmentType = "ADVANCE"
)

// Valid reports whether t is one of the known adjustment types.
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentBonus, AdjustmentDeduction, AdjustmentAdvance:
		return true
	}
	return false
}

// Adjustment is a manual line on an entry. Amount is positive; Type gives the sign.
type Adjustment struct {
	ID      AdjustmentID    `json:"id"`
	EntryID EntryID         `json:"entryId"`
	Type    AdjustmentType  `json:"type"`
	Concept string          `json:"concept"`
	Amount  decimal.Decimal `json:"amount"`
}

// PayrollEntry is one employee's computed result within one period. The
// employee snapshot fields keep reports stable after roster edits.
type PayrollEntry struct {
	ID         EntryID    `json:"id"`
	PeriodID   PeriodID   `json:"periodId"`
	EmployeeID EmployeeID `json:"employeeId"`

	EmployeeName string `json:"employeeName"`
	Area         Area   `json:"area"`
	BankFields

	BaseSalary    decimal.Decimal `json:"baseSalary"`
	NetPay        decimal.Decimal `json:"netPay"`
	HolidayBonus  decimal.Decimal `json:"holidayBonus"`
	BonusesTotal  decimal.Decimal `json:"bonusesTotal"`
	PensionAmount decimal.Decimal `json:"pensionAmount"`
	HealthAmount  decimal.Decimal `json:"healthAmount"`

	Breakdown   Breakdown       `json:"breakdown"`
	Attendance  AttendanceFacts `json:"attendance"`
	Adjustments []Adjustment    `json:"adjustments"`
}

// PaymentStatus maps employee id to "accumulated balance disbursed".
// It is period-independent.
type PaymentStatus map[EmployeeID]bool

// =============================================================================
// HELPERS
// =============================================================================

var monthNames = [...]string{
	"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func clampMonth(m int) int {
	if m < 1 || m > 12 {
		return 0
	}
	return m
}
