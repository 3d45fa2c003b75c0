/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request types carry
  validator tags and are checked once in decode before any store
  access; response types wrap payroll values with their summaries.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *DTO:      Response types returned to clients
  - *Response: Complex response wrappers

MONEY:
  Amounts travel as decimal strings ("3100.50") in both directions.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Domain types embedded in responses
*/
package api

import (
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeRequest creates or replaces a roster record.
type EmployeeRequest struct {
	ID            string `json:"id" validate:"omitempty,max=64"`
	Name          string `json:"name" validate:"required,max=200"`
	DocumentID    string `json:"documentId" validate:"max=32"`
	Position      string `json:"position" validate:"max=100"`
	BaseSalary    string `json:"baseSalary" validate:"required,numeric"`
	StartDate     string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	Area          string `json:"area" validate:"omitempty,oneof=OPERATIVE ADMINISTRATIVE"`
	BankName      string `json:"bankName" validate:"max=100"`
	BankAccount   string `json:"bankAccount" validate:"max=64"`
	AccountHolder string `json:"accountHolder" validate:"max=200"`
	Phone         string `json:"phone" validate:"max=32"`
	PensionRate   string `json:"pensionRate" validate:"omitempty,numeric"`
	HealthRate    string `json:"healthRate" validate:"omitempty,numeric"`
	SundayPenalty bool   `json:"sundayPenalty"`
	Active        *bool  `json:"active"`
}

// toEmployee converts the request. Validation has already run.
func (r EmployeeRequest) toEmployee(id payroll.EmployeeID) (payroll.Employee, error) {
	start, err := generic.ParseDatePtr(r.StartDate)
	if err != nil {
		return payroll.Employee{}, &generic.FieldError{Field: "startDate", Message: err.Error()}
	}
	salary := generic.MustParseDecimal(r.BaseSalary)
	if salary.IsNegative() {
		return payroll.Employee{}, &generic.FieldError{Field: "baseSalary", Message: "must not be negative"}
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return payroll.Employee{
		ID:            id,
		Name:          r.Name,
		DocumentID:    r.DocumentID,
		Position:      r.Position,
		BaseSalary:    salary,
		StartDate:     start,
		Area:          payroll.ParseArea(r.Area),
		BankName:      r.BankName,
		BankAccount:   r.BankAccount,
		AccountHolder: r.AccountHolder,
		Phone:         r.Phone,
		PensionRate:   generic.ClampZero(generic.MustParseDecimal(r.PensionRate)),
		HealthRate:    generic.ClampZero(generic.MustParseDecimal(r.HealthRate)),
		SundayPenalty: r.SundayPenalty,
		Active:        active,
	}, nil
}

// =============================================================================
// PERIODS & ATTENDANCE
// =============================================================================

// CreatePeriodRequest opens a monthly period.
type CreatePeriodRequest struct {
	Year        int `json:"year" validate:"required,gte=2000,lte=2100"`
	Month       int `json:"month" validate:"required,gte=1,lte=12"`
	WorkingDays int `json:"workingDays" validate:"gte=0,lte=31"`
}

// AttendanceRequest records one employee's facts for a period.
type AttendanceRequest struct {
	WorkedDays         float64  `json:"workedDays" validate:"gte=0,lte=31"`
	AbsenceDays        float64  `json:"absenceDays" validate:"gte=0,lte=31"`
	TardinessMinutes   float64  `json:"tardinessMinutes" validate:"gte=0"`
	PermissionDays     float64  `json:"permissionDays" validate:"gte=0,lte=31"`
	PermissionHours    float64  `json:"permissionHours" validate:"gte=0"`
	HolidayDays        float64  `json:"holidayDays" validate:"gte=0,lte=31"`
	WeekendSundayDays  float64  `json:"weekendSundayDays" validate:"gte=0,lte=31"`
	OvertimeHours      float64  `json:"overtimeHours" validate:"gte=0"`
	AbsencePenaltyDays float64  `json:"absencePenaltyDays" validate:"gte=0,lte=31"`
	EligibleDays       float64  `json:"eligibleDays" validate:"gte=0,lte=31"`
	StartDate          string   `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	AbsenceDates       []string `json:"absenceDates" validate:"omitempty,dive,datetime=2006-01-02"`
}

func (r AttendanceRequest) toFacts() (payroll.AttendanceFacts, error) {
	start, err := generic.ParseDatePtr(r.StartDate)
	if err != nil {
		return payroll.AttendanceFacts{}, &generic.FieldError{Field: "startDate", Message: err.Error()}
	}
	dates := make([]generic.Date, 0, len(r.AbsenceDates))
	for _, s := range r.AbsenceDates {
		d, err := generic.ParseDate(s)
		if err != nil {
			return payroll.AttendanceFacts{}, &generic.FieldError{Field: "absenceDates", Message: err.Error()}
		}
		dates = append(dates, d)
	}
	return payroll.AttendanceFacts{
		WorkedDays:         r.WorkedDays,
		AbsenceDays:        r.AbsenceDays,
		TardinessMinutes:   r.TardinessMinutes,
		PermissionDays:     r.PermissionDays,
		PermissionHours:    r.PermissionHours,
		HolidayDays:        r.HolidayDays,
		WeekendSundayDays:  r.WeekendSundayDays,
		OvertimeHours:      r.OvertimeHours,
		AbsencePenaltyDays: r.AbsencePenaltyDays,
		EligibleDays:       r.EligibleDays,
		StartDate:          start,
		AbsenceDates:       dates,
	}, nil
}

// GenerateResponse reports a period computation.
type GenerateResponse struct {
	Period    payroll.PayrollPeriod `json:"period"`
	Generated int                   `json:"generated"`
}

// =============================================================================
// ENTRIES & ADJUSTMENTS
// =============================================================================

// EntryDTO is an entry together with its composed summary.
type EntryDTO struct {
	Entry   payroll.PayrollEntry `json:"entry"`
	Summary payroll.EntrySummary `json:"summary"`
}

// PeriodEntriesResponse lists a period's entries and per-area totals.
type PeriodEntriesResponse struct {
	Period  payroll.PayrollPeriod   `json:"period"`
	Entries []EntryDTO              `json:"entries"`
	Areas   []payroll.AreaReportRow `json:"areas"`
}

// AdjustmentRequest adds a manual line to an entry.
type AdjustmentRequest struct {
	Type    string `json:"type" validate:"required,oneof=BONUS DEDUCTION ADVANCE"`
	Concept string `json:"concept" validate:"max=200"`
	Amount  string `json:"amount" validate:"required,numeric"`
}

// =============================================================================
// PAYMENT STATUS
// =============================================================================

// PaymentStatusRequest marks an employee's accumulated balance as paid or not.
type PaymentStatusRequest struct {
	Paid *bool `json:"paid" validate:"required"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// NotReadyResponse is returned with 409 when an accumulation cannot be built.
type NotReadyResponse struct {
	ErrorResponse
	Summary payroll.AccumulationSummary `json:"summary"`
}
