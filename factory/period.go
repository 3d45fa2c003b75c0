package factory

import (
	"fmt"

	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
)

// PeriodID is the canonical "YYYY-MM" identifier of a monthly period.
func PeriodID(year, month int) payroll.PeriodID {
	return payroll.PeriodID(fmt.Sprintf("%04d-%02d", year, month))
}

// NewMonthlyPeriod opens a period covering a calendar month. workingDays 0
// leaves the base day count unconfigured (the literal month length is used).
func NewMonthlyPeriod(year, month, workingDays int) (payroll.PayrollPeriod, error) {
	if month < 1 || month > 12 {
		return payroll.PayrollPeriod{}, &generic.FieldError{Field: "month", Message: "must be between 1 and 12"}
	}
	if year < 2000 || year > 2100 {
		return payroll.PayrollPeriod{}, &generic.FieldError{Field: "year", Message: "must be between 2000 and 2100"}
	}
	if workingDays < 0 || workingDays > 31 {
		return payroll.PayrollPeriod{}, &generic.FieldError{Field: "workingDays", Message: "must be between 0 and 31"}
	}

	window := generic.MonthPeriod(year, month)
	start, end := window.Start, window.End
	return payroll.PayrollPeriod{
		ID:          PeriodID(year, month),
		Month:       month,
		Year:        year,
		StartDate:   &start,
		EndDate:     &end,
		WorkingDays: workingDays,
		Status:      payroll.StatusOpen,
	}, nil
}
