package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/obrasur/payroll-engine/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func period(month int) payroll.PayrollPeriod {
	start := generic.NewDate(2025, time.Month(month), 1)
	end := generic.EndOfMonth(2025, time.Month(month))
	return payroll.PayrollPeriod{
		ID:          payroll.PeriodID(start.Time.Format("2006-01")),
		Month:       month,
		Year:        2025,
		StartDate:   &start,
		EndDate:     &end,
		WorkingDays: 30,
		Status:      payroll.StatusProcessed,
	}
}

func employee(id, name string, area payroll.Area) payroll.Employee {
	return payroll.Employee{
		ID:          payroll.EmployeeID(id),
		Name:        name,
		DocumentID:  "DNI-" + id,
		Position:    "Operario",
		BaseSalary:  generic.MustParseDecimal("3000"),
		Area:        area,
		BankName:    "Banco Andino",
		BankAccount: "001-" + id,
		Active:      true,
	}
}

func entryFor(emp payroll.Employee, p payroll.PayrollPeriod, att payroll.AttendanceFacts, adjs ...payroll.Adjustment) payroll.PayrollEntry {
	return payroll.Calculate(payroll.CalcInput{
		EntryID:     payroll.EntryID(string(p.ID) + "-" + string(emp.ID)),
		Employee:    emp,
		Period:      p,
		Attendance:  att,
		Adjustments: adjs,
	})
}

func TestAreaCSV(t *testing.T) {
	// GIVEN: One operative and one administrative entry
	// WHEN: Rendering the per-area report
	// THEN: One line per area plus ALL, amounts fixed to two places

	p := period(3)
	op := employee("e1", "Rosa Quispe", payroll.AreaOperative)
	adm := employee("e2", "Luis Mamani", payroll.AreaAdministrative)

	summaries := []payroll.EntrySummary{
		payroll.Summarize(entryFor(op, p, payroll.AttendanceFacts{AbsenceDays: 1}), op, p, payroll.SummaryOptions{}),
		payroll.Summarize(entryFor(adm, p, payroll.AttendanceFacts{}), adm, p, payroll.SummaryOptions{}),
	}
	data, err := report.AreaCSV(payroll.SummarizeAreas(summaries))
	require.NoError(t, err)

	var rows []*report.AreaCSVRow
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 3)

	assert.Equal(t, "OPERATIVE", rows[0].Area)
	assert.Equal(t, "100.00", rows[0].Absence)
	assert.Equal(t, "2900.00", rows[0].NetPay)
	assert.Equal(t, "ADMINISTRATIVE", rows[1].Area)
	assert.Equal(t, "ALL", rows[2].Area)
	assert.Equal(t, 2, rows[2].Employees)
	assert.Equal(t, "5900.00", rows[2].NetPay)
}

func TestPayslipPDF(t *testing.T) {
	p := period(3)
	emp := employee("e1", "Rosa Quispe Ñahui", payroll.AreaOperative)
	emp.PensionRate = generic.MustParseDecimal("0.10")
	entry := entryFor(emp, p, payroll.AttendanceFacts{OvertimeHours: 4, TardinessMinutes: 30},
		payroll.Adjustment{Type: payroll.AdjustmentAdvance, Concept: "Adelanto", Amount: generic.MustParseDecimal("200")})

	data, err := report.PayslipPDF(report.Payslip{
		Company:  "Obras del Sur S.A.C.",
		Period:   p,
		Employee: emp,
		Summary:  payroll.Summarize(entry, emp, p, payroll.SummaryOptions{}),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Greater(t, len(data), 500)
}

func TestAccumulationWorkbook(t *testing.T) {
	// GIVEN: Two processed months for two employees, one already paid
	// WHEN: Rendering the accumulation workbook
	// THEN: Three sheets with one row per employee and per-period net columns

	jan, feb := period(1), period(2)
	op := employee("e1", "Rosa Quispe", payroll.AreaOperative)
	adm := employee("e2", "Luis Mamani", payroll.AreaAdministrative)

	summary, err := payroll.Accumulate(payroll.AccumulationInput{
		Periods: []payroll.PayrollPeriod{feb, jan},
		Entries: map[payroll.PeriodID][]payroll.PayrollEntry{
			jan.ID: {entryFor(op, jan, payroll.AttendanceFacts{}), entryFor(adm, jan, payroll.AttendanceFacts{})},
			feb.ID: {entryFor(op, feb, payroll.AttendanceFacts{HolidayDays: 1}), entryFor(adm, feb, payroll.AttendanceFacts{})},
		},
		Roster: []payroll.Employee{op, adm},
		Status: payroll.PaymentStatus{"e2": true},
	})
	require.NoError(t, err)

	data, err := report.AccumulationWorkbook(summary)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{report.SheetAccumulation, report.SheetAreas, report.SheetExtras}, f.GetSheetList())

	rows, err := f.GetRows(report.SheetAccumulation)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Neto Enero 2025", rows[0][7])
	assert.Equal(t, "Neto Febrero 2025", rows[0][8])
	assert.Equal(t, "Rosa Quispe", rows[1][0], "operative area first")
	assert.Equal(t, "Pendiente", rows[1][len(rows[1])-1])
	assert.Equal(t, "Pagado", rows[2][len(rows[2])-1])

	raw, err := f.GetCellValue(report.SheetAccumulation, "J2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "6100", raw, "3000 + 3000 + one holiday")

	areaRows, err := f.GetRows(report.SheetAreas)
	require.NoError(t, err)
	require.Len(t, areaRows, 4)
	assert.Equal(t, "Todas", areaRows[3][0])

	extraRows, err := f.GetRows(report.SheetExtras)
	require.NoError(t, err)
	assert.Equal(t, "Total", extraRows[len(extraRows)-1][0])
}
