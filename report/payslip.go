package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/shopspring/decimal"
)

// Payslip is everything printed on one payslip.
type Payslip struct {
	Company  string
	Period   payroll.PayrollPeriod
	Employee payroll.Employee
	Summary  payroll.EntrySummary
}

type payslipLine struct {
	label  string
	amount decimal.Decimal
}

// PayslipPDF renders a single-page A4 payslip.
func PayslipPDF(p Payslip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Boleta de pago "+p.Period.Label()), false)
	pdf.AddPage()

	s := p.Summary
	name := s.EmployeeName
	if name == "" {
		name = p.Employee.Name
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("BOLETA DE PAGO"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if p.Company != "" {
		pdf.CellFormat(0, 6, tr(p.Company), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 6, tr("Periodo: "+p.Period.Label()), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	field("Trabajador:", name)
	field("Documento:", p.Employee.DocumentID)
	field("Cargo:", p.Employee.Position)
	field("Área:", areaLabel(s.Area))
	field("Días laborados:", s.DayInfo.Display)
	if !s.Eligibility.Full() {
		field("Días elegibles:", payroll.FormatQuantity(s.Eligibility.EligibleDays))
	}
	pdf.Ln(4)

	section := func(title string, lines []payslipLine, total payslipLine) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 7, tr(title), "1", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, l := range lines {
			if l.amount.IsZero() {
				continue
			}
			pdf.CellFormat(140, 6, tr(l.label), "LR", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, amount(l.amount), "R", 1, "R", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(140, 7, tr(total.label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, amount(total.amount), "1", 1, "R", false, 0, "")
		pdf.Ln(3)
	}

	earnings := []payslipLine{
		{"Remuneración básica", s.ProratedBase},
		{"Horas extra", s.OvertimeBonus},
		{"Feriados", s.HolidayBonus},
		{fmt.Sprintf("Domingos trabajados (%s)", payroll.FormatQuantity(s.WeekendDays)), s.WeekendBonus},
		{"Bonificaciones", s.ManualBonuses},
	}
	section("INGRESOS", earnings, payslipLine{"Total ingresos", sumLines(earnings)})

	deductions := []payslipLine{
		{"Faltas", s.Deductions.Absence},
		{"Permisos", s.Deductions.Permission},
		{"Tardanzas", s.Deductions.Tardiness},
		{"Descuentos", s.Deductions.Manual},
		{"Adelantos", s.Deductions.Advances},
	}
	section("DESCUENTOS", deductions, payslipLine{"Total descuentos", s.Deductions.Total()})

	contributions := []payslipLine{
		{"Aporte pensión", s.Pension},
		{"Aporte salud", s.Health},
	}
	section("APORTES (informativo)", contributions, payslipLine{"Total aportes", s.Pension.Add(s.Health)})

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(140, 9, tr("NETO A PAGAR"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, amount(s.NetPay), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render payslip: %w", err)
	}
	return buf.Bytes(), nil
}

func sumLines(lines []payslipLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.amount)
	}
	return total
}

func areaLabel(a payroll.Area) string {
	switch a {
	case payroll.AreaAdministrative:
		return "Administrativa"
	case payroll.AreaAll:
		return "Todas"
	default:
		return "Operativa"
	}
}
