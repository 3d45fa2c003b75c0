package report

import (
	"fmt"

	"github.com/obrasur/payroll-engine/payroll"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetAccumulation = "Acumulado"
	SheetAreas        = "Áreas"
	SheetExtras       = "Extras"
)

// AccumulationWorkbook renders an accumulation as an XLSX workbook with one
// sheet per bucket: employee rows, area totals and extras.
func AccumulationWorkbook(s payroll.AccumulationSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAccumulation); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetAreas, SheetExtras} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, header: headerStyle, money: moneyStyle}
	w.accumulation(s)
	w.areas(s)
	w.extras(s)
	if w.err != nil {
		return nil, w.err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so the layout code stays linear.
type sheetWriter struct {
	f      *excelize.File
	header int
	money  int
	err    error
}

func (w *sheetWriter) set(sheet string, col, row int, value any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if d, ok := value.(decimal.Decimal); ok {
		value = d.Round(2).InexactFloat64()
		if w.err = w.f.SetCellStyle(sheet, cell, cell, w.money); w.err != nil {
			return
		}
	}
	w.err = w.f.SetCellValue(sheet, cell, value)
}

func (w *sheetWriter) headerRow(sheet string, row int, titles []string) {
	for i, t := range titles {
		w.set(sheet, i+1, row, t)
	}
	if w.err != nil || len(titles) == 0 {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	w.err = w.f.SetCellStyle(sheet, first, last, w.header)
}

func (w *sheetWriter) accumulation(s payroll.AccumulationSummary) {
	titles := []string{"Trabajador", "Documento", "Área", "Banco", "Cuenta", "Titular", "Teléfono"}
	for _, p := range s.Periods {
		titles = append(titles, "Neto "+p.Label())
	}
	titles = append(titles, "Total neto", "Total adelantos", "Total percibido", "Total descuentos", "Estado")
	w.headerRow(SheetAccumulation, 1, titles)

	for i, r := range s.Rows {
		row := i + 2
		values := []any{r.Name, r.DocumentID, areaLabel(r.Area), r.BankName, r.BankAccount, r.AccountHolder, r.Phone}
		for _, net := range r.Net {
			values = append(values, net)
		}
		values = append(values, r.TotalNet, r.TotalAdvances, r.TotalPaid, r.TotalDeductions, paymentLabel(r.PaymentConfirmed))
		for col, v := range values {
			w.set(SheetAccumulation, col+1, row, v)
		}
	}
}

func (w *sheetWriter) areas(s payroll.AccumulationSummary) {
	w.headerRow(SheetAreas, 1, []string{
		"Área", "Trabajadores", "Total neto", "Total percibido", "Total descuentos",
		"Neto pagado", "Neto pendiente", "Pagados", "Pendientes",
	})

	row := 2
	for _, area := range append(append([]payroll.Area{}, payroll.Areas...), payroll.AreaAll) {
		t, ok := s.Areas[area]
		if !ok {
			continue
		}
		values := []any{
			areaLabel(area), t.Employees, t.TotalNet, t.TotalPaid, t.TotalDeductions,
			t.NetByStatus.Confirmed, t.NetByStatus.Pending, t.ConfirmedEmployees, t.PendingEmployees,
		}
		for col, v := range values {
			w.set(SheetAreas, col+1, row, v)
		}
		row++
	}
}

func (w *sheetWriter) extras(s payroll.AccumulationSummary) {
	w.headerRow(SheetExtras, 1, []string{"Concepto", "Adelantos", "Feriados", "Horas extra", "Bonificaciones", "Total"})

	row := 2
	line := func(label string, e payroll.Extras) {
		for col, v := range []any{label, e.Advances, e.Holiday, e.Overtime, e.ManualBonuses, e.Total()} {
			w.set(SheetExtras, col+1, row, v)
		}
		row++
	}
	for i, p := range s.Periods {
		if i < len(s.Extras.ByPeriod) {
			line(p.Label(), s.Extras.ByPeriod[i])
		}
	}
	for _, area := range payroll.Areas {
		if e, ok := s.Extras.ByArea[area]; ok {
			line("Área "+areaLabel(area), e)
		}
	}
	line("Total", s.Extras.Total)
}

func paymentLabel(confirmed bool) string {
	if confirmed {
		return "Pagado"
	}
	return "Pendiente"
}
