/*
Package report renders payroll summaries as files for the payroll office.

FORMATS:
  areas.go:        Per-area period report as CSV (gocsv)
  payslip.go:      One employee's payslip as PDF (gofpdf)
  accumulation.go: Multi-period accumulation as an XLSX workbook (excelize)

Every renderer reads payroll.EntrySummary / payroll.AccumulationSummary
only. No figure is recomputed here; amounts are formatted to two places.

SEE ALSO:
  - payroll/summary.go: EntrySummary, SummarizeAreas
  - payroll/accumulation.go: AccumulationSummary
  - api/handlers.go: download endpoints
*/
package report

import (
	"github.com/gocarina/gocsv"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/shopspring/decimal"
)

// AreaCSVRow is the CSV shape of payroll.AreaReportRow.
type AreaCSVRow struct {
	Area             string `csv:"area"`
	Employees        int    `csv:"employees"`
	ProratedBase     string `csv:"prorated_base"`
	Overtime         string `csv:"overtime"`
	Holiday          string `csv:"holiday"`
	Weekend          string `csv:"weekend"`
	ManualBonuses    string `csv:"manual_bonuses"`
	Absence          string `csv:"absence"`
	Permission       string `csv:"permission"`
	Tardiness        string `csv:"tardiness"`
	Manual           string `csv:"manual_deductions"`
	Advances         string `csv:"advances"`
	ActualDeductions string `csv:"actual_deductions"`
	NetPay           string `csv:"net_pay"`
}

// AreaCSV renders the per-area report, one line per area plus the ALL line.
func AreaCSV(rows []payroll.AreaReportRow) ([]byte, error) {
	out := make([]*AreaCSVRow, len(rows))
	for i, r := range rows {
		out[i] = &AreaCSVRow{
			Area:             string(r.Area),
			Employees:        r.Employees,
			ProratedBase:     amount(r.ProratedBase),
			Overtime:         amount(r.Overtime),
			Holiday:          amount(r.Holiday),
			Weekend:          amount(r.Weekend),
			ManualBonuses:    amount(r.ManualBonuses),
			Absence:          amount(r.Absence),
			Permission:       amount(r.Permission),
			Tardiness:        amount(r.Tardiness),
			Manual:           amount(r.Manual),
			Advances:         amount(r.Advances),
			ActualDeductions: amount(r.ActualDeductions),
			NetPay:           amount(r.NetPay),
		}
	}
	return gocsv.MarshalBytes(out)
}

// amount formats money with exactly two decimals.
func amount(d decimal.Decimal) string {
	return d.StringFixed(generic.MoneyPlaces)
}
