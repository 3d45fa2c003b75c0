/*
accumulation.go - Multi-period rollup per employee and per area

PURPOSE:
  Merges entry summaries across a selection of periods into per-employee
  rows, per-area totals (with a synthetic ALL bucket) and an extras rollup,
  then splits every total by the external payment status.

INPUT STATE:
  Entries is an explicit map keyed by period. A selected period whose key
  is absent has not been fetched: the result is Ready=false with empty rows
  and a *NotReadyError. Partial sums are never returned. A key holding an
  empty slice is a fetched period with nobody in it and contributes zero.

ROWS:
  Net[i]        = sum of NetPay of the employee's entries in period i
  Paid[i]       = Net[i] + advances in period i
  Deductions[i] = actual deductions (advances excluded)

BANK FIELDS:
  First non-empty value across chronological periods, then the roster.

PAYMENT STATUS:
  Period-independent. A confirmed employee's totals count as Confirmed,
  everyone else's as Pending. Never derived from the amounts.

SEE ALSO:
  - summary.go: the only source of per-entry figures
  - loader.go: fills Entries concurrently
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// AccumulationInput is everything the aggregator reads.
type AccumulationInput struct {
	Periods    []PayrollPeriod
	Entries    map[PeriodID][]PayrollEntry
	Roster     []Employee
	Status     PaymentStatus
	MaxPeriods int
	Summary    SummaryOptions
}

// AccumulationRow is one employee across the selected periods. Slices are
// indexed by period position in AccumulationSummary.Periods.
type AccumulationRow struct {
	EmployeeID EmployeeID `json:"employeeId"`
	Name       string     `json:"name"`
	DocumentID string     `json:"documentId"`
	Area       Area       `json:"area"`
	BankFields

	Net        []decimal.Decimal `json:"net"`
	Paid       []decimal.Decimal `json:"paid"`
	Deductions []decimal.Decimal `json:"deductions"`
	Advances   []decimal.Decimal `json:"advances"`

	TotalNet        decimal.Decimal `json:"totalNet"`
	TotalPaid       decimal.Decimal `json:"totalPaid"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	TotalAdvances   decimal.Decimal `json:"totalAdvances"`

	PaymentConfirmed bool `json:"paymentConfirmed"`
}

// StatusSplit divides an amount by payment status.
type StatusSplit struct {
	Confirmed decimal.Decimal `json:"confirmed"`
	Pending   decimal.Decimal `json:"pending"`
}

func (s *StatusSplit) add(amount decimal.Decimal, confirmed bool) {
	if confirmed {
		s.Confirmed = s.Confirmed.Add(amount)
	} else {
		s.Pending = s.Pending.Add(amount)
	}
}

// AreaTotals sums the rows of one area.
type AreaTotals struct {
	Area       Area              `json:"area"`
	Employees  int               `json:"employees"`
	Net        []decimal.Decimal `json:"net"`
	Paid       []decimal.Decimal `json:"paid"`
	Deductions []decimal.Decimal `json:"deductions"`

	TotalNet        decimal.Decimal `json:"totalNet"`
	TotalPaid       decimal.Decimal `json:"totalPaid"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`

	NetByStatus        StatusSplit `json:"netByStatus"`
	PaidByStatus       StatusSplit `json:"paidByStatus"`
	DeductionsByStatus StatusSplit `json:"deductionsByStatus"`
	ConfirmedEmployees int         `json:"confirmedEmployees"`
	PendingEmployees   int         `json:"pendingEmployees"`
}

// Extras are the standalone disbursement line items. They are already part
// of NetPay and are reported separately.
type Extras struct {
	Advances      decimal.Decimal `json:"advances"`
	Holiday       decimal.Decimal `json:"holiday"`
	Overtime      decimal.Decimal `json:"overtime"`
	ManualBonuses decimal.Decimal `json:"manualBonuses"`
}

func (e *Extras) add(s EntrySummary) {
	e.Advances = e.Advances.Add(s.ManualAdvances)
	e.Holiday = e.Holiday.Add(s.HolidayBonus)
	e.Overtime = e.Overtime.Add(s.OvertimeBonus)
	e.ManualBonuses = e.ManualBonuses.Add(s.ManualBonuses)
}

// Total is the sum of the four categories.
func (e Extras) Total() decimal.Decimal {
	return e.Advances.Add(e.Holiday).Add(e.Overtime).Add(e.ManualBonuses)
}

// ExtrasRollup is accumulated per period and per area straight from entry
// summaries, independent of the rows.
type ExtrasRollup struct {
	ByPeriod []Extras        `json:"byPeriod"`
	ByArea   map[Area]Extras `json:"byArea"`
	Total    Extras          `json:"total"`
}

// AccumulationSummary is the aggregator output.
type AccumulationSummary struct {
	Ready   bool                `json:"ready"`
	Missing []PeriodID          `json:"missing,omitempty"`
	Periods []PayrollPeriod     `json:"periods"`
	Rows    []AccumulationRow   `json:"rows"`
	Areas   map[Area]AreaTotals `json:"areas"`
	Extras  ExtrasRollup        `json:"extras"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Accumulate rolls the selected periods up. It returns ErrNoPeriods for an
// empty selection, a *TooManyPeriodsError above the limit and a
// *NotReadyError (with Ready=false) when a period was not fetched.
func Accumulate(in AccumulationInput) (AccumulationSummary, error) {
	periods := sortedUniquePeriods(in.Periods)
	if len(periods) == 0 {
		return AccumulationSummary{Rows: []AccumulationRow{}}, ErrNoPeriods
	}
	limit := in.MaxPeriods
	if limit <= 0 {
		limit = DefaultMaxPeriods
	}
	if len(periods) > limit {
		return AccumulationSummary{Periods: periods, Rows: []AccumulationRow{}},
			&TooManyPeriodsError{Selected: len(periods), Max: limit}
	}

	var missing []PeriodID
	for _, p := range periods {
		if _, ok := in.Entries[p.ID]; !ok {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) > 0 {
		return AccumulationSummary{
			Ready:   false,
			Missing: missing,
			Periods: periods,
			Rows:    []AccumulationRow{},
		}, &NotReadyError{Missing: missing}
	}

	roster := make(map[EmployeeID]Employee, len(in.Roster))
	for _, e := range in.Roster {
		roster[e.ID] = e
	}

	n := len(periods)
	rows := make(map[EmployeeID]*AccumulationRow)
	var order []EmployeeID
	extras := ExtrasRollup{ByPeriod: make([]Extras, n), ByArea: make(map[Area]Extras)}

	for i, p := range periods {
		for _, entry := range in.Entries[p.ID] {
			emp := roster[entry.EmployeeID]
			s := Summarize(entry, emp, p, in.Summary)

			row, ok := rows[entry.EmployeeID]
			if !ok {
				row = newRow(entry.EmployeeID, n)
				row.Name = s.EmployeeName
				row.DocumentID = emp.DocumentID
				row.Area = s.Area
				rows[entry.EmployeeID] = row
				order = append(order, entry.EmployeeID)
			}
			row.BankFields.FillFrom(entry.BankFields)

			row.Net[i] = row.Net[i].Add(s.NetPay)
			row.Paid[i] = row.Paid[i].Add(s.Paid)
			row.Deductions[i] = row.Deductions[i].Add(s.ActualDeductions)
			row.Advances[i] = row.Advances[i].Add(s.ManualAdvances)

			extras.ByPeriod[i].add(s)
			areaExtras := extras.ByArea[s.Area]
			areaExtras.add(s)
			extras.ByArea[s.Area] = areaExtras
			extras.Total.add(s)
		}
	}
	extras.ByArea[AreaAll] = extras.Total

	out := make([]AccumulationRow, 0, len(order))
	for _, id := range order {
		row := rows[id]
		if emp, ok := roster[id]; ok {
			row.BankFields.FillFrom(emp.BankFields())
		}
		row.PaymentConfirmed = in.Status[id]
		for i := 0; i < n; i++ {
			row.TotalNet = row.TotalNet.Add(row.Net[i])
			row.TotalPaid = row.TotalPaid.Add(row.Paid[i])
			row.TotalDeductions = row.TotalDeductions.Add(row.Deductions[i])
			row.TotalAdvances = row.TotalAdvances.Add(row.Advances[i])
		}
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return areaOrder(out[i].Area) < areaOrder(out[j].Area)
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})

	return AccumulationSummary{
		Ready:   true,
		Periods: periods,
		Rows:    out,
		Areas:   areaTotals(out, n),
		Extras:  extras,
	}, nil
}

// Pending returns the rows whose payment has not been confirmed.
func (s AccumulationSummary) Pending() []AccumulationRow {
	return s.filter(false)
}

// Confirmed returns the rows whose payment has been confirmed.
func (s AccumulationSummary) Confirmed() []AccumulationRow {
	return s.filter(true)
}

func (s AccumulationSummary) filter(confirmed bool) []AccumulationRow {
	out := []AccumulationRow{}
	for _, r := range s.Rows {
		if r.PaymentConfirmed == confirmed {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func newRow(id EmployeeID, n int) *AccumulationRow {
	return &AccumulationRow{
		EmployeeID: id,
		Net:        zeros(n),
		Paid:       zeros(n),
		Deductions: zeros(n),
		Advances:   zeros(n),
	}
}

func newAreaTotals(a Area, n int) *AreaTotals {
	return &AreaTotals{Area: a, Net: zeros(n), Paid: zeros(n), Deductions: zeros(n)}
}

func (t *AreaTotals) add(r AccumulationRow) {
	t.Employees++
	for i := range r.Net {
		t.Net[i] = t.Net[i].Add(r.Net[i])
		t.Paid[i] = t.Paid[i].Add(r.Paid[i])
		t.Deductions[i] = t.Deductions[i].Add(r.Deductions[i])
	}
	t.TotalNet = t.TotalNet.Add(r.TotalNet)
	t.TotalPaid = t.TotalPaid.Add(r.TotalPaid)
	t.TotalDeductions = t.TotalDeductions.Add(r.TotalDeductions)

	t.NetByStatus.add(r.TotalNet, r.PaymentConfirmed)
	t.PaidByStatus.add(r.TotalPaid, r.PaymentConfirmed)
	t.DeductionsByStatus.add(r.TotalDeductions, r.PaymentConfirmed)
	if r.PaymentConfirmed {
		t.ConfirmedEmployees++
	} else {
		t.PendingEmployees++
	}
}

// areaTotals sums rows per area. Every known area is present, even when empty,
// plus ALL over every row.
func areaTotals(rows []AccumulationRow, n int) map[Area]AreaTotals {
	totals := make(map[Area]*AreaTotals)
	for _, a := range Areas {
		totals[a] = newAreaTotals(a, n)
	}
	all := newAreaTotals(AreaAll, n)
	for _, r := range rows {
		t, ok := totals[r.Area]
		if !ok {
			t = newAreaTotals(r.Area, n)
			totals[r.Area] = t
		}
		t.add(r)
		all.add(r)
	}
	out := make(map[Area]AreaTotals, len(totals)+1)
	for a, t := range totals {
		out[a] = *t
	}
	out[AreaAll] = *all
	return out
}

func sortedUniquePeriods(periods []PayrollPeriod) []PayrollPeriod {
	seen := make(map[PeriodID]struct{}, len(periods))
	out := make([]PayrollPeriod, 0, len(periods))
	for _, p := range periods {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
