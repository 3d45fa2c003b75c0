/*
payroll.go - Period workflow shared by handlers, scenarios and the scheduler

PURPOSE:
  Glues the store to the pure engine. Every path that (re)computes an entry
  or builds an accumulation goes through here so the HTTP handlers, the demo
  scenarios and the close scheduler cannot drift apart.

PERIOD LIFECYCLE:
  OPEN ──generate──> PROCESSED ──close──> CLOSED
                        │  ^
                        └──┘ regenerate / adjustments recompute entries

  CLOSED periods reject attendance, regeneration and adjustment changes.
  Regeneration covers the active roster only; entries of employees who
  became inactive are dropped with their adjustments.

  An adjustment change and the recomputed entry are written in one
  transaction while h.mu is held.

SEE ALSO:
  - payroll/calculator.go: Calculate / Recalculate
  - payroll/accumulation.go: Accumulate
  - store/sqlite/sqlite.go: SaveEntries (upsert keyed by period+employee)
*/
package api

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/obrasur/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

// rates loads the stored rate settings. Without a stored document the
// configured defaults apply.
func (h *Handler) rates(ctx context.Context) (payroll.Rates, error) {
	doc, err := h.Store.GetSetting(ctx, sqlite.SettingsKeyRates)
	if err != nil {
		return payroll.Rates{}, err
	}
	rates, err := h.SettingsFactory.ParseSettings(doc)
	if err != nil {
		return payroll.Rates{}, err
	}
	if doc == "" {
		if h.DefaultBaseDays > 0 {
			rates.BaseDays = h.DefaultBaseDays
		}
		if h.MaxPeriods > 0 {
			rates.MaxPeriods = h.MaxPeriods
		}
	}
	return rates, nil
}

// summaryOptions keeps summaries on the same pay base as the calculator.
func summaryOptions(rates payroll.Rates) payroll.SummaryOptions {
	return payroll.SummaryOptions{BaseDays: rates.BaseDays}
}

// openPeriod loads a period that may still be modified.
func (h *Handler) openPeriod(ctx context.Context, id payroll.PeriodID) (*payroll.PayrollPeriod, error) {
	period, err := h.Store.GetPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	if period.Status == payroll.StatusClosed {
		return nil, fmt.Errorf("period %s: %w", id, generic.ErrPeriodClosed)
	}
	return period, nil
}

// generatePeriod computes one entry per active employee and marks the period
// PROCESSED. Running it again replaces each employee's entry in place and
// keeps its id and adjustments.
func (h *Handler) generatePeriod(ctx context.Context, id payroll.PeriodID) (*payroll.PayrollPeriod, []payroll.PayrollEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	period, err := h.openPeriod(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rates, err := h.rates(ctx)
	if err != nil {
		return nil, nil, err
	}
	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		return nil, nil, err
	}
	attendance, err := h.Store.ListAttendance(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	existing, err := h.Store.ListPeriodEntries(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	previous := make(map[payroll.EmployeeID]payroll.PayrollEntry, len(existing))
	for _, e := range existing {
		previous[e.EmployeeID] = e
	}

	entries := make([]payroll.PayrollEntry, 0, len(employees))
	replaced := 0
	for _, emp := range employees {
		if !emp.Active {
			continue
		}
		in := payroll.CalcInput{
			EntryID:    payroll.EntryID(uuid.NewString()),
			Employee:   emp,
			Period:     *period,
			Attendance: attendance[emp.ID],
			Rates:      rates,
		}
		if prev, ok := previous[emp.ID]; ok {
			in.Adjustments = prev.Adjustments
			entries = append(entries, payroll.Recalculate(prev, in))
			replaced++
			continue
		}
		entries = append(entries, payroll.Calculate(in))
	}

	saved, err := h.Store.SaveEntries(ctx, id, entries)
	if err != nil {
		return nil, nil, err
	}
	period.Status = payroll.StatusProcessed

	h.Logger.Info("period generated",
		zap.String("period", string(id)),
		zap.Int("entries", len(saved)),
		zap.Int("replaced", replaced),
		zap.Int("dropped", len(previous)-replaced),
	)
	return period, saved, nil
}

// addAdjustment recomputes an entry with one more manual line and stores both
// together. The period check, the computation and the write all happen under
// h.mu, so the close scheduler cannot slip in between.
func (h *Handler) addAdjustment(ctx context.Context, adj payroll.Adjustment) (*payroll.PayrollEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, period, err := h.adjustableEntry(ctx, adj.EntryID)
	if err != nil {
		return nil, err
	}
	adjustments := append(append([]payroll.Adjustment{}, prev.Adjustments...), adj)
	entry, err := h.recalculate(ctx, *prev, *period, adjustments)
	if err != nil {
		return nil, err
	}
	saved, err := h.Store.AddAdjustmentAndSaveEntry(ctx, adj, entry)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// removeAdjustment is the inverse of addAdjustment.
func (h *Handler) removeAdjustment(ctx context.Context, id payroll.AdjustmentID) (*payroll.PayrollEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	adj, err := h.Store.GetAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	prev, period, err := h.adjustableEntry(ctx, adj.EntryID)
	if err != nil {
		return nil, err
	}
	adjustments := make([]payroll.Adjustment, 0, len(prev.Adjustments))
	for _, a := range prev.Adjustments {
		if a.ID != id {
			adjustments = append(adjustments, a)
		}
	}
	entry, err := h.recalculate(ctx, *prev, *period, adjustments)
	if err != nil {
		return nil, err
	}
	saved, err := h.Store.DeleteAdjustmentAndSaveEntry(ctx, id, entry)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// adjustableEntry loads an entry whose period still accepts changes.
func (h *Handler) adjustableEntry(ctx context.Context, entryID payroll.EntryID) (*payroll.PayrollEntry, *payroll.PayrollPeriod, error) {
	prev, err := h.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	period, err := h.openPeriod(ctx, prev.PeriodID)
	if err != nil {
		return nil, nil, err
	}
	return prev, period, nil
}

// recalculate rebuilds an entry with the given adjustments. It reads the
// current roster, attendance and rates but writes nothing.
func (h *Handler) recalculate(ctx context.Context, prev payroll.PayrollEntry, period payroll.PayrollPeriod, adjustments []payroll.Adjustment) (payroll.PayrollEntry, error) {
	rates, err := h.rates(ctx)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}

	emp, err := h.Store.GetEmployee(ctx, prev.EmployeeID)
	if err != nil && !generic.IsNotFound(err) {
		return payroll.PayrollEntry{}, err
	}
	if emp == nil {
		emp = snapshotEmployee(prev)
	}

	attendance, err := h.Store.ListAttendance(ctx, prev.PeriodID)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	facts, ok := attendance[prev.EmployeeID]
	if !ok {
		facts = prev.Attendance
	}

	return payroll.Recalculate(prev, payroll.CalcInput{
		Employee:    *emp,
		Period:      period,
		Attendance:  facts,
		Adjustments: adjustments,
		Rates:       rates,
	}), nil
}

// snapshotEmployee rebuilds enough of an employee from an entry to recompute
// it after the worker left the roster.
func snapshotEmployee(e payroll.PayrollEntry) *payroll.Employee {
	return &payroll.Employee{
		ID:            e.EmployeeID,
		Name:          e.EmployeeName,
		Area:          e.Area,
		BaseSalary:    e.Breakdown.MonthlyBase,
		StartDate:     e.Attendance.StartDate,
		BankName:      e.BankName,
		BankAccount:   e.BankAccount,
		AccountHolder: e.AccountHolder,
		Phone:         e.Phone,
		Active:        true,
	}
}

// closePeriod moves a PROCESSED period to CLOSED.
func (h *Handler) closePeriod(ctx context.Context, id payroll.PeriodID) (*payroll.PayrollPeriod, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	period, err := h.Store.GetPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	switch period.Status {
	case payroll.StatusClosed:
		return nil, fmt.Errorf("period %s: %w", id, generic.ErrPeriodClosed)
	case payroll.StatusOpen:
		return nil, fmt.Errorf("period %s has not been generated: %w", id, generic.ErrInvalidTransition)
	}
	if err := h.Store.UpdatePeriodStatus(ctx, id, payroll.StatusClosed); err != nil {
		return nil, err
	}
	period.Status = payroll.StatusClosed
	return period, nil
}

// summarizePeriod returns each entry of a period with its summary.
func (h *Handler) summarizePeriod(ctx context.Context, id payroll.PeriodID) (*payroll.PayrollPeriod, []EntryDTO, error) {
	period, err := h.Store.GetPeriod(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rates, err := h.rates(ctx)
	if err != nil {
		return nil, nil, err
	}
	roster, err := h.Store.Roster(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries, err := h.Store.ListPeriodEntries(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = EntryDTO{
			Entry:   e,
			Summary: payroll.Summarize(e, roster[e.EmployeeID], *period, summaryOptions(rates)),
		}
	}
	return period, out, nil
}

// accumulate loads the selected periods concurrently and rolls them up.
func (h *Handler) accumulate(ctx context.Context, ids []payroll.PeriodID) (payroll.AccumulationSummary, error) {
	if len(ids) == 0 {
		return payroll.AccumulationSummary{Rows: []payroll.AccumulationRow{}}, payroll.ErrNoPeriods
	}
	rates, err := h.rates(ctx)
	if err != nil {
		return payroll.AccumulationSummary{}, err
	}
	if len(ids) > rates.MaxPeriods {
		return payroll.AccumulationSummary{}, &payroll.TooManyPeriodsError{Selected: len(ids), Max: rates.MaxPeriods}
	}

	periods, err := h.Store.GetPeriods(ctx, ids)
	if err != nil {
		return payroll.AccumulationSummary{}, err
	}
	// Only generated periods are fetched; an OPEN period stays out of the map
	// and makes the selection not ready.
	generated := make([]payroll.PeriodID, 0, len(periods))
	for _, p := range periods {
		if p.Status != payroll.StatusOpen {
			generated = append(generated, p.ID)
		}
	}
	entries, err := payroll.LoadPeriodEntries(ctx, h.Store, generated, payroll.DefaultFetchLimit)
	if err != nil {
		return payroll.AccumulationSummary{}, err
	}
	roster, err := h.Store.ListEmployees(ctx)
	if err != nil {
		return payroll.AccumulationSummary{}, err
	}
	status, err := h.Store.PaymentStatus(ctx)
	if err != nil {
		return payroll.AccumulationSummary{}, err
	}

	return payroll.Accumulate(payroll.AccumulationInput{
		Periods:    periods,
		Entries:    entries,
		Roster:     roster,
		Status:     status,
		MaxPeriods: rates.MaxPeriods,
		Summary:    summaryOptions(rates),
	})
}
