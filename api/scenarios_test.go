/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Employees and periods are created
	- Entries are generated with the expected figures
	- Adjustments, closes and payment flags are applied

These tests double as integration tests of the period workflow.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/obrasur/payroll-engine/factory"
	"github.com/obrasur/payroll-engine/payroll"
)

func entryOf(t *testing.T, h *Handler, periodID payroll.PeriodID, empID payroll.EmployeeID) payroll.PayrollEntry {
	t.Helper()
	entries, err := h.Store.ListPeriodEntries(context.Background(), periodID)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	for _, e := range entries {
		if e.EmployeeID == empID {
			return e
		}
	}
	t.Fatalf("No entry for %s in %s", empID, periodID)
	return payroll.PayrollEntry{}
}

func TestScenario_ConstructionCrew(t *testing.T) {
	// GIVEN: Construction crew scenario
	// WHEN: Loading the scenario
	// THEN: Three generated months, January closed, one advance in January

	h := setupTestHandler(t)
	ctx := context.Background()

	if err := h.loadConstructionCrewScenario(ctx); err != nil {
		t.Fatalf("Failed to load construction-crew scenario: %v", err)
	}

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("Failed to list employees: %v", err)
	}
	if len(employees) != 5 {
		t.Errorf("Expected 5 employees, got %d", len(employees))
	}

	periods, err := h.Store.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("Failed to list periods: %v", err)
	}
	wantStatus := []payroll.PeriodStatus{payroll.StatusClosed, payroll.StatusProcessed, payroll.StatusProcessed}
	if len(periods) != len(wantStatus) {
		t.Fatalf("Expected %d periods, got %d", len(wantStatus), len(periods))
	}
	for i, p := range periods {
		if p.Status != wantStatus[i] {
			t.Errorf("Period %s: expected %s, got %s", p.ID, wantStatus[i], p.Status)
		}
	}

	// Rosa, January: 3000 + 6h overtime (93.75) - 500 advance
	rosa := entryOf(t, h, factory.PeriodID(2025, 1), "op-001")
	if got := rosa.NetPay.StringFixed(2); got != "2593.75" {
		t.Errorf("Expected January net 2593.75, got %s", got)
	}
	if len(rosa.Adjustments) != 1 || rosa.Adjustments[0].Type != payroll.AdjustmentAdvance {
		t.Errorf("Expected one advance, got %+v", rosa.Adjustments)
	}

	summary, err := h.accumulate(ctx, []payroll.PeriodID{
		factory.PeriodID(2025, 1), factory.PeriodID(2025, 2), factory.PeriodID(2025, 3),
	})
	if err != nil {
		t.Fatalf("Failed to accumulate: %v", err)
	}
	if len(summary.Rows) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(summary.Rows))
	}
	if summary.Rows[0].Area != payroll.AreaOperative || summary.Rows[4].Area != payroll.AreaAdministrative {
		t.Errorf("Expected operative rows before administrative rows")
	}
	for _, row := range summary.Rows {
		switch row.EmployeeID {
		case "op-001":
			// 2593.75 + (3000 + 156.25 overtime + 100 Sunday) + 3000
			if got := row.TotalNet.StringFixed(2); got != "8850.00" {
				t.Errorf("Expected Rosa total net 8850.00, got %s", got)
			}
			if got := row.TotalPaid.StringFixed(2); got != "9350.00" {
				t.Errorf("Expected Rosa total paid 9350.00, got %s", got)
			}
		case "adm-001":
			if !row.PaymentConfirmed {
				t.Errorf("Expected adm-001 payment confirmed")
			}
		}
	}
}

func TestScenario_MidMonthHire(t *testing.T) {
	// GIVEN: Mid-month hire scenario
	// WHEN: Loading the scenario
	// THEN: The hire is paid 17 of 31 days at 3100/30 per day

	h := setupTestHandler(t)
	ctx := context.Background()

	if err := h.loadMidMonthHireScenario(ctx); err != nil {
		t.Fatalf("Failed to load mid-month-hire scenario: %v", err)
	}

	hire := entryOf(t, h, factory.PeriodID(2025, 3), "op-101")
	if hire.Breakdown.EligibleDays != 17 {
		t.Errorf("Expected 17 eligible days, got %v", hire.Breakdown.EligibleDays)
	}
	if hire.Breakdown.PeriodDays != 31 {
		t.Errorf("Expected 31 period days, got %v", hire.Breakdown.PeriodDays)
	}
	if got := hire.BaseSalary.StringFixed(2); got != "1756.67" {
		t.Errorf("Expected prorated remuneration 1756.67, got %s", got)
	}

	veteran := entryOf(t, h, factory.PeriodID(2025, 3), "op-100")
	if got := veteran.BaseSalary.StringFixed(2); got != "3600.00" {
		t.Errorf("Expected full remuneration 3600.00, got %s", got)
	}
}

func TestScenario_SundayPenalty(t *testing.T) {
	// GIVEN: Sunday penalty scenario
	// WHEN: Loading the scenario
	// THEN: Two absences in one week withhold one Sunday; the Mar 31 absence
	//       withholds nothing because its Sunday is in April

	h := setupTestHandler(t)
	ctx := context.Background()

	if err := h.loadSundayPenaltyScenario(ctx); err != nil {
		t.Fatalf("Failed to load sunday-penalty scenario: %v", err)
	}

	entry := entryOf(t, h, factory.PeriodID(2025, 3), "op-200")
	if entry.Attendance.AbsencePenaltyDays != 1 {
		t.Errorf("Expected 1 penalty day, got %v", entry.Attendance.AbsencePenaltyDays)
	}
	// (3 absences + 1 penalty) x 2500/30
	if got := entry.Breakdown.AbsenceDeduction.StringFixed(2); got != "333.33" {
		t.Errorf("Expected absence deduction 333.33, got %s", got)
	}
	if got := entry.NetPay.StringFixed(2); got != "2166.67" {
		t.Errorf("Expected net 2166.67, got %s", got)
	}
}

func TestScenario_PendingAccumulation(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()

	if err := h.loadPendingAccumulationScenario(ctx); err != nil {
		t.Fatalf("Failed to load pending-accumulation scenario: %v", err)
	}

	summary, err := h.accumulate(ctx, []payroll.PeriodID{factory.PeriodID(2025, 2), factory.PeriodID(2025, 3)})
	if !payroll.IsNotReady(err) {
		t.Fatalf("Expected not ready, got %v", err)
	}
	if summary.Ready || len(summary.Missing) != 1 || summary.Missing[0] != factory.PeriodID(2025, 3) {
		t.Errorf("Expected March missing, got %+v", summary.Missing)
	}
}

func TestScenario_AllScenariosLoadViaAPI(t *testing.T) {
	// GIVEN: All available scenarios
	// WHEN: Loading each one through the API, one after another
	// THEN: None should error and the current scenario follows the last load

	h, router := setupTestRouter(t)

	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
			if rec.Code != http.StatusOK {
				t.Fatalf("Scenario '%s' failed to load: %d %s", s.ID, rec.Code, rec.Body.String())
			}

			rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
			if got := decodeBody[ScenarioDTO](t, rec); got.ID != s.ID {
				t.Errorf("Expected current scenario %s, got %s", s.ID, got.ID)
			}
		})
	}

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "year-end"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scenario, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Reset failed: %d", rec.Code)
	}
	employees, err := h.Store.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("Failed to list employees: %v", err)
	}
	if len(employees) != 0 {
		t.Errorf("Expected empty roster after reset, got %d", len(employees))
	}
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	if body := rec.Body.String(); body != "null\n" {
		t.Errorf("Expected no current scenario, got %s", body)
	}
}
