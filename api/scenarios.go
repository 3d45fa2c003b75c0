/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a realistic
	construction crew. Each scenario creates employees, periods and
	attendance, then drives the same generate/adjust/close workflow the HTTP
	API uses.

AVAILABLE SCENARIOS:

	construction-crew:    Three months for a mixed crew, first month closed
	mid-month-hire:       Worker hired on the 15th, prorated remuneration
	sunday-penalty:       Weekday absences withholding the week's Sunday
	pending-accumulation: Second month opened but never generated (409)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees
 3. Open periods and record attendance
 4. Generate entries
 5. Optionally add adjustments, payment flags and close periods

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "construction-crew"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - payroll.go: generatePeriod, addAdjustment, closePeriod
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/obrasur/payroll-engine/factory"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "construction-crew",
		Name:        "Construction Crew",
		Description: "Operatives and office staff over three months, with overtime, holidays and advances",
	},
	{
		ID:          "mid-month-hire",
		Name:        "Mid-Month Hire",
		Description: "Worker starting on the 15th receives prorated remuneration",
	},
	{
		ID:          "sunday-penalty",
		Name:        "Sunday Penalty",
		Description: "Weekday absences withhold the Sunday of their week",
	},
	{
		ID:          "pending-accumulation",
		Name:        "Pending Accumulation",
		Description: "Second month opened but not generated; accumulation reports not ready",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		if generic.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.fail(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "construction-crew":
		load = h.loadConstructionCrewScenario
	case "mid-month-hire":
		load = h.loadMidMonthHireScenario
	case "sunday-penalty":
		load = h.loadSundayPenaltyScenario
	case "pending-accumulation":
		load = h.loadPendingAccumulationScenario
	default:
		return &generic.FieldError{Field: "scenario_id", Message: fmt.Sprintf("unknown scenario %q", id)}
	}

	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.setCurrentScenario("")
	if err := load(ctx); err != nil {
		return err
	}
	h.setCurrentScenario(id)
	h.Logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadConstructionCrewScenario(ctx context.Context) error {
	crew := []payroll.Employee{
		worker("op-001", "Rosa Quispe", "Albañil", "3000", payroll.AreaOperative),
		worker("op-002", "Jorge Huamán", "Operario", "2800", payroll.AreaOperative),
		worker("op-003", "Pedro Condori", "Fierrero", "2600", payroll.AreaOperative),
		worker("adm-001", "Luis Mamani", "Residente de obra", "4500", payroll.AreaAdministrative),
		worker("adm-002", "Carmen Flores", "Asistente administrativa", "2400", payroll.AreaAdministrative),
	}
	crew[3].PensionRate = generic.MustParseDecimal("0.13")
	crew[3].HealthRate = generic.MustParseDecimal("0.09")
	if err := h.seedEmployees(ctx, crew...); err != nil {
		return err
	}

	attendance := map[int]map[payroll.EmployeeID]payroll.AttendanceFacts{
		1: {
			"op-001": {OvertimeHours: 6},
			"op-002": {AbsenceDays: 1, TardinessMinutes: 45},
			"op-003": {HolidayDays: 1},
		},
		2: {
			"op-001":  {OvertimeHours: 10, WeekendSundayDays: 1},
			"op-002":  {PermissionHours: 12},
			"adm-002": {AbsenceDays: 2},
		},
		3: {
			"op-003":  {OvertimeHours: 4, TardinessMinutes: 20},
			"adm-001": {PermissionDays: 1},
		},
	}

	entries := make(map[int][]payroll.PayrollEntry)
	for month := 1; month <= 3; month++ {
		id, err := h.seedPeriod(ctx, 2025, month, 30)
		if err != nil {
			return err
		}
		if err := h.seedAttendance(ctx, id, attendance[month]); err != nil {
			return err
		}
		_, generated, err := h.generatePeriod(ctx, id)
		if err != nil {
			return err
		}
		entries[month] = generated
	}

	if err := h.seedAdjustment(ctx, entries[1], "op-001", payroll.AdjustmentAdvance, "Adelanto quincena", "500"); err != nil {
		return err
	}
	if err := h.seedAdjustment(ctx, entries[2], "op-003", payroll.AdjustmentBonus, "Bono por avance de obra", "250"); err != nil {
		return err
	}
	if err := h.seedAdjustment(ctx, entries[3], "adm-002", payroll.AdjustmentDeduction, "Descuento por EPP extraviado", "80"); err != nil {
		return err
	}

	if _, err := h.closePeriod(ctx, factory.PeriodID(2025, 1)); err != nil {
		return err
	}
	return h.Store.SetPaymentStatus(ctx, "adm-001", true)
}

func (h *Handler) loadMidMonthHireScenario(ctx context.Context) error {
	hire := worker("op-101", "Ana Ccori", "Operaria", "3100", payroll.AreaOperative)
	start := generic.NewDate(2025, time.March, 15)
	hire.StartDate = &start

	if err := h.seedEmployees(ctx,
		worker("op-100", "Miguel Tito", "Capataz", "3600", payroll.AreaOperative),
		hire,
	); err != nil {
		return err
	}

	id, err := h.seedPeriod(ctx, 2025, 3, 0)
	if err != nil {
		return err
	}
	if err := h.seedAttendance(ctx, id, map[payroll.EmployeeID]payroll.AttendanceFacts{
		"op-101": {OvertimeHours: 2},
	}); err != nil {
		return err
	}
	_, _, err = h.generatePeriod(ctx, id)
	return err
}

func (h *Handler) loadSundayPenaltyScenario(ctx context.Context) error {
	emp := worker("op-200", "Julio Apaza", "Peón", "2500", payroll.AreaOperative)
	emp.SundayPenalty = true
	if err := h.seedEmployees(ctx, emp); err != nil {
		return err
	}

	id, err := h.seedPeriod(ctx, 2025, 3, 30)
	if err != nil {
		return err
	}
	// Tue Mar 4 and Thu Mar 6 share one week; Mon Mar 31 belongs to a week
	// whose Sunday falls in April.
	absences := []generic.Date{
		generic.NewDate(2025, time.March, 4),
		generic.NewDate(2025, time.March, 6),
		generic.NewDate(2025, time.March, 31),
	}
	if err := h.seedAttendance(ctx, id, map[payroll.EmployeeID]payroll.AttendanceFacts{
		"op-200": {AbsenceDays: float64(len(absences)), AbsenceDates: absences},
	}); err != nil {
		return err
	}
	_, _, err = h.generatePeriod(ctx, id)
	return err
}

func (h *Handler) loadPendingAccumulationScenario(ctx context.Context) error {
	if err := h.seedEmployees(ctx,
		worker("op-300", "Elena Choque", "Operaria", "2900", payroll.AreaOperative),
		worker("adm-300", "Raúl Vargas", "Almacenero", "2700", payroll.AreaAdministrative),
	); err != nil {
		return err
	}

	feb, err := h.seedPeriod(ctx, 2025, 2, 30)
	if err != nil {
		return err
	}
	if _, _, err := h.generatePeriod(ctx, feb); err != nil {
		return err
	}
	_, err = h.seedPeriod(ctx, 2025, 3, 30)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func worker(id, name, position, salary string, area payroll.Area) payroll.Employee {
	return payroll.Employee{
		ID:            payroll.EmployeeID(id),
		Name:          name,
		DocumentID:    "DNI-" + id,
		Position:      position,
		BaseSalary:    generic.MustParseDecimal(salary),
		Area:          area,
		BankName:      "Banco de la Nación",
		BankAccount:   "04-" + id,
		AccountHolder: name,
		Active:        true,
	}
}

func (h *Handler) seedEmployees(ctx context.Context, employees ...payroll.Employee) error {
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("seed employee %s: %w", emp.ID, err)
		}
	}
	return nil
}

func (h *Handler) seedPeriod(ctx context.Context, year, month, workingDays int) (payroll.PeriodID, error) {
	period, err := factory.NewMonthlyPeriod(year, month, workingDays)
	if err != nil {
		return "", err
	}
	if err := h.Store.CreatePeriod(ctx, period); err != nil {
		return "", fmt.Errorf("seed period %s: %w", period.ID, err)
	}
	return period.ID, nil
}

func (h *Handler) seedAttendance(ctx context.Context, periodID payroll.PeriodID, facts map[payroll.EmployeeID]payroll.AttendanceFacts) error {
	for empID, f := range facts {
		if err := h.Store.SaveAttendance(ctx, periodID, empID, f); err != nil {
			return fmt.Errorf("seed attendance %s/%s: %w", periodID, empID, err)
		}
	}
	return nil
}

func (h *Handler) seedAdjustment(ctx context.Context, entries []payroll.PayrollEntry, empID payroll.EmployeeID, t payroll.AdjustmentType, concept, amount string) error {
	for _, e := range entries {
		if e.EmployeeID != empID {
			continue
		}
		adj := payroll.Adjustment{
			ID:      payroll.AdjustmentID(uuid.NewString()),
			EntryID: e.ID,
			Type:    t,
			Concept: concept,
			Amount:  generic.MustParseDecimal(amount),
		}
		_, err := h.addAdjustment(ctx, adj)
		return err
	}
	return &generic.NotFoundError{Kind: "entry for employee", ID: string(empID)}
}
