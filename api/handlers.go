/*
handlers.go - HTTP API handlers for the payroll service

PURPOSE:
  Exposes the proration and accumulation engine via REST API. Handles HTTP
  request/response, JSON serialization and validation, and delegates to the
  period workflow in payroll.go.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List roster
    POST   /api/employees                    Register worker
    GET    /api/employees/{id}               Get worker
    PUT    /api/employees/{id}               Replace worker
    DELETE /api/employees/{id}               Remove worker (entries are kept)

  Periods:
    GET    /api/periods                      List periods
    POST   /api/periods                      Open a monthly period
    GET    /api/periods/{id}                 Get period
    PUT    /api/periods/{id}/attendance/{employeeID}  Record attendance
    POST   /api/periods/{id}/generate        Compute entries (idempotent)
    POST   /api/periods/{id}/close           Close period
    GET    /api/periods/{id}/entries         Entries with summaries
    GET    /api/periods/{id}/report.csv      Per-area report

  Entries:
    GET    /api/entries/{id}                 Entry with summary
    GET    /api/entries/{id}/payslip.pdf     Payslip
    POST   /api/entries/{id}/adjustments     Add BONUS/DEDUCTION/ADVANCE
    DELETE /api/adjustments/{id}             Remove adjustment

  Accumulation:
    GET    /api/accumulation?periods=a,b     Multi-period rollup
    GET    /api/accumulation.xlsx?periods=…  Workbook download
    GET    /api/payment-status               Paid flags
    PUT    /api/payment-status/{employeeID}  Set paid flag

  Settings:
    GET    /api/settings                     Rate settings
    PUT    /api/settings                     Replace rate settings

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad period selection
  - 404: Resource not found
  - 409: Closed period, invalid transition, duplicate, accumulation not ready
  - 500: Internal errors (logged with request id)

SECURITY NOTE:
  No authentication or authorization. Run behind the company gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - payroll.go: Period workflow
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/obrasur/payroll-engine/factory"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/obrasur/payroll-engine/report"
	"github.com/obrasur/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store           *sqlite.Store
	SettingsFactory *factory.SettingsFactory
	Logger          *zap.Logger

	// Company is printed on payslips.
	Company string

	// Fallbacks used until rate settings are saved.
	DefaultBaseDays float64
	MaxPeriods      int

	// Serializes entry (re)computation.
	mu sync.Mutex

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:           store,
		SettingsFactory: factory.NewSettingsFactory(),
		Logger:          logger,
	}
}

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the roster.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

// CreateEmployee registers a worker. The id is generated when omitted.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := payroll.EmployeeID(req.ID)
	if id == "" {
		id = payroll.EmployeeID(uuid.NewString())
	}
	if _, err := h.Store.GetEmployee(r.Context(), id); err == nil {
		writeError(w, http.StatusConflict, "Employee already exists", nil)
		return
	}

	emp, err := req.toEmployee(id)
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// GetEmployee returns one worker.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), payroll.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// UpdateEmployee replaces a worker's record. Existing entries keep their
// snapshot until the period is regenerated.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}

	var req EmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	emp, err := req.toEmployee(id)
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// DeleteEmployee removes a worker from the roster.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteEmployee(r.Context(), payroll.EmployeeID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns all periods, oldest first.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

// CreatePeriod opens a monthly period.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := factory.NewMonthlyPeriod(req.Year, req.Month, req.WorkingDays)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	if err := h.Store.CreatePeriod(r.Context(), period); err != nil {
		h.fail(w, r, "Failed to create period", err)
		return
	}
	writeJSON(w, http.StatusCreated, period)
}

// GetPeriod returns one period.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Store.GetPeriod(r.Context(), payroll.PeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get period", err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

// RecordAttendance stores one employee's attendance facts for a period.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	periodID := payroll.PeriodID(chi.URLParam(r, "id"))
	employeeID := payroll.EmployeeID(chi.URLParam(r, "employeeID"))

	var req AttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	facts, err := req.toFacts()
	if err != nil {
		h.fail(w, r, "Invalid attendance", err)
		return
	}
	if _, err := h.openPeriod(ctx, periodID); err != nil {
		h.fail(w, r, "Cannot record attendance", err)
		return
	}
	if _, err := h.Store.GetEmployee(ctx, employeeID); err != nil {
		h.fail(w, r, "Cannot record attendance", err)
		return
	}
	if err := h.Store.SaveAttendance(ctx, periodID, employeeID, facts); err != nil {
		h.fail(w, r, "Failed to record attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, facts)
}

// GeneratePeriod computes the period's entries.
func (h *Handler) GeneratePeriod(w http.ResponseWriter, r *http.Request) {
	period, entries, err := h.generatePeriod(r.Context(), payroll.PeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to generate period", err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Period: *period, Generated: len(entries)})
}

// ClosePeriod closes a processed period.
func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.closePeriod(r.Context(), payroll.PeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to close period", err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

// ListPeriodEntries returns entries, summaries and area totals of a period.
func (h *Handler) ListPeriodEntries(w http.ResponseWriter, r *http.Request) {
	period, entries, err := h.summarizePeriod(r.Context(), payroll.PeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodEntriesResponse{
		Period:  *period,
		Entries: entries,
		Areas:   payroll.SummarizeAreas(summariesOf(entries)),
	})
}

// PeriodAreaReport downloads the per-area report as CSV.
func (h *Handler) PeriodAreaReport(w http.ResponseWriter, r *http.Request) {
	period, entries, err := h.summarizePeriod(r.Context(), payroll.PeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to build report", err)
		return
	}
	data, err := report.AreaCSV(payroll.SummarizeAreas(summariesOf(entries)))
	if err != nil {
		h.fail(w, r, "Failed to render report", err)
		return
	}
	writeFile(w, "text/csv; charset=utf-8", "areas-"+string(period.ID)+".csv", data)
}

func summariesOf(entries []EntryDTO) []payroll.EntrySummary {
	out := make([]payroll.EntrySummary, len(entries))
	for i, e := range entries {
		out[i] = e.Summary
	}
	return out
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// GetEntry returns one entry with its summary.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	dto, _, _, err := h.entryWithSummary(r)
	if err != nil {
		h.fail(w, r, "Failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetPayslip downloads an entry's payslip as PDF.
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	dto, period, emp, err := h.entryWithSummary(r)
	if err != nil {
		h.fail(w, r, "Failed to get entry", err)
		return
	}
	data, err := report.PayslipPDF(report.Payslip{
		Company:  h.Company,
		Period:   *period,
		Employee: emp,
		Summary:  dto.Summary,
	})
	if err != nil {
		h.fail(w, r, "Failed to render payslip", err)
		return
	}
	writeFile(w, "application/pdf", "boleta-"+string(period.ID)+"-"+string(dto.Entry.EmployeeID)+".pdf", data)
}

func (h *Handler) entryWithSummary(r *http.Request) (EntryDTO, *payroll.PayrollPeriod, payroll.Employee, error) {
	ctx := r.Context()
	entry, err := h.Store.GetEntry(ctx, payroll.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		return EntryDTO{}, nil, payroll.Employee{}, err
	}
	period, err := h.Store.GetPeriod(ctx, entry.PeriodID)
	if err != nil {
		return EntryDTO{}, nil, payroll.Employee{}, err
	}
	rates, err := h.rates(ctx)
	if err != nil {
		return EntryDTO{}, nil, payroll.Employee{}, err
	}
	var emp payroll.Employee
	if found, err := h.Store.GetEmployee(ctx, entry.EmployeeID); err == nil {
		emp = *found
	} else if !generic.IsNotFound(err) {
		return EntryDTO{}, nil, payroll.Employee{}, err
	}
	dto := EntryDTO{
		Entry:   *entry,
		Summary: payroll.Summarize(*entry, emp, *period, summaryOptions(rates)),
	}
	return dto, period, emp, nil
}

// AddAdjustment adds a manual line to an entry and recomputes it.
func (h *Handler) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	entryID := payroll.EntryID(chi.URLParam(r, "id"))

	var req AdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount := generic.MustParseDecimal(req.Amount)
	if !amount.IsPositive() {
		h.fail(w, r, "Invalid adjustment", &generic.FieldError{Field: "amount", Message: "must be positive"})
		return
	}

	adj := payroll.Adjustment{
		ID:      payroll.AdjustmentID(uuid.NewString()),
		EntryID: entryID,
		Type:    payroll.AdjustmentType(req.Type),
		Concept: strings.TrimSpace(req.Concept),
		Amount:  generic.RoundMoney(amount),
	}
	updated, err := h.addAdjustment(r.Context(), adj)
	if err != nil {
		h.fail(w, r, "Failed to add adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, updated)
}

// DeleteAdjustment removes a manual line and recomputes its entry.
func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	updated, err := h.removeAdjustment(r.Context(), payroll.AdjustmentID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to delete adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// =============================================================================
// ACCUMULATION HANDLERS
// =============================================================================

// GetAccumulation returns the multi-period rollup. Periods without entries
// yield 409 with the not-ready summary rather than partial totals.
func (h *Handler) GetAccumulation(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.accumulation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetAccumulationWorkbook downloads the rollup as XLSX.
func (h *Handler) GetAccumulationWorkbook(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.accumulation(w, r)
	if !ok {
		return
	}
	data, err := report.AccumulationWorkbook(summary)
	if err != nil {
		h.fail(w, r, "Failed to render workbook", err)
		return
	}
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "acumulado.xlsx", data)
}

func (h *Handler) accumulation(w http.ResponseWriter, r *http.Request) (payroll.AccumulationSummary, bool) {
	summary, err := h.accumulate(r.Context(), parsePeriodIDs(r))
	if err == nil {
		return summary, true
	}

	var notReady *payroll.NotReadyError
	switch {
	case errors.As(err, &notReady):
		writeJSON(w, http.StatusConflict, NotReadyResponse{
			ErrorResponse: ErrorResponse{
				Error:   "Accumulation not ready",
				Code:    "accumulation_not_ready",
				Details: notReady.Missing,
			},
			Summary: summary,
		})
	case errors.Is(err, payroll.ErrNoPeriods), errors.Is(err, payroll.ErrTooManyPeriods):
		writeError(w, http.StatusBadRequest, "Invalid period selection", err)
	default:
		h.fail(w, r, "Failed to build accumulation", err)
	}
	return summary, false
}

// parsePeriodIDs reads ?periods=a,b (repeatable), dropping blanks and repeats.
func parsePeriodIDs(r *http.Request) []payroll.PeriodID {
	seen := make(map[payroll.PeriodID]bool)
	var ids []payroll.PeriodID
	for _, raw := range r.URL.Query()["periods"] {
		for _, part := range strings.Split(raw, ",") {
			id := payroll.PeriodID(strings.TrimSpace(part))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// GetPaymentStatus returns every recorded paid flag.
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Store.PaymentStatus(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to get payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SetPaymentStatus records whether an employee's accumulated balance was paid.
func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	employeeID := payroll.EmployeeID(chi.URLParam(r, "employeeID"))
	var req PaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Store.SetPaymentStatus(r.Context(), employeeID, *req.Paid); err != nil {
		h.fail(w, r, "Failed to set payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employeeId": employeeID, "paid": *req.Paid})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the effective rate settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.SettingsFactory.ToJSON(rates))
}

// UpdateSettings validates and stores new rate settings. Entries already
// computed keep their figures until their period is regenerated.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req factory.SettingsJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rates, err := h.SettingsFactory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}
	doc, err := h.SettingsFactory.Marshal(rates)
	if err != nil {
		h.fail(w, r, "Failed to encode settings", err)
		return
	}
	if err := h.Store.SaveSetting(r.Context(), sqlite.SettingsKeyRates, doc); err != nil {
		h.fail(w, r, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.SettingsFactory.ToJSON(rates))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_failed",
				Details: fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// fail maps a workflow error to its status. Unexpected errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
