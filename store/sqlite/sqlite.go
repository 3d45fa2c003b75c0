/*
Package sqlite provides the SQLite-backed store of the payroll service.

PURPOSE:
  Persists the roster, payroll periods, attendance facts, computed entries,
  manual adjustments, payment status and rate settings. The engine in
  package payroll never touches the database; handlers load what it needs
  from here and write its results back.

KEY TABLES:
  employees:        Roster (mutable; entries keep their own snapshot)
  payroll_periods:  One row per monthly run, status OPEN/PROCESSED/CLOSED
  attendance:       Facts per (period, employee), stored as JSON
  payroll_entries:  Computed results, unique per (period, employee)
  adjustments:      BONUS / DEDUCTION / ADVANCE lines per entry
  payment_status:   Period-independent "accumulated balance paid" flag
  settings:         Key/value documents (rate settings JSON)

MONEY:
  Decimals are stored as TEXT so amounts round-trip exactly.

RECOMPUTATION:
  SaveEntries upserts on (period_id, employee_id) and keeps the existing
  entry id, so regenerating a period never orphans adjustments. Entries of
  employees no longer generated are removed in the same transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection so every query sees the same schema.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/loader.go: EntrySource, implemented by ListPeriodEntries
  - store/memory: in-memory EntrySource for engine tests
  - factory/settings.go: settings document format
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
)

// SettingsKeyRates is the settings row holding the rate document.
const SettingsKeyRates = "rates"

// Store implements the service persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document_id TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		base_salary TEXT NOT NULL,
		start_date TEXT,
		area TEXT NOT NULL,
		bank_name TEXT NOT NULL DEFAULT '',
		bank_account TEXT NOT NULL DEFAULT '',
		account_holder TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		pension_rate TEXT NOT NULL DEFAULT '0',
		health_rate TEXT NOT NULL DEFAULT '0',
		sunday_penalty INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_area ON employees(area);

	CREATE TABLE IF NOT EXISTS payroll_periods (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		start_date TEXT,
		end_date TEXT,
		working_days INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'OPEN',
		processed_at TEXT,
		closed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_year_month
		ON payroll_periods(year, month);
	CREATE INDEX IF NOT EXISTS idx_periods_status
		ON payroll_periods(status);

	CREATE TABLE IF NOT EXISTS attendance (
		period_id TEXT NOT NULL REFERENCES payroll_periods(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		facts_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (period_id, employee_id)
	);

	-- Entries snapshot the employee, so no foreign key on employee_id:
	-- removing a worker from the roster keeps their payroll history.
	CREATE TABLE IF NOT EXISTS payroll_entries (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES payroll_periods(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		area TEXT NOT NULL,
		bank_name TEXT NOT NULL DEFAULT '',
		bank_account TEXT NOT NULL DEFAULT '',
		account_holder TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		base_salary TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		holiday_bonus TEXT NOT NULL,
		bonuses_total TEXT NOT NULL,
		pension_amount TEXT NOT NULL,
		health_amount TEXT NOT NULL,
		breakdown_json TEXT NOT NULL,
		attendance_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_period_employee
		ON payroll_entries(period_id, employee_id);
	CREATE INDEX IF NOT EXISTS idx_entries_employee
		ON payroll_entries(employee_id);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL REFERENCES payroll_entries(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		concept TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_entry ON adjustments(entry_id);

	CREATE TABLE IF NOT EXISTS payment_status (
		employee_id TEXT PRIMARY KEY,
		paid INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

const employeeColumns = `id, name, document_id, position, base_salary, start_date, area,
	bank_name, bank_account, account_holder, phone, pension_rate, health_rate,
	sunday_penalty, active`

// SaveEmployee inserts or updates a roster record.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (` + employeeColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			document_id = excluded.document_id,
			position = excluded.position,
			base_salary = excluded.base_salary,
			start_date = excluded.start_date,
			area = excluded.area,
			bank_name = excluded.bank_name,
			bank_account = excluded.bank_account,
			account_holder = excluded.account_holder,
			phone = excluded.phone,
			pension_rate = excluded.pension_rate,
			health_rate = excluded.health_rate,
			sunday_penalty = excluded.sunday_penalty,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	now := nowString()
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.DocumentID, emp.Position,
		emp.BaseSalary.String(),
		nullString(generic.FormatPtr(emp.StartDate)),
		string(emp.Area),
		emp.BankName, emp.BankAccount, emp.AccountHolder, emp.Phone,
		emp.PensionRate.String(), emp.HealthRate.String(),
		emp.SundayPenalty, emp.Active,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", emp.ID, err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	emp, err := scanEmployee(rows)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns the roster ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []payroll.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// Roster returns every employee keyed by id.
func (s *Store) Roster(ctx context.Context) (map[payroll.EmployeeID]payroll.Employee, error) {
	employees, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	roster := make(map[payroll.EmployeeID]payroll.Employee, len(employees))
	for _, e := range employees {
		roster[e.ID] = e
	}
	return roster, nil
}

// DeleteEmployee removes an employee from the roster. Computed entries are kept.
func (s *Store) DeleteEmployee(ctx context.Context, id payroll.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "employee", string(id))
}

func scanEmployee(rows *sql.Rows) (payroll.Employee, error) {
	var (
		emp                     payroll.Employee
		salary, pension, health string
		startDate               sql.NullString
		area                    string
		sundayPenalty, active   bool
	)
	if err := rows.Scan(
		&emp.ID, &emp.Name, &emp.DocumentID, &emp.Position, &salary, &startDate, &area,
		&emp.BankName, &emp.BankAccount, &emp.AccountHolder, &emp.Phone,
		&pension, &health, &sundayPenalty, &active,
	); err != nil {
		return emp, err
	}

	emp.BaseSalary = generic.MustParseDecimal(salary)
	emp.PensionRate = generic.MustParseDecimal(pension)
	emp.HealthRate = generic.MustParseDecimal(health)
	emp.Area = payroll.ParseArea(area)
	emp.SundayPenalty = sundayPenalty
	emp.Active = active
	if startDate.Valid {
		d, err := generic.ParseDatePtr(startDate.String)
		if err != nil {
			return emp, fmt.Errorf("employee %s: bad start date: %w", emp.ID, err)
		}
		emp.StartDate = d
	}
	return emp, nil
}

// =============================================================================
// PERIOD STORE
// =============================================================================

const periodColumns = "id, year, month, start_date, end_date, working_days, status"

// CreatePeriod inserts a new period. A period for the same month fails with
// generic.ErrDuplicate.
func (s *Store) CreatePeriod(ctx context.Context, p payroll.PayrollPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := p.Status
	if status == "" {
		status = payroll.StatusOpen
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_periods (`+periodColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Year, p.Month,
		nullString(generic.FormatPtr(p.StartDate)),
		nullString(generic.FormatPtr(p.EndDate)),
		p.WorkingDays, string(status), nowString(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("period %s: %w", p.ID, generic.ErrDuplicate)
		}
		return fmt.Errorf("failed to create period: %w", err)
	}
	return nil
}

// GetPeriod retrieves a period by ID.
func (s *Store) GetPeriod(ctx context.Context, id payroll.PeriodID) (*payroll.PayrollPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPeriod(ctx, s.db, id)
}

func getPeriod(ctx context.Context, db execer, id payroll.PeriodID) (*payroll.PayrollPeriod, error) {
	periods, err := queryPeriods(ctx, db,
		"SELECT "+periodColumns+" FROM payroll_periods WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, &generic.NotFoundError{Kind: "period", ID: string(id)}
	}
	return &periods[0], nil
}

// ListPeriods returns all periods in chronological order.
func (s *Store) ListPeriods(ctx context.Context) ([]payroll.PayrollPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPeriods(ctx, s.db,
		"SELECT "+periodColumns+" FROM payroll_periods ORDER BY year, month, id")
}

// GetPeriods loads the named periods. Any unknown id fails the whole call.
func (s *Store) GetPeriods(ctx context.Context, ids []payroll.PeriodID) ([]payroll.PayrollPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]payroll.PayrollPeriod, 0, len(ids))
	for _, id := range ids {
		p, err := getPeriod(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// ListPeriodsByStatus returns periods in the given status, oldest first.
func (s *Store) ListPeriodsByStatus(ctx context.Context, status payroll.PeriodStatus) ([]payroll.PayrollPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPeriods(ctx, s.db,
		"SELECT "+periodColumns+" FROM payroll_periods WHERE status = ? ORDER BY year, month, id",
		string(status))
}

// UpdatePeriodStatus moves a period to a new status.
func (s *Store) UpdatePeriodStatus(ctx context.Context, id payroll.PeriodID, status payroll.PeriodStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePeriodStatus(ctx, s.db, id, status)
}

func updatePeriodStatus(ctx context.Context, db execer, id payroll.PeriodID, status payroll.PeriodStatus) error {
	query := "UPDATE payroll_periods SET status = ? WHERE id = ?"
	args := []any{string(status), id}
	switch status {
	case payroll.StatusProcessed:
		query = "UPDATE payroll_periods SET status = ?, processed_at = ? WHERE id = ?"
		args = []any{string(status), nowString(), id}
	case payroll.StatusClosed:
		query = "UPDATE payroll_periods SET status = ?, closed_at = ? WHERE id = ?"
		args = []any{string(status), nowString(), id}
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update period status: %w", err)
	}
	return requireAffected(res, "period", string(id))
}

func queryPeriods(ctx context.Context, db execer, query string, args ...any) ([]payroll.PayrollPeriod, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := []payroll.PayrollPeriod{}
	for rows.Next() {
		var (
			p          payroll.PayrollPeriod
			start, end sql.NullString
			status     string
		)
		if err := rows.Scan(&p.ID, &p.Year, &p.Month, &start, &end, &p.WorkingDays, &status); err != nil {
			return nil, err
		}
		p.Status = payroll.PeriodStatus(status)
		if start.Valid {
			if p.StartDate, err = generic.ParseDatePtr(start.String); err != nil {
				return nil, fmt.Errorf("period %s: bad start date: %w", p.ID, err)
			}
		}
		if end.Valid {
			if p.EndDate, err = generic.ParseDatePtr(end.String); err != nil {
				return nil, fmt.Errorf("period %s: bad end date: %w", p.ID, err)
			}
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

// SaveAttendance records the facts of one employee in one period.
func (s *Store) SaveAttendance(ctx context.Context, periodID payroll.PeriodID, employeeID payroll.EmployeeID, facts payroll.AttendanceFacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(facts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attendance (period_id, employee_id, facts_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(period_id, employee_id) DO UPDATE SET
			facts_json = excluded.facts_json,
			updated_at = excluded.updated_at`,
		periodID, employeeID, string(data), nowString(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("attendance for %s/%s: %w", periodID, employeeID, generic.ErrNotFound)
		}
		return fmt.Errorf("failed to save attendance: %w", err)
	}
	return nil
}

// ListAttendance returns the recorded facts of a period keyed by employee.
func (s *Store) ListAttendance(ctx context.Context, periodID payroll.PeriodID) (map[payroll.EmployeeID]payroll.AttendanceFacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, facts_json FROM attendance WHERE period_id = ?", periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[payroll.EmployeeID]payroll.AttendanceFacts)
	for rows.Next() {
		var (
			id    payroll.EmployeeID
			data  string
			facts payroll.AttendanceFacts
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &facts); err != nil {
			return nil, fmt.Errorf("attendance %s/%s: %w", periodID, id, err)
		}
		out[id] = facts
	}
	return out, rows.Err()
}

// =============================================================================
// ENTRY STORE
// =============================================================================

const entryColumns = `id, period_id, employee_id, employee_name, area,
	bank_name, bank_account, account_holder, phone,
	base_salary, net_pay, holiday_bonus, bonuses_total, pension_amount, health_amount,
	breakdown_json, attendance_json`

// SaveEntries replaces a period's entries and marks the period PROCESSED in one
// transaction. An entry whose (period, employee) already exists keeps the
// stored id; the returned slice carries the ids actually persisted. Entries
// of employees missing from the new set are deleted with their adjustments.
func (s *Store) SaveEntries(ctx context.Context, periodID payroll.PeriodID, entries []payroll.PayrollEntry) ([]payroll.PayrollEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved := make([]payroll.PayrollEntry, 0, len(entries))
	for _, e := range entries {
		e.PeriodID = periodID
		persisted, err := upsertEntry(ctx, tx, e)
		if err != nil {
			return nil, err
		}
		saved = append(saved, persisted)
	}
	if err := deleteStaleEntries(ctx, tx, periodID, entries); err != nil {
		return nil, err
	}
	if err := updatePeriodStatus(ctx, tx, periodID, payroll.StatusProcessed); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}

func deleteStaleEntries(ctx context.Context, db execer, periodID payroll.PeriodID, keep []payroll.PayrollEntry) error {
	query := "DELETE FROM payroll_entries WHERE period_id = ?"
	args := []any{periodID}
	if len(keep) > 0 {
		marks := make([]string, len(keep))
		for i, e := range keep {
			marks[i] = "?"
			args = append(args, e.EmployeeID)
		}
		query += " AND employee_id NOT IN (" + strings.Join(marks, ", ") + ")"
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete stale entries of %s: %w", periodID, err)
	}
	return nil
}

func upsertEntry(ctx context.Context, db execer, e payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	breakdown, err := json.Marshal(e.Breakdown)
	if err != nil {
		return e, err
	}
	attendance, err := json.Marshal(e.Attendance)
	if err != nil {
		return e, err
	}

	now := nowString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO payroll_entries (`+entryColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_id, employee_id) DO UPDATE SET
			employee_name = excluded.employee_name,
			area = excluded.area,
			bank_name = excluded.bank_name,
			bank_account = excluded.bank_account,
			account_holder = excluded.account_holder,
			phone = excluded.phone,
			base_salary = excluded.base_salary,
			net_pay = excluded.net_pay,
			holiday_bonus = excluded.holiday_bonus,
			bonuses_total = excluded.bonuses_total,
			pension_amount = excluded.pension_amount,
			health_amount = excluded.health_amount,
			breakdown_json = excluded.breakdown_json,
			attendance_json = excluded.attendance_json,
			updated_at = excluded.updated_at`,
		e.ID, e.PeriodID, e.EmployeeID, e.EmployeeName, string(e.Area),
		e.BankName, e.BankAccount, e.AccountHolder, e.Phone,
		e.BaseSalary.String(), e.NetPay.String(), e.HolidayBonus.String(),
		e.BonusesTotal.String(), e.PensionAmount.String(), e.HealthAmount.String(),
		string(breakdown), string(attendance),
		now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return e, fmt.Errorf("entry %s: %w", e.ID, generic.ErrDuplicate)
		}
		return e, fmt.Errorf("failed to save entry: %w", err)
	}

	if err := db.QueryRowContext(ctx,
		"SELECT id FROM payroll_entries WHERE period_id = ? AND employee_id = ?",
		e.PeriodID, e.EmployeeID,
	).Scan(&e.ID); err != nil {
		return e, err
	}
	return e, nil
}

// GetEntry retrieves an entry with its adjustments.
func (s *Store) GetEntry(ctx context.Context, id payroll.EntryID) (*payroll.PayrollEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM payroll_entries WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &generic.NotFoundError{Kind: "entry", ID: string(id)}
	}
	return &entries[0], nil
}

// ListPeriodEntries returns a period's entries ordered by employee id. It
// implements payroll.EntrySource.
func (s *Store) ListPeriodEntries(ctx context.Context, periodID payroll.PeriodID) ([]payroll.PayrollEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM payroll_entries WHERE period_id = ? ORDER BY employee_id",
		periodID)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]payroll.PayrollEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	entries := []payroll.PayrollEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range entries {
		adjs, err := listAdjustments(ctx, s.db, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Adjustments = adjs
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (payroll.PayrollEntry, error) {
	var (
		e                                    payroll.PayrollEntry
		area                                 string
		base, net, holiday, bonuses, pension string
		health, breakdown, attendance        string
	)
	if err := rows.Scan(
		&e.ID, &e.PeriodID, &e.EmployeeID, &e.EmployeeName, &area,
		&e.BankName, &e.BankAccount, &e.AccountHolder, &e.Phone,
		&base, &net, &holiday, &bonuses, &pension, &health,
		&breakdown, &attendance,
	); err != nil {
		return e, err
	}

	e.Area = payroll.Area(area)
	e.BaseSalary = generic.MustParseDecimal(base)
	e.NetPay = generic.MustParseDecimal(net)
	e.HolidayBonus = generic.MustParseDecimal(holiday)
	e.BonusesTotal = generic.MustParseDecimal(bonuses)
	e.PensionAmount = generic.MustParseDecimal(pension)
	e.HealthAmount = generic.MustParseDecimal(health)
	if err := json.Unmarshal([]byte(breakdown), &e.Breakdown); err != nil {
		return e, fmt.Errorf("entry %s: bad breakdown: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(attendance), &e.Attendance); err != nil {
		return e, fmt.Errorf("entry %s: bad attendance: %w", e.ID, err)
	}
	return e, nil
}

// =============================================================================
// ADJUSTMENT STORE
// =============================================================================

// AddAdjustment appends a manual line to an existing entry.
func (s *Store) AddAdjustment(ctx context.Context, a payroll.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAdjustment(ctx, s.db, a)
}

// AddAdjustmentAndSaveEntry inserts a manual line and saves the entry
// recomputed with it in one transaction. Neither is written when either fails.
func (s *Store) AddAdjustmentAndSaveEntry(ctx context.Context, a payroll.Adjustment, e payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	return s.withEntryTx(ctx, e, func(tx *sql.Tx) error {
		return insertAdjustment(ctx, tx, a)
	})
}

// DeleteAdjustmentAndSaveEntry removes a manual line and saves the entry
// recomputed without it in one transaction.
func (s *Store) DeleteAdjustmentAndSaveEntry(ctx context.Context, id payroll.AdjustmentID, e payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	return s.withEntryTx(ctx, e, func(tx *sql.Tx) error {
		return deleteAdjustment(ctx, tx, id)
	})
}

func (s *Store) withEntryTx(ctx context.Context, e payroll.PayrollEntry, change func(tx *sql.Tx) error) (payroll.PayrollEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return e, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := change(tx); err != nil {
		return e, err
	}
	saved, err := upsertEntry(ctx, tx, e)
	if err != nil {
		return e, err
	}
	if err := tx.Commit(); err != nil {
		return e, err
	}
	return saved, nil
}

func insertAdjustment(ctx context.Context, db execer, a payroll.Adjustment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO adjustments (id, entry_id, type, concept, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.EntryID, string(a.Type), a.Concept, a.Amount.String(), nowString(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("adjustment %s: %w", a.ID, generic.ErrDuplicate)
		}
		if isForeignKeyError(err) {
			return &generic.NotFoundError{Kind: "entry", ID: string(a.EntryID)}
		}
		return fmt.Errorf("failed to add adjustment: %w", err)
	}
	return nil
}

// GetAdjustment retrieves one adjustment.
func (s *Store) GetAdjustment(ctx context.Context, id payroll.AdjustmentID) (*payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		a      payroll.Adjustment
		typ    string
		amount string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, entry_id, type, concept, amount FROM adjustments WHERE id = ?", id,
	).Scan(&a.ID, &a.EntryID, &typ, &a.Concept, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "adjustment", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	a.Type = payroll.AdjustmentType(typ)
	a.Amount = generic.MustParseDecimal(amount)
	return &a, nil
}

// DeleteAdjustment removes an adjustment.
func (s *Store) DeleteAdjustment(ctx context.Context, id payroll.AdjustmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteAdjustment(ctx, s.db, id)
}

func deleteAdjustment(ctx context.Context, db execer, id payroll.AdjustmentID) error {
	res, err := db.ExecContext(ctx, "DELETE FROM adjustments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "adjustment", string(id))
}

// ListAdjustments returns an entry's adjustments in creation order.
func (s *Store) ListAdjustments(ctx context.Context, entryID payroll.EntryID) ([]payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAdjustments(ctx, s.db, entryID)
}

func listAdjustments(ctx context.Context, db execer, entryID payroll.EntryID) ([]payroll.Adjustment, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, entry_id, type, concept, amount FROM adjustments WHERE entry_id = ? ORDER BY created_at, id",
		entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	adjs := []payroll.Adjustment{}
	for rows.Next() {
		var (
			a      payroll.Adjustment
			typ    string
			amount string
		)
		if err := rows.Scan(&a.ID, &a.EntryID, &typ, &a.Concept, &amount); err != nil {
			return nil, err
		}
		a.Type = payroll.AdjustmentType(typ)
		a.Amount = generic.MustParseDecimal(amount)
		adjs = append(adjs, a)
	}
	return adjs, rows.Err()
}

// =============================================================================
// PAYMENT STATUS
// =============================================================================

// SetPaymentStatus records whether an employee's accumulated balance was paid.
func (s *Store) SetPaymentStatus(ctx context.Context, employeeID payroll.EmployeeID, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_status (employee_id, paid, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			paid = excluded.paid,
			updated_at = excluded.updated_at`,
		employeeID, paid, nowString(),
	)
	return err
}

// PaymentStatus returns the full payment status map. Employees without a row
// are absent (treated as pending).
func (s *Store) PaymentStatus(ctx context.Context) (payroll.PaymentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT employee_id, paid FROM payment_status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	status := payroll.PaymentStatus{}
	for rows.Next() {
		var (
			id   payroll.EmployeeID
			paid bool
		)
		if err := rows.Scan(&id, &paid); err != nil {
			return nil, err
		}
		status[id] = paid
	}
	return status, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSetting returns a settings document, or "" when it was never saved.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SaveSetting stores a settings document.
func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, nowString(),
	)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"adjustments", "payroll_entries", "attendance", "payroll_periods",
		"payment_status", "employees", "settings",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowString() string {
	return time.Now().UTC().Format(timestampLayout)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

var _ payroll.EntrySource = (*Store)(nil)
