package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/obrasur/payroll-engine/factory"
	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/obrasur/payroll-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPeriod(t *testing.T, store *sqlite.Store, year, month int) payroll.PayrollPeriod {
	t.Helper()
	p, err := factory.NewMonthlyPeriod(year, month, 30)
	require.NoError(t, err)
	require.NoError(t, store.CreatePeriod(context.Background(), p))
	return p
}

func seedEmployee(t *testing.T, store *sqlite.Store, id, name string) payroll.Employee {
	t.Helper()
	start := generic.NewDate(2024, time.June, 3)
	emp := payroll.Employee{
		ID:            payroll.EmployeeID(id),
		Name:          name,
		DocumentID:    "DNI-" + id,
		Position:      "Albañil",
		BaseSalary:    generic.MustParseDecimal("3100.50"),
		StartDate:     &start,
		Area:          payroll.AreaOperative,
		BankName:      "Banco Andino",
		BankAccount:   "001-" + id,
		AccountHolder: name,
		Phone:         "+51 999 000 111",
		PensionRate:   generic.MustParseDecimal("0.10"),
		HealthRate:    generic.MustParseDecimal("0.09"),
		SundayPenalty: true,
		Active:        true,
	}
	require.NoError(t, store.SaveEmployee(context.Background(), emp))
	return emp
}

func TestEmployees_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	emp := seedEmployee(t, store, "e1", "Rosa Quispe")

	got, err := store.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, emp.Name, got.Name)
	assert.True(t, emp.BaseSalary.Equal(got.BaseSalary))
	assert.Equal(t, "2024-06-03", generic.FormatPtr(got.StartDate))
	assert.Equal(t, payroll.AreaOperative, got.Area)
	assert.True(t, got.SundayPenalty)
	assert.True(t, got.Active)
	assert.Equal(t, emp.BankFields(), got.BankFields())

	// Update in place
	emp.Area = payroll.AreaAdministrative
	emp.StartDate = nil
	require.NoError(t, store.SaveEmployee(ctx, emp))
	got, err = store.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, payroll.AreaAdministrative, got.Area)
	assert.Nil(t, got.StartDate)

	list, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteEmployee(ctx, "e1"))
	_, err = store.GetEmployee(ctx, "e1")
	assert.True(t, generic.IsNotFound(err))
	assert.True(t, generic.IsNotFound(store.DeleteEmployee(ctx, "e1")))
}

func TestPeriods_CreateListAndStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	seedPeriod(t, store, 2025, 2)
	seedPeriod(t, store, 2025, 1)

	dup, err := factory.NewMonthlyPeriod(2025, 1, 30)
	require.NoError(t, err)
	assert.ErrorIs(t, store.CreatePeriod(ctx, dup), generic.ErrDuplicate)

	periods, err := store.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, payroll.PeriodID("2025-01"), periods[0].ID, "chronological order")
	assert.Equal(t, "2025-01-31", generic.FormatPtr(periods[0].EndDate))
	assert.Equal(t, payroll.StatusOpen, periods[0].Status)

	require.NoError(t, store.UpdatePeriodStatus(ctx, "2025-01", payroll.StatusClosed))
	closed, err := store.ListPeriodsByStatus(ctx, payroll.StatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, payroll.PeriodID("2025-01"), closed[0].ID)

	assert.True(t, generic.IsNotFound(store.UpdatePeriodStatus(ctx, "2030-01", payroll.StatusClosed)))

	_, err = store.GetPeriods(ctx, []payroll.PeriodID{"2025-01", "1999-01"})
	assert.True(t, generic.IsNotFound(err))
}

func TestAttendance_Upsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedPeriod(t, store, 2025, 3)
	seedEmployee(t, store, "e1", "Rosa Quispe")

	facts := payroll.AttendanceFacts{
		AbsenceDays:  2,
		AbsenceDates: []generic.Date{generic.NewDate(2025, time.March, 4), generic.NewDate(2025, time.March, 6)},
	}
	require.NoError(t, store.SaveAttendance(ctx, "2025-03", "e1", facts))
	facts.OvertimeHours = 6
	require.NoError(t, store.SaveAttendance(ctx, "2025-03", "e1", facts))

	all, err := store.ListAttendance(ctx, "2025-03")
	require.NoError(t, err)
	require.Contains(t, all, payroll.EmployeeID("e1"))
	assert.Equal(t, 6.0, all["e1"].OvertimeHours)
	assert.Len(t, all["e1"].AbsenceDates, 2)

	err = store.SaveAttendance(ctx, "2025-03", "ghost", facts)
	assert.True(t, generic.IsNotFound(err))
}

func TestEntries_UpsertKeepsIDAndAdjustments(t *testing.T) {
	// GIVEN: A computed entry with an adjustment
	// WHEN: The period is regenerated with a fresh entry id
	// THEN: The stored id and its adjustments survive

	store := newStore(t)
	ctx := context.Background()
	period := seedPeriod(t, store, 2025, 3)
	emp := seedEmployee(t, store, "e1", "Rosa Quispe")

	entry := payroll.Calculate(payroll.CalcInput{EntryID: "entry-a", Employee: emp, Period: period})
	saved, err := store.SaveEntries(ctx, period.ID, []payroll.PayrollEntry{entry})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, payroll.EntryID("entry-a"), saved[0].ID)

	require.NoError(t, store.AddAdjustment(ctx, payroll.Adjustment{
		ID: "adj-1", EntryID: "entry-a", Type: payroll.AdjustmentAdvance,
		Concept: "Adelanto quincena", Amount: generic.MustParseDecimal("250"),
	}))

	again := payroll.Calculate(payroll.CalcInput{EntryID: "entry-b", Employee: emp, Period: period})
	saved, err = store.SaveEntries(ctx, period.ID, []payroll.PayrollEntry{again})
	require.NoError(t, err)
	assert.Equal(t, payroll.EntryID("entry-a"), saved[0].ID)

	got, err := store.GetEntry(ctx, "entry-a")
	require.NoError(t, err)
	require.Len(t, got.Adjustments, 1)
	assert.Equal(t, payroll.AdjustmentAdvance, got.Adjustments[0].Type)
	assert.True(t, got.NetPay.Equal(entry.NetPay))
	require.NotNil(t, got.Breakdown.ManualAdvances)
	assert.Equal(t, "2024-06-03", generic.FormatPtr(got.Attendance.StartDate))

	p, err := store.GetPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusProcessed, p.Status)

	_, err = store.GetEntry(ctx, "entry-b")
	assert.True(t, generic.IsNotFound(err))
}

func TestEntries_RegenerationDropsSkippedEmployees(t *testing.T) {
	// GIVEN: A period generated for two workers, one with an adjustment
	// WHEN: It is regenerated for one worker, then for nobody
	// THEN: Entries outside the new set go away with their adjustments

	store := newStore(t)
	ctx := context.Background()
	period := seedPeriod(t, store, 2025, 3)
	stays := seedEmployee(t, store, "e1", "Rosa Quispe")
	leaves := seedEmployee(t, store, "e2", "Luis Mamani")

	_, err := store.SaveEntries(ctx, period.ID, []payroll.PayrollEntry{
		payroll.Calculate(payroll.CalcInput{EntryID: "entry-a", Employee: stays, Period: period}),
		payroll.Calculate(payroll.CalcInput{EntryID: "entry-b", Employee: leaves, Period: period}),
	})
	require.NoError(t, err)
	require.NoError(t, store.AddAdjustment(ctx, payroll.Adjustment{
		ID: "adj-b", EntryID: "entry-b", Type: payroll.AdjustmentBonus, Amount: generic.MustParseDecimal("50"),
	}))

	_, err = store.SaveEntries(ctx, period.ID, []payroll.PayrollEntry{
		payroll.Calculate(payroll.CalcInput{EntryID: "entry-c", Employee: stays, Period: period}),
	})
	require.NoError(t, err)

	entries, err := store.ListPeriodEntries(ctx, period.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, payroll.EntryID("entry-a"), entries[0].ID)
	_, err = store.GetAdjustment(ctx, "adj-b")
	assert.True(t, generic.IsNotFound(err))

	_, err = store.SaveEntries(ctx, period.ID, nil)
	require.NoError(t, err)
	entries, err = store.ListPeriodEntries(ctx, period.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdjustments_SavedWithEntryAtomically(t *testing.T) {
	// GIVEN: A stored entry
	// WHEN: An adjustment is written together with its recomputed entry
	// THEN: Both land on success; neither lands when the entry write fails

	store := newStore(t)
	ctx := context.Background()
	period := seedPeriod(t, store, 2025, 3)
	emp := seedEmployee(t, store, "e1", "Rosa Quispe")
	base := payroll.Calculate(payroll.CalcInput{EntryID: "entry-a", Employee: emp, Period: period})
	_, err := store.SaveEntries(ctx, period.ID, []payroll.PayrollEntry{base})
	require.NoError(t, err)

	bonus := payroll.Adjustment{ID: "adj-1", EntryID: "entry-a", Type: payroll.AdjustmentBonus, Amount: generic.MustParseDecimal("100")}
	withBonus := payroll.Calculate(payroll.CalcInput{
		EntryID: "entry-a", Employee: emp, Period: period, Adjustments: []payroll.Adjustment{bonus},
	})
	saved, err := store.AddAdjustmentAndSaveEntry(ctx, bonus, withBonus)
	require.NoError(t, err)
	assert.Equal(t, payroll.EntryID("entry-a"), saved.ID)

	got, err := store.GetEntry(ctx, "entry-a")
	require.NoError(t, err)
	require.Len(t, got.Adjustments, 1)
	assert.True(t, got.NetPay.Equal(base.NetPay.Add(generic.MustParseDecimal("100"))))

	// An entry for a period that does not exist cannot be written
	second := payroll.Adjustment{ID: "adj-2", EntryID: "entry-a", Type: payroll.AdjustmentBonus, Amount: generic.MustParseDecimal("40")}
	broken := withBonus
	broken.PeriodID = "2030-01"
	_, err = store.AddAdjustmentAndSaveEntry(ctx, second, broken)
	require.Error(t, err)

	_, err = store.GetAdjustment(ctx, "adj-2")
	assert.True(t, generic.IsNotFound(err), "adjustment rolled back")
	got, err = store.GetEntry(ctx, "entry-a")
	require.NoError(t, err)
	assert.Len(t, got.Adjustments, 1)

	saved, err = store.DeleteAdjustmentAndSaveEntry(ctx, "adj-1", base)
	require.NoError(t, err)
	assert.Empty(t, saved.Adjustments)
	got, err = store.GetEntry(ctx, "entry-a")
	require.NoError(t, err)
	assert.Empty(t, got.Adjustments)
	assert.True(t, got.NetPay.Equal(base.NetPay))

	_, err = store.DeleteAdjustmentAndSaveEntry(ctx, "adj-1", base)
	assert.True(t, generic.IsNotFound(err))
}

func TestEntries_ListPeriodEntriesFeedsLoader(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	jan := seedPeriod(t, store, 2025, 1)
	feb := seedPeriod(t, store, 2025, 2)
	a := seedEmployee(t, store, "e2", "Luis Mamani")
	b := seedEmployee(t, store, "e1", "Rosa Quispe")

	_, err := store.SaveEntries(ctx, jan.ID, []payroll.PayrollEntry{
		payroll.Calculate(payroll.CalcInput{EntryID: "j-a", Employee: a, Period: jan}),
		payroll.Calculate(payroll.CalcInput{EntryID: "j-b", Employee: b, Period: jan}),
	})
	require.NoError(t, err)

	entries, err := store.ListPeriodEntries(ctx, jan.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, payroll.EmployeeID("e1"), entries[0].EmployeeID, "ordered by employee id")

	loaded, err := payroll.LoadPeriodEntries(ctx, store, []payroll.PeriodID{jan.ID, feb.ID}, 2)
	require.NoError(t, err)
	assert.Len(t, loaded[jan.ID], 2)
	require.Contains(t, loaded, feb.ID, "an empty period is still fetched")
	assert.Empty(t, loaded[feb.ID])
}

func TestAdjustments_AddGetDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	period := seedPeriod(t, store, 2025, 3)
	emp := seedEmployee(t, store, "e1", "Rosa Quispe")
	_, err := store.SaveEntries(ctx, period.ID, []payroll.PayrollEntry{
		payroll.Calculate(payroll.CalcInput{EntryID: "entry-a", Employee: emp, Period: period}),
	})
	require.NoError(t, err)

	adj := payroll.Adjustment{ID: "adj-1", EntryID: "entry-a", Type: payroll.AdjustmentBonus, Amount: generic.MustParseDecimal("120.40")}
	require.NoError(t, store.AddAdjustment(ctx, adj))
	assert.ErrorIs(t, store.AddAdjustment(ctx, adj), generic.ErrDuplicate)

	orphan := adj
	orphan.ID = "adj-2"
	orphan.EntryID = "nope"
	assert.True(t, generic.IsNotFound(store.AddAdjustment(ctx, orphan)))

	got, err := store.GetAdjustment(ctx, "adj-1")
	require.NoError(t, err)
	assert.Equal(t, "120.4", got.Amount.String())

	require.NoError(t, store.DeleteAdjustment(ctx, "adj-1"))
	assert.True(t, generic.IsNotFound(store.DeleteAdjustment(ctx, "adj-1")))

	list, err := store.ListAdjustments(ctx, "entry-a")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPaymentStatusAndSettings(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPaymentStatus(ctx, "e1", true))
	require.NoError(t, store.SetPaymentStatus(ctx, "e2", false))
	require.NoError(t, store.SetPaymentStatus(ctx, "e2", true))

	status, err := store.PaymentStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, payroll.PaymentStatus{"e1": true, "e2": true}, status)

	doc, err := store.GetSetting(ctx, sqlite.SettingsKeyRates)
	require.NoError(t, err)
	assert.Empty(t, doc)

	require.NoError(t, store.SaveSetting(ctx, sqlite.SettingsKeyRates, `{"base_days":26}`))
	doc, err = store.GetSetting(ctx, sqlite.SettingsKeyRates)
	require.NoError(t, err)
	assert.Equal(t, `{"base_days":26}`, doc)

	require.NoError(t, store.Reset(ctx))
	status, err = store.PaymentStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, status)
}
