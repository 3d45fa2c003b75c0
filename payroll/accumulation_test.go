package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/obrasur/payroll-engine/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func february() payroll.PayrollPeriod {
	return payroll.PayrollPeriod{
		ID:          "2025-02",
		Month:       2,
		Year:        2025,
		StartDate:   date(2025, time.February, 1),
		EndDate:     date(2025, time.February, 28),
		WorkingDays: 30,
		Status:      payroll.StatusProcessed,
	}
}

func entry(period payroll.PeriodID, emp payroll.EmployeeID, net string) payroll.PayrollEntry {
	return payroll.PayrollEntry{
		ID:         payroll.EntryID(string(period) + "-" + string(emp)),
		PeriodID:   period,
		EmployeeID: emp,
		BaseSalary: money(net),
		NetPay:     money(net),
	}
}

// twoPeriodFixture: e1 (OPERATIVE) and e2 (ADMINISTRATIVE) across Jan and Feb.
func twoPeriodFixture() payroll.AccumulationInput {
	jan1 := entry("2025-01", "e1", "1000")
	jan1.Breakdown.ManualDeductions = money("150")
	jan1.Breakdown.ManualAdvances = moneyPtr("100")
	jan1.Breakdown.AbsenceDeduction = money("20")

	jan2 := entry("2025-01", "e2", "2000")
	jan2.HolidayBonus = money("50")
	jan2.BankName = "BCP"

	feb1 := entry("2025-02", "e1", "1100")
	feb1.BankName = "Interbank"
	feb1.BankAccount = "123-456"
	feb1.Breakdown.OvertimeBonus = money("30")

	feb2 := entry("2025-02", "e2", "2000")
	feb2.BankName = "Scotiabank"

	return payroll.AccumulationInput{
		// deliberately out of order
		Periods: []payroll.PayrollPeriod{february(), january(30)},
		Entries: map[payroll.PeriodID][]payroll.PayrollEntry{
			"2025-01": {jan1, jan2},
			"2025-02": {feb1, feb2},
		},
		Roster: []payroll.Employee{
			{ID: "e1", Name: "Ana Quispe", Area: payroll.AreaOperative, AccountHolder: "Ana Quispe", BankName: "Roster Bank"},
			{ID: "e2", Name: "Luis Rojas", Area: payroll.AreaAdministrative},
		},
		Status: payroll.PaymentStatus{"e2": true},
	}
}

func rowOf(t *testing.T, s payroll.AccumulationSummary, id payroll.EmployeeID) payroll.AccumulationRow {
	t.Helper()
	for _, r := range s.Rows {
		if r.EmployeeID == id {
			return r
		}
	}
	t.Fatalf("row %s not found", id)
	return payroll.AccumulationRow{}
}

// =============================================================================
// READINESS
// =============================================================================

func TestAccumulate_MissingPeriod_NotReady(t *testing.T) {
	// GIVEN: Two selected periods, only one fetched
	// WHEN: Accumulating
	// THEN: ready == false, rows empty, no partial sum

	in := twoPeriodFixture()
	delete(in.Entries, "2025-02")

	summary, err := payroll.Accumulate(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrAccumulationNotReady))
	assert.True(t, payroll.IsNotReady(err))

	var notReady *payroll.NotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, []payroll.PeriodID{"2025-02"}, notReady.Missing)

	assert.False(t, summary.Ready)
	assert.Empty(t, summary.Rows)
	assert.NotNil(t, summary.Rows)
	assert.Nil(t, summary.Areas)
	assert.Equal(t, []payroll.PeriodID{"2025-02"}, summary.Missing)
}

func TestAccumulate_FetchedEmptyPeriod_ContributesZero(t *testing.T) {
	// GIVEN: February was fetched and has no entries (nobody was active)
	// WHEN: Accumulating January and February
	// THEN: Ready, February columns are zero, January totals are unchanged

	in := twoPeriodFixture()
	janOnly, err := payroll.Accumulate(payroll.AccumulationInput{
		Periods: []payroll.PayrollPeriod{january(30)}, Entries: in.Entries, Roster: in.Roster, Status: in.Status,
	})
	require.NoError(t, err)

	in.Entries["2025-02"] = []payroll.PayrollEntry{}
	summary, err := payroll.Accumulate(in)
	require.NoError(t, err)
	assert.True(t, summary.Ready)
	assert.Empty(t, summary.Missing)
	require.Len(t, summary.Periods, 2)
	for _, row := range summary.Rows {
		assertMoney(t, "0", row.Net[1])
		assertMoney(t, "0", row.Paid[1])
	}
	assertMoney(t, janOnly.Areas[payroll.AreaAll].TotalNet.String(), summary.Areas[payroll.AreaAll].TotalNet)
}

func TestAccumulate_TooManyPeriods(t *testing.T) {
	var periods []payroll.PayrollPeriod
	for m := 1; m <= 7; m++ {
		periods = append(periods, payroll.PayrollPeriod{ID: payroll.PeriodID(fmt.Sprintf("p%d", m)), Month: m, Year: 2025})
	}
	_, err := payroll.Accumulate(payroll.AccumulationInput{Periods: periods})
	assert.ErrorIs(t, err, payroll.ErrTooManyPeriods)

	_, err = payroll.Accumulate(payroll.AccumulationInput{Periods: periods, MaxPeriods: 12})
	assert.ErrorIs(t, err, payroll.ErrAccumulationNotReady, "limit raised, entries still missing")
}

func TestAccumulate_NoPeriods(t *testing.T) {
	_, err := payroll.Accumulate(payroll.AccumulationInput{})
	assert.ErrorIs(t, err, payroll.ErrNoPeriods)
}

// =============================================================================
// ROLLUP
// =============================================================================

func TestAccumulate_PerEmployeeRows(t *testing.T) {
	summary, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)
	require.True(t, summary.Ready)

	// periods sorted chronologically
	require.Len(t, summary.Periods, 2)
	assert.Equal(t, payroll.PeriodID("2025-01"), summary.Periods[0].ID)
	assert.Equal(t, payroll.PeriodID("2025-02"), summary.Periods[1].ID)

	// OPERATIVE first
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, payroll.EmployeeID("e1"), summary.Rows[0].EmployeeID)

	e1 := rowOf(t, summary, "e1")
	assert.Equal(t, "Ana Quispe", e1.Name)
	assertMoney(t, "1000", e1.Net[0])
	assertMoney(t, "1100", e1.Net[1])
	assertMoney(t, "1100", e1.Paid[0], "net + advance")
	assertMoney(t, "1100", e1.Paid[1])
	assertMoney(t, "70", e1.Deductions[0], "absence 20 + manual (150 - 100)")
	assertMoney(t, "0", e1.Deductions[1])
	assertMoney(t, "2100", e1.TotalNet)
	assertMoney(t, "2200", e1.TotalPaid)
	assertMoney(t, "70", e1.TotalDeductions)
	assertMoney(t, "100", e1.TotalAdvances)
	assert.False(t, e1.PaymentConfirmed)

	e2 := rowOf(t, summary, "e2")
	assert.Equal(t, payroll.AreaAdministrative, e2.Area)
	assertMoney(t, "4000", e2.TotalNet)
	assert.True(t, e2.PaymentConfirmed)
}

func TestAccumulate_BankFieldsFirstNonEmptyThenRoster(t *testing.T) {
	summary, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)

	e1 := rowOf(t, summary, "e1")
	assert.Equal(t, "Interbank", e1.BankName, "Jan was empty, Feb filled it")
	assert.Equal(t, "123-456", e1.BankAccount)
	assert.Equal(t, "Ana Quispe", e1.AccountHolder, "only the roster had it")

	e2 := rowOf(t, summary, "e2")
	assert.Equal(t, "BCP", e2.BankName, "earliest period wins")
}

func TestAccumulate_AreaTotalsWithAllBucket(t *testing.T) {
	summary, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)

	op := summary.Areas[payroll.AreaOperative]
	adm := summary.Areas[payroll.AreaAdministrative]
	all := summary.Areas[payroll.AreaAll]

	assertMoney(t, "2100", op.TotalNet)
	assertMoney(t, "4000", adm.TotalNet)
	assertMoney(t, "6100", all.TotalNet)
	assertMoney(t, "6200", all.TotalPaid)
	assertMoney(t, "3000", all.Net[0])
	assertMoney(t, "3100", all.Net[1])
	assert.Equal(t, 2, all.Employees)

	// ALL equals the unfiltered sum of the real areas
	assert.True(t, all.TotalNet.Equal(op.TotalNet.Add(adm.TotalNet)))
	assert.True(t, all.TotalDeductions.Equal(op.TotalDeductions.Add(adm.TotalDeductions)))
}

func TestAccumulate_PaymentStatusSplit(t *testing.T) {
	summary, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)

	all := summary.Areas[payroll.AreaAll]
	assertMoney(t, "4000", all.NetByStatus.Confirmed)
	assertMoney(t, "2100", all.NetByStatus.Pending)
	assertMoney(t, "2200", all.PaidByStatus.Pending)
	assert.Equal(t, 1, all.ConfirmedEmployees)
	assert.Equal(t, 1, all.PendingEmployees)

	require.Len(t, summary.Pending(), 1)
	assert.Equal(t, payroll.EmployeeID("e1"), summary.Pending()[0].EmployeeID)
	require.Len(t, summary.Confirmed(), 1)

	// flipping the status moves the totals without changing the amounts
	in := twoPeriodFixture()
	in.Status = payroll.PaymentStatus{"e1": true, "e2": true}
	flipped, err := payroll.Accumulate(in)
	require.NoError(t, err)
	allFlipped := flipped.Areas[payroll.AreaAll]
	assertMoney(t, "6100", allFlipped.NetByStatus.Confirmed)
	assertMoney(t, "0", allFlipped.NetByStatus.Pending)
	assert.True(t, allFlipped.TotalNet.Equal(all.TotalNet))
}

func TestAccumulate_ExtrasRollup(t *testing.T) {
	summary, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)

	x := summary.Extras
	assertMoney(t, "100", x.Total.Advances)
	assertMoney(t, "50", x.Total.Holiday)
	assertMoney(t, "30", x.Total.Overtime)
	assertMoney(t, "180", x.Total.Total())

	require.Len(t, x.ByPeriod, 2)
	assertMoney(t, "100", x.ByPeriod[0].Advances)
	assertMoney(t, "50", x.ByPeriod[0].Holiday)
	assertMoney(t, "30", x.ByPeriod[1].Overtime)

	assertMoney(t, "50", x.ByArea[payroll.AreaAdministrative].Holiday)
	assertMoney(t, "100", x.ByArea[payroll.AreaOperative].Advances)
	assertMoney(t, "180", x.ByArea[payroll.AreaAll].Total())
}

func TestAccumulate_UnknownEmployeeDefaultsToOperative(t *testing.T) {
	orphan := entry("2025-01", "ghost", "500")
	orphan.EmployeeName = "Former Worker"
	summary, err := payroll.Accumulate(payroll.AccumulationInput{
		Periods: []payroll.PayrollPeriod{january(30)},
		Entries: map[payroll.PeriodID][]payroll.PayrollEntry{"2025-01": {orphan}},
	})
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, payroll.AreaOperative, summary.Rows[0].Area)
	assert.Equal(t, "Former Worker", summary.Rows[0].Name)
}

func TestAccumulate_Idempotent(t *testing.T) {
	first, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)
	second, err := payroll.Accumulate(twoPeriodFixture())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// =============================================================================
// AREA REPORT
// =============================================================================

func TestSummarizeAreas(t *testing.T) {
	in := twoPeriodFixture()
	var summaries []payroll.EntrySummary
	roster := map[payroll.EmployeeID]payroll.Employee{}
	for _, e := range in.Roster {
		roster[e.ID] = e
	}
	for _, e := range in.Entries["2025-01"] {
		summaries = append(summaries, payroll.Summarize(e, roster[e.EmployeeID], january(30), payroll.SummaryOptions{}))
	}

	rows := payroll.SummarizeAreas(summaries)
	require.Len(t, rows, 3)
	assert.Equal(t, payroll.AreaOperative, rows[0].Area)
	assert.Equal(t, payroll.AreaAdministrative, rows[1].Area)
	assert.Equal(t, payroll.AreaAll, rows[2].Area)
	assertMoney(t, "3000", rows[2].NetPay)
	assertMoney(t, "70", rows[0].ActualDeductions)
	assertMoney(t, "100", rows[0].Advances)
	assert.Equal(t, 2, rows[2].Employees)
}

// =============================================================================
// LOADER
// =============================================================================

type failingSource struct {
	payroll.EntrySource
	fail payroll.PeriodID
}

func (f failingSource) ListPeriodEntries(ctx context.Context, id payroll.PeriodID) ([]payroll.PayrollEntry, error) {
	if id == f.fail {
		return nil, generic.ErrNotFound
	}
	return f.EntrySource.ListPeriodEntries(ctx, id)
}

func TestLoadPeriodEntries_FeedsAccumulate(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	in := twoPeriodFixture()
	for _, list := range in.Entries {
		require.NoError(t, mem.PutBatch(ctx, list))
	}

	loaded, err := payroll.LoadPeriodEntries(ctx, mem, []payroll.PeriodID{"2025-01", "2025-02", "2025-03"}, 2)
	require.NoError(t, err)
	assert.Len(t, loaded["2025-01"], 2)
	assert.Len(t, loaded["2025-02"], 2)
	march, ok := loaded["2025-03"]
	assert.True(t, ok, "fetched periods keep their key")
	assert.Empty(t, march)

	in.Entries = loaded
	summary, err := payroll.Accumulate(in)
	require.NoError(t, err)
	assertMoney(t, "6100", summary.Areas[payroll.AreaAll].TotalNet)
}

func TestLoadPeriodEntries_AnyFailureFailsTheLoad(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	require.NoError(t, mem.Put(ctx, entry("2025-01", "e1", "1000")))

	loaded, err := payroll.LoadPeriodEntries(ctx, failingSource{EntrySource: mem, fail: "2025-02"},
		[]payroll.PeriodID{"2025-01", "2025-02"}, 0)
	assert.ErrorIs(t, err, generic.ErrNotFound)
	assert.Nil(t, loaded)
}
