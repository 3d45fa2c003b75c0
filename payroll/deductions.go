package payroll

import (
	"github.com/obrasur/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DEDUCTION BREAKDOWN - Four independent components
// =============================================================================

// DeductionBreakdown is the single resolved view of what was withheld from an
// entry. Manual never includes advances; Advances is reported alongside.
type DeductionBreakdown struct {
	Absence    decimal.Decimal `json:"absence"`
	Permission decimal.Decimal `json:"permission"`
	Tardiness  decimal.Decimal `json:"tardiness"`
	Manual     decimal.Decimal `json:"manual"`
	Advances   decimal.Decimal `json:"advances"`
}

// Total is the sum of the four components, never negative.
func (d DeductionBreakdown) Total() decimal.Decimal {
	return generic.ClampZero(generic.Sum(d.Absence, d.Permission, d.Tardiness, d.Manual))
}

// ResolveManualAdvances returns the advances disbursed against an entry.
//
// Resolution order:
//  1. Breakdown.ManualAdvances when recorded
//  2. the sum of ADVANCE adjustments
func ResolveManualAdvances(entry PayrollEntry) decimal.Decimal {
	if entry.Breakdown.ManualAdvances != nil {
		return generic.ClampZero(*entry.Breakdown.ManualAdvances)
	}
	return SumAdjustments(entry.Adjustments, AdjustmentAdvance)
}

// SumAdjustments adds the non-negative amounts of adjustments of type t.
func SumAdjustments(adjs []Adjustment, t AdjustmentType) decimal.Decimal {
	total := decimal.Zero
	for _, a := range adjs {
		if a.Type == t {
			total = total.Add(generic.ClampZero(a.Amount))
		}
	}
	return total
}

// ResolveDeductions decomposes an entry's breakdown. Negative inputs count as 0;
// manual = max(0, manualDeductions - advances).
func ResolveDeductions(entry PayrollEntry) DeductionBreakdown {
	b := entry.Breakdown
	advances := ResolveManualAdvances(entry)
	return DeductionBreakdown{
		Absence:    generic.ClampZero(b.AbsenceDeduction),
		Permission: generic.ClampZero(b.PermissionDeduction),
		Tardiness:  generic.ClampZero(b.TardinessDeduction),
		Manual:     generic.ClampZero(generic.ClampZero(b.ManualDeductions).Sub(advances)),
		Advances:   advances,
	}
}

// TotalDeductions is max(absence + permission + tardiness + manual, 0).
func TotalDeductions(entry PayrollEntry) decimal.Decimal {
	return ResolveDeductions(entry).Total()
}

// ResolveActualDeductions is the figure reported as "deductions" on payslips,
// area reports and accumulation rows. Advances are excluded.
func ResolveActualDeductions(entry PayrollEntry) decimal.Decimal {
	return TotalDeductions(entry)
}
