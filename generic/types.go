/*
Package generic provides the domain-agnostic primitives of the payroll engine.

PURPOSE:
  Calendar dates and windows, day/hour quantities and money. Nothing here
  knows about employees, periods or deductions; the payroll package builds
  its proration rules on top of these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity normalization: day/hour figures drift after repeated
    conversions (6.999999 days). NormalizeQuantity snaps them back.
  - Finite: NaN/Inf inputs are treated as 0, never as errors.

DESIGN PRINCIPLES:
  1. Quantities are float64, money is decimal.Decimal
  2. Silent numeric fallback: bad numbers become 0
  3. Every function is pure

SEE ALSO:
  - time.go: Date type
  - period.go: inclusive date windows
  - money.go: decimal helpers
  - payroll/units.go: hours-per-day resolution and display
*/
package generic

import "math"

// =============================================================================
// QUANTITY - Days and hours as float64
// =============================================================================

// DefaultEpsilon is the tolerance used to snap near-integer quantities.
const DefaultEpsilon = 0.01

// Finite returns x, or 0 when x is NaN or infinite.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// NonNegative returns the finite value of x clamped at 0.
func NonNegative(x float64) float64 {
	return math.Max(Finite(x), 0)
}

// NormalizeQuantity snaps x to the nearest integer when within DefaultEpsilon.
func NormalizeQuantity(x float64) float64 {
	return NormalizeQuantityEps(x, DefaultEpsilon)
}

// NormalizeQuantityEps snaps x to 0 when |x| < eps, to its nearest integer when
// within eps of it, and leaves it unchanged otherwise. Non-finite input gives 0.
// A non-positive eps falls back to DefaultEpsilon.
func NormalizeQuantityEps(x, eps float64) float64 {
	x = Finite(x)
	if eps <= 0 || math.IsNaN(eps) {
		eps = DefaultEpsilon
	}
	if math.Abs(x) < eps {
		return 0
	}
	n := math.Round(x)
	if math.Abs(x-n) <= eps {
		return n
	}
	return x
}
