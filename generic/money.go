package generic

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - decimal.Decimal helpers
// =============================================================================

// MoneyPlaces is the rounding precision for currency amounts.
const MoneyPlaces = 2

// RatePlaces is the precision kept for daily and hourly rates. Rates feed the
// hours-per-day ratio, so they are not rounded to currency.
const RatePlaces = 6

// Money builds an amount from a float, treating non-finite input as 0.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(Finite(v))
}

// MustParseDecimal parses s, returning zero on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds all amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// RoundMoney rounds to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundRate rounds to RatePlaces.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// Float returns the float64 value of d (for display and export only).
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// OptionalDecimal is a decimal that remembers whether it was supplied.
func OptionalDecimal(d decimal.Decimal) *decimal.Decimal {
	return &d
}
