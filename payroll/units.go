package payroll

import (
	"math"
	"strconv"
	"strings"

	"github.com/obrasur/payroll-engine/generic"
)

// =============================================================================
// UNIT NORMALIZER - Days <-> hours
// =============================================================================

const (
	DefaultHoursPerDay = 8.0
	MinHoursPerDay     = 4.0
	MaxHoursPerDay     = 24.0
)

// HoursPerDay derives the day/hour conversion factor from the breakdown rates.
// When both rates are positive the ratio daily/hourly is used, normalized and
// clamped to [MinHoursPerDay, MaxHoursPerDay]; otherwise DefaultHoursPerDay.
func HoursPerDay(b Breakdown) float64 {
	daily := generic.Float(b.DailyRate)
	hourly := generic.Float(b.HourlyRate)
	if daily <= 0 || hourly <= 0 {
		return DefaultHoursPerDay
	}
	ratio := generic.NormalizeQuantity(daily / hourly)
	if ratio <= 0 {
		return DefaultHoursPerDay
	}
	return math.Min(math.Max(ratio, MinHoursPerDay), MaxHoursPerDay)
}

// SplitDaysHours splits a day quantity into whole days and a sub-day hour
// remainder. A remainder reaching a full day rolls into the day count.
func SplitDaysHours(days, hoursPerDay float64) (whole, hours float64) {
	if hoursPerDay <= 0 || math.IsNaN(hoursPerDay) {
		hoursPerDay = DefaultHoursPerDay
	}
	days = generic.NormalizeQuantity(generic.NonNegative(days))
	whole = math.Floor(days)
	hours = generic.NormalizeQuantity((days - whole) * hoursPerDay)
	if hours >= hoursPerDay {
		whole++
		hours = generic.NormalizeQuantity(hours - hoursPerDay)
	}
	return whole, hours
}

// FormatDaysHours renders a day quantity for display: "7 días", "1 día",
// "2 días 4 h", "4 h", "0 días".
func FormatDaysHours(days, hoursPerDay float64) string {
	whole, hours := SplitDaysHours(days, hoursPerDay)
	var parts []string
	switch {
	case whole == 1:
		parts = append(parts, "1 día")
	case whole > 1:
		parts = append(parts, FormatQuantity(whole)+" días")
	}
	if hours > 0 {
		parts = append(parts, FormatQuantity(hours)+" h")
	}
	if len(parts) == 0 {
		return "0 días"
	}
	return strings.Join(parts, " ")
}

// FormatQuantity prints a normalized quantity with at most two decimals and
// no trailing zeros.
func FormatQuantity(x float64) string {
	x = generic.NormalizeQuantity(x)
	return strconv.FormatFloat(math.Round(x*100)/100, 'f', -1, 64)
}
