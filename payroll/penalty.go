package payroll

import (
	"time"

	"github.com/obrasur/payroll-engine/generic"
)

// =============================================================================
// ABSENCE PENALTY POLICY - Extra days withheld because of weekday absences
// =============================================================================

// PenaltyPolicy decides how many penalty days a set of absence dates costs
// within a period window. Implementations must be pure.
type PenaltyPolicy interface {
	PenaltyDays(absences []generic.Date, window generic.Period) float64
}

// NoPenalty never withholds anything.
type NoPenalty struct{}

func (NoPenalty) PenaltyDays([]generic.Date, generic.Period) float64 { return 0 }

// SundayPenalty withholds the Sunday of every week that has at least one
// weekday absence, counting each week once. A week starts on WeekStart and
// its Sunday must fall inside the window to be withheld.
//
// Example (WeekStart Monday, window Mar 1-31 2025):
//
//	absences Mar 4 (Tue), Mar 6 (Thu) -> week Mar 3-9, Sunday Mar 9 -> 1 day
//	absence  Mar 31 (Mon)             -> Sunday Apr 6 outside window -> 0
type SundayPenalty struct {
	WeekStart time.Weekday
}

// DefaultPenaltyPolicy is the Monday-to-Sunday rule.
func DefaultPenaltyPolicy() PenaltyPolicy {
	return SundayPenalty{WeekStart: time.Monday}
}

func (p SundayPenalty) PenaltyDays(absences []generic.Date, window generic.Period) float64 {
	if !window.Valid() {
		return 0
	}
	sundays := make(map[string]struct{})
	for _, d := range absences {
		if d.IsZero() || d.IsSunday() || !window.Contains(d) {
			continue
		}
		sunday := p.sundayOf(d)
		if window.Contains(sunday) {
			sundays[sunday.String()] = struct{}{}
		}
	}
	return float64(len(sundays))
}

// sundayOf returns the Sunday belonging to d's week.
func (p SundayPenalty) sundayOf(d generic.Date) generic.Date {
	back := (int(d.Weekday()) - int(p.WeekStart) + 7) % 7
	weekStart := d.AddDays(-back)
	forward := (int(time.Sunday) - int(p.WeekStart) + 7) % 7
	return weekStart.AddDays(forward)
}

// PolicyByName resolves a configured policy name. Unknown names disable penalties.
func PolicyByName(name string) PenaltyPolicy {
	switch name {
	case "sunday", "sunday-monday", "":
		return DefaultPenaltyPolicy()
	case "sunday-sunday":
		return SundayPenalty{WeekStart: time.Sunday}
	default:
		return NoPenalty{}
	}
}
