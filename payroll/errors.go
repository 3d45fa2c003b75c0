package payroll

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ENGINE ERRORS
// =============================================================================

var (
	// ErrAccumulationNotReady is returned when a selected period's entries
	// have not been materialised yet. Callers must not treat it as a zero result.
	ErrAccumulationNotReady = errors.New("accumulation not ready")

	// ErrTooManyPeriods is returned when more periods are selected than allowed.
	ErrTooManyPeriods = errors.New("too many periods selected")

	// ErrNoPeriods is returned when an accumulation is requested for nothing.
	ErrNoPeriods = errors.New("no periods selected")
)

// NotReadyError lists the periods whose entries are missing.
type NotReadyError struct {
	Missing []PeriodID
}

func (e *NotReadyError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = string(id)
	}
	return fmt.Sprintf("accumulation not ready: missing entries for periods %s", strings.Join(ids, ", "))
}

func (e *NotReadyError) Unwrap() error {
	return ErrAccumulationNotReady
}

// TooManyPeriodsError reports the selection size against the limit.
type TooManyPeriodsError struct {
	Selected int
	Max      int
}

func (e *TooManyPeriodsError) Error() string {
	return fmt.Sprintf("%d periods selected, at most %d allowed", e.Selected, e.Max)
}

func (e *TooManyPeriodsError) Unwrap() error {
	return ErrTooManyPeriods
}

// IsNotReady reports whether err means the accumulation inputs are incomplete.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrAccumulationNotReady)
}
