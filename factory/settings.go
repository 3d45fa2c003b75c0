/*
Package factory converts JSON settings and period requests into payroll types.

PURPOSE:
  Rate settings live in the database as a JSON document so the payroll
  office can tune factors without a deploy. The factory parses that
  document into payroll.Rates, fills defaults and rejects nonsense.

JSON SCHEMA:
  {
    "base_days": 30,
    "hours_per_day": 8,
    "overtime_factor": "1.25",
    "holiday_factor": "1",
    "sunday_factor": "1",
    "penalty_policy": "sunday",
    "max_periods": 6
  }

  Factors are decimal strings. Omitted fields take DefaultRates values.

USAGE:
  f := factory.NewSettingsFactory()
  rates, err := f.ParseSettings(jsonString)
  doc := f.ToJSON(rates)

SEE ALSO:
  - payroll/calculator.go: Rates and defaults
  - store/sqlite/sqlite.go: settings table
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/obrasur/payroll-engine/payroll"
	"github.com/shopspring/decimal"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the stored representation of payroll.Rates.
type SettingsJSON struct {
	BaseDays       float64 `json:"base_days,omitempty" validate:"omitempty,gte=1,lte=31"`
	HoursPerDay    float64 `json:"hours_per_day,omitempty" validate:"omitempty,gte=4,lte=24"`
	OvertimeFactor string  `json:"overtime_factor,omitempty" validate:"omitempty,numeric"`
	HolidayFactor  string  `json:"holiday_factor,omitempty" validate:"omitempty,numeric"`
	SundayFactor   string  `json:"sunday_factor,omitempty" validate:"omitempty,numeric"`
	PenaltyPolicy  string  `json:"penalty_policy,omitempty" validate:"omitempty,oneof=sunday sunday-monday sunday-sunday none"`
	MaxPeriods     int     `json:"max_periods,omitempty" validate:"omitempty,gte=1,lte=24"`
}

// =============================================================================
// SETTINGS FACTORY
// =============================================================================

// SettingsFactory converts settings JSON to payroll.Rates.
type SettingsFactory struct {
	validate *validator.Validate
}

// NewSettingsFactory creates a new settings factory.
func NewSettingsFactory() *SettingsFactory {
	return &SettingsFactory{validate: validator.New()}
}

// ParseSettings parses a JSON document. An empty document yields the defaults.
func (f *SettingsFactory) ParseSettings(jsonStr string) (payroll.Rates, error) {
	if jsonStr == "" {
		return payroll.DefaultRates(), nil
	}
	var sj SettingsJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return payroll.Rates{}, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	return f.FromJSON(sj)
}

// FromJSON validates and converts SettingsJSON.
func (f *SettingsFactory) FromJSON(sj SettingsJSON) (payroll.Rates, error) {
	if err := f.validate.Struct(sj); err != nil {
		return payroll.Rates{}, fmt.Errorf("invalid settings: %w", err)
	}

	rates := payroll.Rates{
		BaseDays:      sj.BaseDays,
		HoursPerDay:   sj.HoursPerDay,
		PenaltyPolicy: sj.PenaltyPolicy,
		MaxPeriods:    sj.MaxPeriods,
	}
	var err error
	if rates.OvertimeFactor, err = parseFactor("overtime_factor", sj.OvertimeFactor); err != nil {
		return payroll.Rates{}, err
	}
	if rates.HolidayFactor, err = parseFactor("holiday_factor", sj.HolidayFactor); err != nil {
		return payroll.Rates{}, err
	}
	if rates.SundayFactor, err = parseFactor("sunday_factor", sj.SundayFactor); err != nil {
		return payroll.Rates{}, err
	}
	return rates.WithDefaults(), nil
}

// ToJSON converts rates back to the stored form.
func (f *SettingsFactory) ToJSON(r payroll.Rates) SettingsJSON {
	r = r.WithDefaults()
	return SettingsJSON{
		BaseDays:       r.BaseDays,
		HoursPerDay:    r.HoursPerDay,
		OvertimeFactor: r.OvertimeFactor.String(),
		HolidayFactor:  r.HolidayFactor.String(),
		SundayFactor:   r.SundayFactor.String(),
		PenaltyPolicy:  r.PenaltyPolicy,
		MaxPeriods:     r.MaxPeriods,
	}
}

// Marshal renders rates as a JSON document.
func (f *SettingsFactory) Marshal(r payroll.Rates) (string, error) {
	data, err := json.Marshal(f.ToJSON(r))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// parseFactor returns zero for an empty string so WithDefaults fills it.
func parseFactor(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must not be negative", field, s)
	}
	return d, nil
}
