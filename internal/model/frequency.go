package model

import (
	"fmt"
	"math"
)

type FrequencyType string

const (
	FrequencyFixed FrequencyType = "fixed"
	FrequencyRange FrequencyType = "range"
)

// Frequency is an inter-dose interval in hours. Exactly one form is set on a
// valid medication default: Hours for a fixed interval, or MinHours and
// MaxHours for a range.
type Frequency struct {
	Hours    *float64
	MinHours *float64
	MaxHours *float64
}

func FixedFrequency(hours float64) Frequency {
	return Frequency{Hours: &hours}
}

func RangeFrequency(min, max float64) Frequency {
	return Frequency{MinHours: &min, MaxHours: &max}
}

func (f Frequency) IsZero() bool {
	return f.Hours == nil && f.MinHours == nil && f.MaxHours == nil
}

// Type returns the frequency form, or "" when no form is set.
func (f Frequency) Type() FrequencyType {
	switch {
	case f.Hours != nil:
		return FrequencyFixed
	case f.MinHours != nil || f.MaxHours != nil:
		return FrequencyRange
	}
	return ""
}

// Validate requires exactly one well-formed frequency.
func (f Frequency) Validate() error {
	fixed := f.Hours != nil
	ranged := f.MinHours != nil || f.MaxHours != nil
	switch {
	case fixed && ranged:
		return invalid("frequency", "Frequency must be either fixed or a range, not both")
	case !fixed && !ranged:
		return invalid("frequency", "Medication must have either fixed frequency or range frequency")
	case fixed:
		return checkHours("frequency_hours", *f.Hours)
	}

	if f.MinHours == nil || f.MaxHours == nil {
		return invalid("frequency", "Range frequency requires both minimum and maximum hours")
	}
	if err := checkHours("frequency_min_hours", *f.MinHours); err != nil {
		return err
	}
	if err := checkHours("frequency_max_hours", *f.MaxHours); err != nil {
		return err
	}
	if *f.MinHours >= *f.MaxHours {
		return invalid("frequency_min_hours", "Range minimum must be less than maximum")
	}
	return nil
}

func checkHours(field string, h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return invalid(field, "Frequency hours must be a finite number")
	}
	if h <= 0 {
		return invalid(field, "Frequency hours must be greater than 0")
	}
	return nil
}

// ValidateOverride is Validate for an optional override: no form at all is
// allowed and means "use the medication default".
func (f Frequency) ValidateOverride() error {
	if f.IsZero() {
		return nil
	}
	return f.Validate()
}

func (f Frequency) String() string {
	switch f.Type() {
	case FrequencyFixed:
		return fmt.Sprintf("every %g hours", *f.Hours)
	case FrequencyRange:
		if f.MinHours != nil && f.MaxHours != nil {
			return fmt.Sprintf("every %g-%g hours", *f.MinHours, *f.MaxHours)
		}
	}
	return "no frequency"
}
