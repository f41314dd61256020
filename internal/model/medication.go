package model

import "time"

type Medication struct {
	ID                       int64     `json:"id"`
	Name                     string    `json:"name"`
	DefaultDose              string    `json:"default_dose"`
	DefaultFrequencyHours    *float64  `json:"default_frequency_hours"`
	DefaultFrequencyMinHours *float64  `json:"default_frequency_min_hours"`
	DefaultFrequencyMaxHours *float64  `json:"default_frequency_max_hours"`
	Notes                    *string   `json:"notes"`
	CreatedAt                time.Time `json:"created_at"`
}

func (m Medication) DefaultFrequency() Frequency {
	return Frequency{
		Hours:    m.DefaultFrequencyHours,
		MinHours: m.DefaultFrequencyMinHours,
		MaxHours: m.DefaultFrequencyMaxHours,
	}
}

// MedicationInput is the body for creating or replacing a medication.
type MedicationInput struct {
	Name                     string   `json:"name"`
	DefaultDose              string   `json:"default_dose"`
	DefaultFrequencyHours    *float64 `json:"default_frequency_hours"`
	DefaultFrequencyMinHours *float64 `json:"default_frequency_min_hours"`
	DefaultFrequencyMaxHours *float64 `json:"default_frequency_max_hours"`
	Notes                    *string  `json:"notes"`
}

func (in MedicationInput) Frequency() Frequency {
	return Frequency{
		Hours:    in.DefaultFrequencyHours,
		MinHours: in.DefaultFrequencyMinHours,
		MaxHours: in.DefaultFrequencyMaxHours,
	}
}

func (in MedicationInput) Validate() error {
	if in.Name == "" {
		return invalid("name", "Name is required")
	}
	if in.DefaultDose == "" {
		return invalid("default_dose", "Default dose is required")
	}
	return in.Frequency().Validate()
}
