package model

import "time"

// AdministrationWindow bounds how far back a new administration may be recorded.
const AdministrationWindow = 24 * time.Hour

type Administration struct {
	ID             int64       `json:"id"`
	AssignmentID   int64       `json:"medication_assignment_id"`
	CaregiverID    *int64      `json:"caregiver_id"`
	DoseGiven      string      `json:"dose_given"`
	AdministeredAt time.Time   `json:"administered_at"`
	Notes          *string     `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
	Assignment     *Assignment `json:"assignment,omitempty"`
	Caregiver      *Caregiver  `json:"caregiver,omitempty"`
}

// AdministrationInput records a new dose. A nil AdministeredAt means now.
type AdministrationInput struct {
	AssignmentID   int64      `json:"medication_assignment_id"`
	CaregiverID    *int64     `json:"caregiver_id"`
	DoseGiven      string     `json:"dose_given"`
	AdministeredAt *time.Time `json:"administered_at,omitempty"`
	Notes          *string    `json:"notes"`
}

func (in AdministrationInput) Validate(now time.Time) error {
	if in.AssignmentID <= 0 {
		return invalid("medication_assignment_id", "Assignment is required")
	}
	if in.DoseGiven == "" {
		return invalid("dose_given", "Dose is required")
	}
	if in.AdministeredAt != nil {
		return ValidateAdministeredAt(*in.AdministeredAt, now)
	}
	return nil
}

// AdministrationUpdate corrects a recorded dose. Nil fields are left as they are.
type AdministrationUpdate struct {
	AdministeredAt *time.Time `json:"administered_at,omitempty"`
	DoseGiven      *string    `json:"dose_given,omitempty"`
	CaregiverID    *int64     `json:"caregiver_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

func (u AdministrationUpdate) Validate(now time.Time) error {
	if u.DoseGiven != nil && *u.DoseGiven == "" {
		return invalid("dose_given", "Dose is required")
	}
	if u.AdministeredAt != nil && u.AdministeredAt.After(now) {
		return invalid("administered_at", "Administration time cannot be in the future")
	}
	return nil
}

// ValidateAdministeredAt accepts times in (now-24h, now].
func ValidateAdministeredAt(at, now time.Time) error {
	if at.After(now) {
		return invalid("administered_at", "Administration time cannot be in the future")
	}
	if !at.After(now.Add(-AdministrationWindow)) {
		return invalid("administered_at", "Administration time cannot be more than 24 hours in the past")
	}
	return nil
}

// AdministrationFilter narrows an administration listing. Zero fields are ignored.
type AdministrationFilter struct {
	AssignmentID   int64
	FamilyMemberID int64
	MedicationID   int64
	Start          *time.Time
	End            *time.Time
	Limit          int
}
