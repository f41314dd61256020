package model

import (
	"time"

	"github.com/dukerupert/medtrack/internal/schedule"
)

type Assignment struct {
	ID                int64         `json:"id"`
	FamilyMemberID    int64         `json:"family_member_id"`
	MedicationID      int64         `json:"medication_id"`
	CurrentDose       *string       `json:"current_dose"`
	FrequencyHours    *float64      `json:"frequency_hours"`
	FrequencyMinHours *float64      `json:"frequency_min_hours"`
	FrequencyMaxHours *float64      `json:"frequency_max_hours"`
	Active            bool          `json:"active"`
	ScheduleType      *string       `json:"schedule_type"`
	ScheduleTime      *string       `json:"schedule_time"`
	ScheduleDays      *string       `json:"schedule_days"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         *time.Time    `json:"updated_at"`
	FamilyMember      *FamilyMember `json:"family_member,omitempty"`
	Medication        *Medication   `json:"medication,omitempty"`
}

// Override returns the assignment's own frequency, which may be empty.
func (a Assignment) Override() Frequency {
	return Frequency{
		Hours:    a.FrequencyHours,
		MinHours: a.FrequencyMinHours,
		MaxHours: a.FrequencyMaxHours,
	}
}

// Dose returns the dose to give: the override if set, else the medication default.
func (a Assignment) Dose() string {
	if a.CurrentDose != nil && *a.CurrentDose != "" {
		return *a.CurrentDose
	}
	if a.Medication != nil {
		return a.Medication.DefaultDose
	}
	return ""
}

func (a Assignment) Schedule() (schedule.Schedule, error) {
	return schedule.Parse(deref(a.ScheduleType), deref(a.ScheduleTime), deref(a.ScheduleDays))
}

// Label is "<medication> for <member>" when both are embedded.
func (a Assignment) Label() string {
	if a.Medication == nil || a.FamilyMember == nil {
		return ""
	}
	return a.Medication.Name + " for " + a.FamilyMember.Name
}

// AssignmentInput is the body of a create request.
type AssignmentInput struct {
	FamilyMemberID    int64    `json:"family_member_id"`
	MedicationID      int64    `json:"medication_id"`
	CurrentDose       *string  `json:"current_dose"`
	FrequencyHours    *float64 `json:"frequency_hours"`
	FrequencyMinHours *float64 `json:"frequency_min_hours"`
	FrequencyMaxHours *float64 `json:"frequency_max_hours"`
	ScheduleType      *string  `json:"schedule_type"`
	ScheduleTime      *string  `json:"schedule_time"`
	ScheduleDays      *string  `json:"schedule_days"`
}

func (in AssignmentInput) Validate() error {
	if in.FamilyMemberID <= 0 {
		return invalid("family_member_id", "Family member is required")
	}
	if in.MedicationID <= 0 {
		return invalid("medication_id", "Medication is required")
	}
	return validateAssignmentFields(
		Frequency{Hours: in.FrequencyHours, MinHours: in.FrequencyMinHours, MaxHours: in.FrequencyMaxHours},
		in.ScheduleType, in.ScheduleTime, in.ScheduleDays,
	)
}

// AssignmentUpdate replaces the editable fields of an assignment. Nil fields
// are sent as null and clear the stored value.
type AssignmentUpdate struct {
	CurrentDose       *string  `json:"current_dose"`
	FrequencyHours    *float64 `json:"frequency_hours"`
	FrequencyMinHours *float64 `json:"frequency_min_hours"`
	FrequencyMaxHours *float64 `json:"frequency_max_hours"`
	ScheduleType      *string  `json:"schedule_type"`
	ScheduleTime      *string  `json:"schedule_time"`
	ScheduleDays      *string  `json:"schedule_days"`
}

func (u AssignmentUpdate) Validate() error {
	return validateAssignmentFields(
		Frequency{Hours: u.FrequencyHours, MinHours: u.FrequencyMinHours, MaxHours: u.FrequencyMaxHours},
		u.ScheduleType, u.ScheduleTime, u.ScheduleDays,
	)
}

func validateAssignmentFields(f Frequency, typ, clock, days *string) error {
	if err := f.ValidateOverride(); err != nil {
		return err
	}
	if _, err := schedule.Parse(deref(typ), deref(clock), deref(days)); err != nil {
		return invalid("schedule", err.Error())
	}
	return nil
}

// AssignmentConflict is the detail of a 409 returned when an assignment for
// the same family member and medication already exists.
type AssignmentConflict struct {
	Message              string `json:"message"`
	ExistingAssignmentID int64  `json:"existing_assignment_id"`
	IsActive             bool   `json:"is_active"`
	FamilyMemberName     string `json:"family_member_name"`
	MedicationName       string `json:"medication_name"`
}

type AssignmentEditLog struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	FieldName    string    `json:"field_name"`
	OldValue     *string   `json:"old_value"`
	NewValue     *string   `json:"new_value"`
	ChangedAt    time.Time `json:"changed_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
