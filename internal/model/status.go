package model

import "time"

type Status string

const (
	StatusReady   Status = "ready"
	StatusSoon    Status = "soon"
	StatusOverdue Status = "overdue"
)

// StatusVerdict is the derived dose readiness of one assignment. Durations
// are in hours.
type StatusVerdict struct {
	Status             Status        `json:"status"`
	CanAdminister      bool          `json:"can_administer"`
	TimeUntilNext      *float64      `json:"time_until_next"`
	TimeUntilMax       *float64      `json:"time_until_max"`
	LastAdministration *time.Time    `json:"last_administration"`
	NextDoseTime       *time.Time    `json:"next_dose_time"`
	NextDoseMaxTime    *time.Time    `json:"next_dose_max_time"`
	NextScheduledAt    *time.Time    `json:"next_scheduled_at,omitempty"`
	FrequencyType      FrequencyType `json:"frequency_type"`
}
