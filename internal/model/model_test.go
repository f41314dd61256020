package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestFrequencyValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Frequency
		wantErr string
	}{
		{"fixed", FixedFrequency(4), ""},
		{"range", RangeFrequency(4, 6), ""},
		{"neither", Frequency{}, "Medication must have either fixed frequency or range frequency"},
		{"both", Frequency{Hours: ptr(4.0), MinHours: ptr(4.0), MaxHours: ptr(6.0)}, "Frequency must be either fixed or a range, not both"},
		{"zero fixed", FixedFrequency(0), "Frequency hours must be greater than 0"},
		{"negative min", RangeFrequency(-1, 6), "Frequency hours must be greater than 0"},
		{"min equals max", RangeFrequency(6, 6), "Range minimum must be less than maximum"},
		{"min above max", RangeFrequency(8, 6), "Range minimum must be less than maximum"},
		{"half range", Frequency{MinHours: ptr(4.0)}, "Range frequency requires both minimum and maximum hours"},
		{"NaN fixed", FixedFrequency(math.NaN()), "Frequency hours must be a finite number"},
		{"infinite fixed", FixedFrequency(math.Inf(1)), "Frequency hours must be a finite number"},
		{"infinite max", RangeFrequency(4, math.Inf(1)), "Frequency hours must be a finite number"},
		{"NaN min", RangeFrequency(math.NaN(), 6), "Frequency hours must be a finite number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Message != tt.wantErr {
				t.Errorf("message = %q, want %q", ve.Message, tt.wantErr)
			}
		})
	}
}

func TestValidateOverrideAllowsEmpty(t *testing.T) {
	if err := (Frequency{}).ValidateOverride(); err != nil {
		t.Errorf("empty override: %v", err)
	}
	if err := RangeFrequency(6, 4).ValidateOverride(); err == nil {
		t.Error("bad range override should fail")
	}
}

func TestValidateAdministeredAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		ok   bool
	}{
		{"now", now, true},
		{"an hour ago", now.Add(-time.Hour), true},
		{"just inside window", now.Add(-24*time.Hour + time.Second), true},
		{"exactly 24h", now.Add(-24 * time.Hour), false},
		{"two days ago", now.Add(-48 * time.Hour), false},
		{"future", now.Add(time.Minute), false},
	}
	for _, tt := range tests {
		err := ValidateAdministeredAt(tt.at, now)
		if (err == nil) != tt.ok {
			t.Errorf("%s: err = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestAssignmentInputValidate(t *testing.T) {
	weekly, clock := "weekly", "08:00"
	in := AssignmentInput{FamilyMemberID: 1, MedicationID: 2, ScheduleType: &weekly, ScheduleTime: &clock}
	err := in.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "schedule" {
		t.Fatalf("weekly without days: err = %v", err)
	}

	days := "monday"
	in.ScheduleDays = &days
	if err := in.Validate(); err != nil {
		t.Errorf("valid input: %v", err)
	}

	in.FrequencyMinHours = ptr(6.0)
	in.FrequencyMaxHours = ptr(4.0)
	if err := in.Validate(); err == nil {
		t.Error("inverted range should fail")
	}
}

func TestAssignmentDose(t *testing.T) {
	a := Assignment{Medication: &Medication{DefaultDose: "5mL"}}
	if got := a.Dose(); got != "5mL" {
		t.Errorf("default dose = %q", got)
	}
	a.CurrentDose = ptr("2.5mL")
	if got := a.Dose(); got != "2.5mL" {
		t.Errorf("override dose = %q", got)
	}
}

func TestInventoryLowStock(t *testing.T) {
	r := InventoryRecord{Quantity: 5}
	if r.LowStock() {
		t.Error("no threshold should never be low")
	}
	r.LowStockThreshold = ptr(5.0)
	if !r.LowStock() {
		t.Error("quantity == threshold should be low")
	}
	r.Quantity = 6
	if r.LowStock() {
		t.Error("quantity above threshold should not be low")
	}
}

func ptr[T any](v T) *T { return &v }
