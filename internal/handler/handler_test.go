package handler

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

func TestParseChanges(t *testing.T) {
	var raw map[string]json.RawMessage
	json.Unmarshal([]byte(`{"current_dose":"10ml","frequency_hours":null,"active":false}`), &raw)

	c, err := parseChanges(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.CurrentDose.Set || *c.CurrentDose.Value != "10ml" {
		t.Errorf("current_dose = %+v", c.CurrentDose)
	}
	if !c.FrequencyHours.Set || c.FrequencyHours.Value != nil {
		t.Errorf("frequency_hours = %+v, want set to null", c.FrequencyHours)
	}
	if !c.Active.Set || *c.Active.Value {
		t.Errorf("active = %+v", c.Active)
	}
	if c.ScheduleType.Set {
		t.Error("absent schedule_type should not be set")
	}
}

func TestParseChangesRejectsWrongType(t *testing.T) {
	var raw map[string]json.RawMessage
	json.Unmarshal([]byte(`{"frequency_hours":"six"}`), &raw)

	_, err := parseChanges(raw)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *model.ValidationError", err)
	}
}

func TestParseAdministrationFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/administrations?assignment_id=3&start_date=2026-03-01T00:00:00Z&limit=5", nil)
	f, err := parseAdministrationFilter(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.AssignmentID != 3 || f.Limit != 5 || f.End != nil {
		t.Errorf("filter = %+v", f)
	}
	if f.Start == nil || !f.Start.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", f.Start)
	}

	for _, q := range []string{"limit=-1", "start_date=yesterday", "medication_id=abc"} {
		r := httptest.NewRequest("GET", "/api/administrations?"+q, nil)
		if _, err := parseAdministrationFilter(r); err == nil {
			t.Errorf("%s: expected error", q)
		}
	}
}
