package store

import (
	"testing"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

func TestAdministrationListFilters(t *testing.T) {
	f := setupTestDB(t)
	alice := seedAssignment(t, f, "Alice", "Ibuprofen")
	bob := seedAssignment(t, f, "Bob", "Paracetamol")
	cg, _ := f.caregivers.Create("Dad")

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	give := func(a *model.Assignment, at time.Time) *model.Administration {
		t.Helper()
		ad, err := f.administrations.Create(model.AdministrationInput{
			AssignmentID: a.ID, CaregiverID: &cg.ID, DoseGiven: "5ml",
		}, at)
		if err != nil {
			t.Fatalf("create administration: %v", err)
		}
		return ad
	}
	first := give(alice, base)
	second := give(alice, base.Add(4*time.Hour))
	third := give(bob, base.Add(2*time.Hour))

	if first.Caregiver == nil || first.Caregiver.Name != "Dad" {
		t.Errorf("caregiver = %+v", first.Caregiver)
	}
	if first.Assignment == nil || first.Assignment.Label() != "Ibuprofen for Alice" {
		t.Errorf("assignment = %+v", first.Assignment)
	}
	if !first.AdministeredAt.Equal(base) || first.AdministeredAt.Location() != time.UTC {
		t.Errorf("administered_at = %v, want %v", first.AdministeredAt, base)
	}

	tests := []struct {
		name   string
		filter model.AdministrationFilter
		want   []int64
	}{
		{"all newest first", model.AdministrationFilter{}, []int64{second.ID, third.ID, first.ID}},
		{"assignment", model.AdministrationFilter{AssignmentID: alice.ID}, []int64{second.ID, first.ID}},
		{"assignment wins over member", model.AdministrationFilter{AssignmentID: alice.ID, FamilyMemberID: bob.FamilyMemberID}, []int64{second.ID, first.ID}},
		{"member", model.AdministrationFilter{FamilyMemberID: bob.FamilyMemberID}, []int64{third.ID}},
		{"medication", model.AdministrationFilter{MedicationID: alice.MedicationID}, []int64{second.ID, first.ID}},
		{"start", model.AdministrationFilter{Start: ptr(base.Add(time.Hour))}, []int64{second.ID, third.ID}},
		{"end", model.AdministrationFilter{End: ptr(base.Add(2 * time.Hour))}, []int64{third.ID, first.ID}},
		{"limit", model.AdministrationFilter{Limit: 1}, []int64{second.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := f.administrations.List(tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("got %d administrations, want %d", len(list), len(tt.want))
			}
			for i, id := range tt.want {
				if list[i].ID != id {
					t.Errorf("[%d] id = %d, want %d", i, list[i].ID, id)
				}
			}
		})
	}

	last, err := f.administrations.Last(alice.ID)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last == nil || last.ID != second.ID {
		t.Errorf("last = %+v, want %d", last, second.ID)
	}
}

func TestAdministrationLocalTimeStoredAsUTC(t *testing.T) {
	f := setupTestDB(t)
	a := seedAssignment(t, f, "Alice", "Ibuprofen")

	zone := time.FixedZone("UTC+10", 10*60*60)
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, zone)
	ad, err := f.administrations.Create(model.AdministrationInput{AssignmentID: a.ID, DoseGiven: "5ml"}, at)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !ad.AdministeredAt.Equal(at) {
		t.Errorf("administered_at = %v, want %v", ad.AdministeredAt, at)
	}
	if ad.AdministeredAt.Hour() != 8 {
		t.Errorf("hour = %d, want 8 UTC", ad.AdministeredAt.Hour())
	}
	if ad.Caregiver != nil {
		t.Errorf("caregiver = %+v, want nil", ad.Caregiver)
	}
}

func TestAdministrationUpdateDelete(t *testing.T) {
	f := setupTestDB(t)
	a := seedAssignment(t, f, "Alice", "Ibuprofen")
	ad, _ := f.administrations.Create(model.AdministrationInput{AssignmentID: a.ID, DoseGiven: "5ml"}, time.Now())

	updated, err := f.administrations.Update(ad.ID, model.AdministrationUpdate{
		DoseGiven: ptr("7.5ml"),
		Notes:     ptr("spat some out"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DoseGiven != "7.5ml" || updated.Notes == nil || *updated.Notes != "spat some out" {
		t.Errorf("updated = %+v", updated)
	}

	if err := f.administrations.Delete(ad.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := f.administrations.GetByID(ad.ID)
	if err != nil || got != nil {
		t.Errorf("GetByID after delete = %v, %v", got, err)
	}
	last, err := f.administrations.Last(a.ID)
	if err != nil || last != nil {
		t.Errorf("Last after delete = %v, %v", last, err)
	}
}

func TestAdministrationsSurviveStop(t *testing.T) {
	f := setupTestDB(t)
	a := seedAssignment(t, f, "Alice", "Ibuprofen")
	for i := range 3 {
		f.administrations.Create(model.AdministrationInput{AssignmentID: a.ID, DoseGiven: "5ml"},
			time.Now().Add(-time.Duration(i)*time.Hour))
	}

	f.assignments.SetActive(a.ID, false)
	f.assignments.SetActive(a.ID, true)

	list, err := f.administrations.List(model.AdministrationFilter{AssignmentID: a.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("got %d administrations after stop and reactivate, want 3", len(list))
	}
}
