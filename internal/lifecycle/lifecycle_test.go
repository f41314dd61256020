package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/medtrack/internal/gateway"
	"github.com/dukerupert/medtrack/internal/model"
)

// mockAPI keeps assignments in memory and answers duplicates the way the
// server does.
type mockAPI struct {
	assignments     map[int64]*model.Assignment
	administrations map[int64]*model.Administration
	checks          map[string]*model.DeleteCheck
	deleted         []string
	nextID          int64
	creates         int
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		assignments:     make(map[int64]*model.Assignment),
		administrations: make(map[int64]*model.Administration),
		checks:          make(map[string]*model.DeleteCheck),
	}
}

func (m *mockAPI) conflictError(a *model.Assignment) error {
	detail, _ := json.Marshal(model.AssignmentConflict{
		Message:              "exists",
		ExistingAssignmentID: a.ID,
		IsActive:             a.Active,
	})
	return &gateway.Error{Kind: gateway.KindGeneric, Status: http.StatusConflict, Detail: detail}
}

func (m *mockAPI) CreateAssignment(_ context.Context, in model.AssignmentInput) (*model.Assignment, error) {
	m.creates++
	for _, a := range m.assignments {
		if a.FamilyMemberID == in.FamilyMemberID && a.MedicationID == in.MedicationID {
			return nil, m.conflictError(a)
		}
	}
	m.nextID++
	a := &model.Assignment{ID: m.nextID, FamilyMemberID: in.FamilyMemberID, MedicationID: in.MedicationID, Active: true}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *mockAPI) GetAssignment(_ context.Context, id int64) (*model.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, &gateway.Error{Kind: gateway.KindNotFound, Status: http.StatusNotFound}
	}
	cp := *a
	return &cp, nil
}

func (m *mockAPI) UpdateAssignment(_ context.Context, id int64, u model.AssignmentUpdate) (*model.Assignment, error) {
	a := m.assignments[id]
	a.CurrentDose = u.CurrentDose
	a.FrequencyHours = u.FrequencyHours
	return a, nil
}

func (m *mockAPI) SetAssignmentActive(_ context.Context, id int64, active bool) (*model.Assignment, error) {
	a := m.assignments[id]
	a.Active = active
	return a, nil
}

func (m *mockAPI) StopAssignment(_ context.Context, id int64) error {
	m.assignments[id].Active = false
	return nil
}

func (m *mockAPI) EditHistory(context.Context, int64) ([]model.AssignmentEditLog, error) {
	return nil, nil
}

func (m *mockAPI) CreateAdministration(_ context.Context, in model.AdministrationInput) (*model.Administration, error) {
	m.nextID++
	a := &model.Administration{ID: m.nextID, AssignmentID: in.AssignmentID, DoseGiven: in.DoseGiven}
	if in.AdministeredAt != nil {
		a.AdministeredAt = *in.AdministeredAt
	}
	m.administrations[a.ID] = a
	return a, nil
}

func (m *mockAPI) UpdateAdministration(_ context.Context, id int64, u model.AdministrationUpdate) (*model.Administration, error) {
	a := m.administrations[id]
	if u.DoseGiven != nil {
		a.DoseGiven = *u.DoseGiven
	}
	return a, nil
}

func (m *mockAPI) DeleteAdministration(_ context.Context, id int64) error {
	delete(m.administrations, id)
	return nil
}

func (m *mockAPI) check(entity string, id int64) (*model.DeleteCheck, error) {
	if c, ok := m.checks[fmt.Sprintf("%s/%d", entity, id)]; ok {
		return c, nil
	}
	return &model.DeleteCheck{CanDelete: true}, nil
}

func (m *mockAPI) CanDeleteFamilyMember(_ context.Context, id int64) (*model.DeleteCheck, error) {
	return m.check("family-members", id)
}

func (m *mockAPI) DeleteFamilyMember(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, fmt.Sprintf("family-members/%d", id))
	return nil
}

func (m *mockAPI) CanDeleteCaregiver(_ context.Context, id int64) (*model.DeleteCheck, error) {
	return m.check("caregivers", id)
}

func (m *mockAPI) DeleteCaregiver(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, fmt.Sprintf("caregivers/%d", id))
	return nil
}

func (m *mockAPI) CanDeleteMedication(_ context.Context, id int64) (*model.DeleteCheck, error) {
	return m.check("medications", id)
}

func (m *mockAPI) DeleteMedication(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, fmt.Sprintf("medications/%d", id))
	return nil
}

func newManager(api API, r Resolver) (*Manager, *int) {
	m := New(api, r, slog.Default())
	changes := 0
	m.OnChange(func() { changes++ })
	return m, &changes
}

func fixed(h float64) *float64 { return &h }

func TestCreate(t *testing.T) {
	api := newMockAPI()
	m, changes := newManager(api, nil)

	res, err := m.Create(context.Background(), model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCreated || res.Assignment.ID == 0 {
		t.Errorf("result = %+v", res)
	}
	if *changes != 1 {
		t.Errorf("changes = %d, want 1", *changes)
	}
}

func TestNilLoggerDefaults(t *testing.T) {
	m := New(newMockAPI(), nil, nil)
	res, err := m.Create(context.Background(), model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCreated {
		t.Errorf("outcome = %s, want created", res.Outcome)
	}
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	api := newMockAPI()
	m, _ := newManager(api, nil)

	in := model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2, FrequencyMinHours: fixed(6), FrequencyMaxHours: fixed(4)}
	_, err := m.Create(context.Background(), in)
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if api.creates != 0 {
		t.Errorf("creates = %d, want 0", api.creates)
	}
}

func TestCreateDuplicateActive(t *testing.T) {
	api := newMockAPI()
	m, _ := newManager(api, AcceptExisting)
	ctx := context.Background()
	in := model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2}

	first, _ := m.Create(ctx, in)
	res, err := m.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeReused {
		t.Errorf("outcome = %q, want reused", res.Outcome)
	}
	if res.Conflict == nil || !res.Conflict.IsActive || res.Conflict.ExistingAssignmentID != first.Assignment.ID {
		t.Errorf("conflict = %+v", res.Conflict)
	}
	if res.Assignment.ID != first.Assignment.ID {
		t.Errorf("assignment = %d, want %d", res.Assignment.ID, first.Assignment.ID)
	}
	if len(api.assignments) != 1 {
		t.Errorf("assignments = %d, want 1", len(api.assignments))
	}
}

func TestCreateDuplicateInactiveReactivates(t *testing.T) {
	api := newMockAPI()
	m, changes := newManager(api, AcceptExisting)
	ctx := context.Background()
	in := model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2}

	first, _ := m.Create(ctx, in)
	if err := m.Stop(ctx, first.Assignment.ID); err != nil {
		t.Fatal(err)
	}

	res, err := m.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeReactivated || !res.Assignment.Active {
		t.Errorf("result = %+v", res)
	}
	if !api.assignments[first.Assignment.ID].Active {
		t.Error("existing assignment not reactivated")
	}
	if *changes != 3 {
		t.Errorf("changes = %d, want 3", *changes)
	}
}

func TestCreateDuplicateDecisions(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		decision Decision
		want     Outcome
		wantErr  error
	}{
		{"cancel active", true, Cancel, OutcomeCancelled, nil},
		{"cancel inactive", false, Cancel, OutcomeCancelled, nil},
		{"reactivate active", true, Reactivate, OutcomeReused, nil},
		{"reuse inactive", false, Reuse, "", ErrInactiveReuse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newMockAPI()
			api.assignments[1] = &model.Assignment{ID: 1, FamilyMemberID: 1, MedicationID: 2, Active: tt.active}
			api.nextID = 1

			var seen *model.AssignmentConflict
			m, _ := newManager(api, ResolverFunc(func(_ context.Context, c model.AssignmentConflict) (Decision, error) {
				seen = &c
				return tt.decision, nil
			}))

			res, err := m.Create(context.Background(), model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2})
			if seen == nil || seen.IsActive != tt.active {
				t.Errorf("resolver saw %+v", seen)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != tt.want {
				t.Errorf("outcome = %q, want %q", res.Outcome, tt.want)
			}
			if len(api.assignments) != 1 {
				t.Errorf("assignments = %d, want 1", len(api.assignments))
			}
			if api.assignments[1].Active != tt.active {
				t.Error("cancel or reuse must not change the existing assignment")
			}
		})
	}
}

func TestResolverError(t *testing.T) {
	api := newMockAPI()
	api.assignments[1] = &model.Assignment{ID: 1, FamilyMemberID: 1, MedicationID: 2, Active: true}
	boom := errors.New("prompt closed")
	m, _ := newManager(api, ResolverFunc(func(context.Context, model.AssignmentConflict) (Decision, error) {
		return Cancel, boom
	}))

	if _, err := m.Create(context.Background(), model.AssignmentInput{FamilyMemberID: 1, MedicationID: 2}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdateValidates(t *testing.T) {
	api := newMockAPI()
	api.assignments[1] = &model.Assignment{ID: 1, Active: true}
	m, changes := newManager(api, nil)

	_, err := m.Update(context.Background(), 1, model.AssignmentUpdate{FrequencyHours: fixed(-2)})
	if err == nil {
		t.Fatal("negative frequency should fail")
	}
	if *changes != 0 {
		t.Error("failed update should not signal a change")
	}

	a, err := m.Update(context.Background(), 1, model.AssignmentUpdate{FrequencyHours: fixed(6)})
	if err != nil {
		t.Fatal(err)
	}
	if *a.FrequencyHours != 6 {
		t.Errorf("frequency = %v", *a.FrequencyHours)
	}
}

func TestStopThenReactivate(t *testing.T) {
	api := newMockAPI()
	api.assignments[1] = &model.Assignment{ID: 1, Active: true}
	m, _ := newManager(api, nil)
	ctx := context.Background()

	if err := m.Stop(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if api.assignments[1].Active {
		t.Error("still active after stop")
	}
	a, err := m.Reactivate(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Active {
		t.Error("not active after reactivate")
	}
}

func TestRecordDoseWindow(t *testing.T) {
	api := newMockAPI()
	m, _ := newManager(api, nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	future := now.Add(time.Minute)
	if _, err := m.RecordDose(ctx, model.AdministrationInput{AssignmentID: 1, DoseGiven: "5mL", AdministeredAt: &future}); err == nil {
		t.Error("future dose accepted")
	}
	old := now.Add(-25 * time.Hour)
	if _, err := m.RecordDose(ctx, model.AdministrationInput{AssignmentID: 1, DoseGiven: "5mL", AdministeredAt: &old}); err == nil {
		t.Error("dose older than 24h accepted")
	}
	if len(api.administrations) != 0 {
		t.Fatalf("rejected doses reached the API")
	}

	local := time.Date(2026, 3, 2, 6, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	a, err := m.RecordDose(ctx, model.AdministrationInput{AssignmentID: 1, DoseGiven: "5mL", AdministeredAt: &local})
	if err != nil {
		t.Fatal(err)
	}
	if a.AdministeredAt.Location() != time.UTC || !a.AdministeredAt.Equal(local) {
		t.Errorf("administered_at = %v, want %v in UTC", a.AdministeredAt, local)
	}
}

func TestEditDoseRejectsFuture(t *testing.T) {
	api := newMockAPI()
	api.administrations[1] = &model.Administration{ID: 1}
	m, _ := newManager(api, nil)
	future := time.Now().Add(time.Hour)

	if _, err := m.EditDose(context.Background(), 1, model.AdministrationUpdate{AdministeredAt: &future}); err == nil {
		t.Error("future edit accepted")
	}
}

func TestGuardedDelete(t *testing.T) {
	api := newMockAPI()
	api.checks["family-members/1"] = &model.DeleteCheck{
		CanDelete:         false,
		ActiveAssignments: []model.AssignmentRef{{ID: 3, MedicationName: "Ibuprofen", Active: true}},
	}
	m, changes := newManager(api, nil)
	ctx := context.Background()

	err := m.DeleteFamilyMember(ctx, 1)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want *BlockedError", err)
	}
	if got := blocked.Error(); got != "cannot delete family member 1: active assignment for Ibuprofen" {
		t.Errorf("Error() = %q", got)
	}
	if len(api.deleted) != 0 {
		t.Errorf("deleted = %v, want none", api.deleted)
	}

	if err := m.DeleteCaregiver(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteMedication(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if len(api.deleted) != 2 || *changes != 2 {
		t.Errorf("deleted = %v changes = %d", api.deleted, *changes)
	}
}
