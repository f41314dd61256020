package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dukerupert/medtrack/internal/database"
	"github.com/dukerupert/medtrack/internal/gateway"
	"github.com/dukerupert/medtrack/internal/lifecycle"
	"github.com/dukerupert/medtrack/internal/medapi"
	"github.com/dukerupert/medtrack/internal/model"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

type env struct {
	ts  *httptest.Server
	api *medapi.Client
}

func setup(t *testing.T) env {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts := httptest.NewServer(New(db, Options{}, discard()).Router())
	t.Cleanup(ts.Close)

	gw := gateway.New(gateway.Config{BaseURL: ts.URL + "/api", Logger: discard()})
	return env{ts: ts, api: medapi.New(gw)}
}

// seed creates Alice, a 4-hourly medication and returns the assignment input
// for them.
func seed(t *testing.T, e env) model.AssignmentInput {
	t.Helper()
	ctx := context.Background()
	fm, err := e.api.CreateFamilyMember(ctx, "Alice")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	med, err := e.api.CreateMedication(ctx, model.MedicationInput{
		Name: "Ibuprofen", DefaultDose: "5ml", DefaultFrequencyHours: ptr(4.0),
	})
	if err != nil {
		t.Fatalf("create medication: %v", err)
	}
	return model.AssignmentInput{FamilyMemberID: fm.ID, MedicationID: med.ID}
}

func TestDuplicateAssignmentConflict(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	in := seed(t, e)
	m := lifecycle.New(e.api, lifecycle.CancelOnConflict, discard())

	first, err := m.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Outcome != lifecycle.OutcomeCreated {
		t.Fatalf("outcome = %s, want created", first.Outcome)
	}

	second, err := m.Create(ctx, in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Outcome != lifecycle.OutcomeCancelled {
		t.Errorf("outcome = %s, want cancelled", second.Outcome)
	}
	c := second.Conflict
	if c == nil || c.ExistingAssignmentID != first.Assignment.ID || !c.IsActive {
		t.Fatalf("conflict = %+v", c)
	}
	if c.FamilyMemberName != "Alice" || c.MedicationName != "Ibuprofen" {
		t.Errorf("conflict names = %q / %q", c.FamilyMemberName, c.MedicationName)
	}
	if !strings.HasPrefix(c.Message, "An active assignment already exists") {
		t.Errorf("message = %q", c.Message)
	}

	list, err := e.api.ListAssignments(ctx, medapi.AssignmentFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d assignments, want 1", len(list))
	}
}

func TestStopReactivateKeepsAdministrations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	in := seed(t, e)
	m := lifecycle.New(e.api, lifecycle.AcceptExisting, discard())

	res, err := m.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Assignment.ID
	for i := range 3 {
		at := time.Now().Add(-time.Duration(i+1) * time.Hour)
		if _, err := m.RecordDose(ctx, model.AdministrationInput{AssignmentID: id, DoseGiven: "5ml", AdministeredAt: &at}); err != nil {
			t.Fatalf("record dose %d: %v", i, err)
		}
	}

	if err := m.Stop(ctx, id); err != nil {
		t.Fatalf("stop: %v", err)
	}
	stopped, _ := e.api.GetAssignment(ctx, id)
	if stopped.Active {
		t.Fatal("assignment still active after stop")
	}

	// Creating again finds the inactive row and reactivates it.
	again, err := m.Create(ctx, in)
	if err != nil {
		t.Fatalf("create after stop: %v", err)
	}
	if again.Outcome != lifecycle.OutcomeReactivated || again.Assignment.ID != id || !again.Assignment.Active {
		t.Fatalf("result = %+v", again)
	}

	doses, err := e.api.ListAdministrations(ctx, model.AdministrationFilter{AssignmentID: id})
	if err != nil {
		t.Fatalf("list doses: %v", err)
	}
	if len(doses) != 3 {
		t.Errorf("got %d administrations, want 3", len(doses))
	}

	history, err := m.EditHistory(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].FieldName != "active" || *history[0].NewValue != "true" {
		t.Errorf("history = %+v", history)
	}
}

func TestFourHourScenario(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, err := e.api.CreateAssignment(ctx, seed(t, e))
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	v, err := e.api.AssignmentStatus(ctx, a.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if v.Status != model.StatusReady || !v.CanAdminister || v.LastAdministration != nil {
		t.Errorf("before any dose: %+v", v)
	}

	at := time.Now().Add(-time.Hour)
	if _, err := e.api.CreateAdministration(ctx, model.AdministrationInput{AssignmentID: a.ID, DoseGiven: "5ml", AdministeredAt: &at}); err != nil {
		t.Fatalf("record dose: %v", err)
	}

	v, err = e.api.AssignmentStatus(ctx, a.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if v.Status != model.StatusSoon || v.CanAdminister {
		t.Errorf("status = %s can_administer = %v, want soon and false", v.Status, v.CanAdminister)
	}
	if v.TimeUntilNext == nil || math.Abs(*v.TimeUntilNext-3) > 0.01 {
		t.Errorf("time_until_next = %v, want about 3", v.TimeUntilNext)
	}
	if v.FrequencyType != model.FrequencyFixed {
		t.Errorf("frequency_type = %q", v.FrequencyType)
	}
}

func TestErrorDetails(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.api.GetAssignment(ctx, 42)
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *gateway.Error", err)
	}
	if gerr.Status != http.StatusNotFound || gerr.Message != "Assignment not found" {
		t.Errorf("error = %d %q", gerr.Status, gerr.Message)
	}
	if !medapi.IsNotFound(err) {
		t.Error("IsNotFound = false")
	}

	_, err = e.api.CreateMedication(ctx, model.MedicationInput{Name: "X", DefaultDose: "1"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("client-side validation err = %v", err)
	}

	// Bypass the client to reach server validation.
	resp, err := http.Post(e.ts.URL+"/api/medications", "application/json",
		strings.NewReader(`{"name":"X","default_dose":"1","default_frequency_min_hours":6,"default_frequency_max_hours":4}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Detail string `json:"detail"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusBadRequest || body.Detail != "Range minimum must be less than maximum" {
		t.Errorf("response = %d %q", resp.StatusCode, body.Detail)
	}
}

func TestAdministeredAtWindow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, _ := e.api.CreateAssignment(ctx, seed(t, e))

	old := time.Now().Add(-25 * time.Hour).UTC().Format(time.RFC3339)
	body, _ := json.Marshal(map[string]any{
		"medication_assignment_id": a.ID,
		"dose_given":               "5ml",
		"administered_at":          old,
	})
	resp, err := http.Post(e.ts.URL+"/api/administrations", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a dose older than 24 hours", resp.StatusCode)
	}
}

func TestAdministrationRequiresActiveCaregiver(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, _ := e.api.CreateAssignment(ctx, seed(t, e))
	cg, _ := e.api.CreateCaregiver(ctx, "Dad")
	if err := e.api.DeleteCaregiver(ctx, cg.ID); err != nil {
		t.Fatalf("delete caregiver: %v", err)
	}

	_, err := e.api.CreateAdministration(ctx, model.AdministrationInput{AssignmentID: a.ID, CaregiverID: &cg.ID, DoseGiven: "5ml"})
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || gerr.Status != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestGuardedDeletes(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	in := seed(t, e)
	a, _ := e.api.CreateAssignment(ctx, in)
	m := lifecycle.New(e.api, nil, discard())

	err := m.DeleteFamilyMember(ctx, in.FamilyMemberID)
	var blocked *lifecycle.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("delete member err = %v, want *lifecycle.BlockedError", err)
	}

	check, err := e.api.CanDeleteMedication(ctx, in.MedicationID)
	if err != nil {
		t.Fatalf("can-delete: %v", err)
	}
	if check.CanDelete || len(check.Assignments) != 1 {
		t.Errorf("medication check = %+v", check)
	}

	// The server refuses too when asked directly.
	err = e.api.DeleteMedication(ctx, in.MedicationID)
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || gerr.Status != http.StatusConflict {
		t.Errorf("delete medication err = %v, want 409", err)
	}

	// Once stopped, the member can go; the medication still cannot.
	if err := m.Stop(ctx, a.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.DeleteFamilyMember(ctx, in.FamilyMemberID); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	members, _ := e.api.ListFamilyMembers(ctx)
	if len(members) != 0 {
		t.Errorf("members = %+v, want none listed", members)
	}
}

func TestCaregiverWithDosesCannotBeDeleted(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	in := seed(t, e)
	a, _ := e.api.CreateAssignment(ctx, in)
	cg, _ := e.api.CreateCaregiver(ctx, "Dad")
	m := lifecycle.New(e.api, nil, discard())

	if _, err := m.RecordDose(ctx, model.AdministrationInput{AssignmentID: a.ID, CaregiverID: &cg.ID, DoseGiven: "5ml"}); err != nil {
		t.Fatalf("record dose: %v", err)
	}

	err := m.DeleteCaregiver(ctx, cg.ID)
	var blocked *lifecycle.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("delete caregiver err = %v, want *lifecycle.BlockedError", err)
	}
	if blocked.Check.AdministrationCount != 1 {
		t.Errorf("administration_count = %d, want 1", blocked.Check.AdministrationCount)
	}

	err = e.api.DeleteCaregiver(ctx, cg.ID)
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || gerr.Status != http.StatusConflict {
		t.Fatalf("delete caregiver err = %v, want 409", err)
	}
	if gerr.Message != "Cannot delete caregiver with recorded administrations" {
		t.Errorf("message = %q", gerr.Message)
	}

	caregivers, _ := e.api.ListCaregivers(ctx)
	if len(caregivers) != 1 {
		t.Errorf("caregivers = %+v, want Dad still listed", caregivers)
	}
}

func TestPartialAssignmentUpdate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, _ := e.api.CreateAssignment(ctx, seed(t, e))

	updated, err := e.api.UpdateAssignment(ctx, a.ID, model.AssignmentUpdate{
		CurrentDose:       ptr("10ml"),
		FrequencyMinHours: ptr(4.0),
		FrequencyMaxHours: ptr(6.0),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Dose() != "10ml" || updated.FrequencyMinHours == nil || !updated.Active {
		t.Errorf("updated = %+v", updated)
	}

	history, _ := e.api.EditHistory(ctx, a.ID)
	if len(history) != 3 {
		t.Errorf("history has %d entries, want 3: %+v", len(history), history)
	}

	v, err := e.api.AssignmentStatus(ctx, a.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if v.FrequencyType != model.FrequencyRange {
		t.Errorf("frequency_type = %q, want range from the override", v.FrequencyType)
	}
}

func TestInventoryAndExport(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	in := seed(t, e)
	e.api.CreateAssignment(ctx, in)

	rec, err := e.api.UpsertInventory(ctx, model.InventoryInput{MedicationID: in.MedicationID, Quantity: 2, Unit: "bottles", LowStockThreshold: ptr(3.0)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	low, _ := e.api.LowStock(ctx)
	if len(low) != 1 || low[0].ID != rec.ID {
		t.Errorf("low stock = %+v", low)
	}

	data, err := e.api.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	csv, err := e.api.ExportCSV(ctx)
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if !strings.HasPrefix(string(csv), "ID,Family Member,Medication,Caregiver,Administered At,Dose Given,Notes") {
		t.Errorf("csv = %q", csv)
	}

	other := setup(t)
	res, err := other.api.ImportJSON(ctx, "backup.json", data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported["assignments"] != 1 || res.Imported["inventory"] != 1 {
		t.Errorf("imported = %+v", res.Imported)
	}
	list, _ := other.api.ListAssignments(ctx, medapi.AssignmentFilter{})
	if len(list) != 1 || list[0].Label() != "Ibuprofen for Alice" {
		t.Errorf("imported assignments = %+v", list)
	}
}

func TestMutationsBroadcast(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(e.ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// The hub registers the client asynchronously; keep creating until a
	// message arrives.
	got := make(chan ws.Message, 1)
	go func() {
		var msg ws.Message
		if err := wsjson.Read(ctx, conn, &msg); err == nil {
			got <- msg
		}
	}()

	for {
		if _, err := e.api.CreateCaregiver(ctx, "Mum"); err != nil {
			t.Fatalf("create caregiver: %v", err)
		}
		select {
		case msg := <-got:
			if msg.Entity != ws.EntityCaregiver || msg.Action != ws.ActionCreated || msg.ID == 0 {
				t.Errorf("message = %+v", msg)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no broadcast received")
		}
	}
}

func TestHealth(t *testing.T) {
	e := setup(t)
	resp, err := http.Get(e.ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
