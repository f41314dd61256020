package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/medtrack/internal/dosing"
	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

const (
	conflictActive   = "An active assignment already exists for this medication and family member"
	conflictInactive = "An inactive assignment exists for this medication and family member. Would you like to reactivate it?"
)

type AssignmentHandler struct {
	assignments     *store.AssignmentStore
	members         *store.FamilyMemberStore
	medications     *store.MedicationStore
	administrations *store.AdministrationStore
	hub             *ws.Hub
	logger          *slog.Logger
	now             func() time.Time
}

func NewAssignmentHandler(
	assignments *store.AssignmentStore,
	members *store.FamilyMemberStore,
	medications *store.MedicationStore,
	administrations *store.AdministrationStore,
	hub *ws.Hub,
	logger *slog.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		assignments:     assignments,
		members:         members,
		medications:     medications,
		administrations: administrations,
		hub:             hub,
		logger:          logger,
		now:             time.Now,
	}
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.AssignmentFilter
	memberID, err := queryInt(r, "family_member_id")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid family_member_id")
		return
	}
	f.FamilyMemberID = memberID
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid active flag")
			return
		}
		f.Active = &active
	}

	list, err := h.assignments.List(f)
	if err != nil {
		writeInternal(w, h.logger, "failed to list assignments", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// Scheduled lists active assignments that carry a calendar schedule.
func (h *AssignmentHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	active := true
	list, err := h.assignments.List(store.AssignmentFilter{Active: &active, Scheduled: true})
	if err != nil {
		writeInternal(w, h.logger, "failed to list scheduled assignments", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r)
	if ok {
		writeJSON(w, http.StatusOK, a)
	}
}

// Create adds an assignment. An existing one for the same member and
// medication, active or not, is reported as a 409 with its id so the client
// can reuse or reactivate it; no second row is ever written.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.AssignmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	member, err := h.members.GetByID(in.FamilyMemberID)
	if err != nil {
		writeInternal(w, h.logger, "failed to get family member", err)
		return
	}
	if member == nil || !member.Active {
		writeDetail(w, http.StatusNotFound, "Family member not found")
		return
	}
	med, err := h.medications.GetByID(in.MedicationID)
	if err != nil {
		writeInternal(w, h.logger, "failed to get medication", err)
		return
	}
	if med == nil {
		writeDetail(w, http.StatusNotFound, "Medication not found")
		return
	}

	existing, err := h.assignments.FindByPair(in.FamilyMemberID, in.MedicationID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check existing assignment", err)
		return
	}
	if existing != nil {
		msg := conflictActive
		if !existing.Active {
			msg = conflictInactive
		}
		writeDetail(w, http.StatusConflict, model.AssignmentConflict{
			Message:              msg,
			ExistingAssignmentID: existing.ID,
			IsActive:             existing.Active,
			FamilyMemberName:     member.Name,
			MedicationName:       med.Name,
		})
		return
	}

	a, err := h.assignments.Create(in)
	if err != nil {
		writeInternal(w, h.logger, "failed to create assignment", err)
		return
	}
	h.hub.Publish(ws.EntityAssignment, ws.ActionCreated, a.ID, nil)
	writeJSON(w, http.StatusCreated, a)
}

// Update applies the fields present in the body. A field sent as null clears
// it; an absent field is left alone. Every changed field is audited.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	changes, err := parseChanges(raw)
	if err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	next := changes.Apply(*existing)
	check := model.AssignmentUpdate{
		CurrentDose:       next.CurrentDose,
		FrequencyHours:    next.FrequencyHours,
		FrequencyMinHours: next.FrequencyMinHours,
		FrequencyMaxHours: next.FrequencyMaxHours,
		ScheduleType:      next.ScheduleType,
		ScheduleTime:      next.ScheduleTime,
		ScheduleDays:      next.ScheduleDays,
	}
	if err := check.Validate(); err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	a, err := h.assignments.Update(existing.ID, changes)
	if err != nil {
		writeInternal(w, h.logger, "failed to update assignment", err)
		return
	}

	action := ws.ActionUpdated
	if a.Active != existing.Active {
		action = ws.ActionStopped
		if a.Active {
			action = ws.ActionReactivated
		}
	}
	h.hub.Publish(ws.EntityAssignment, action, a.ID, nil)
	writeJSON(w, http.StatusOK, a)
}

// Delete stops the assignment. The row and its administrations are kept.
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if _, err := h.assignments.SetActive(existing.ID, false); err != nil {
		writeInternal(w, h.logger, "failed to stop assignment", err)
		return
	}
	h.hub.Publish(ws.EntityAssignment, ws.ActionStopped, existing.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) Status(w http.ResponseWriter, r *http.Request) {
	v, ok := h.verdict(w, r)
	if ok {
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *AssignmentHandler) CanAdminister(w http.ResponseWriter, r *http.Request) {
	v, ok := h.verdict(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"can_administer":  v.CanAdminister,
		"status":          v.Status,
		"time_until_next": v.TimeUntilNext,
		"next_dose_time":  v.NextDoseTime,
	})
}

func (h *AssignmentHandler) EditHistory(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r)
	if !ok {
		return
	}
	logs, err := h.assignments.EditHistory(a.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to get edit history", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(logs))
}

func (h *AssignmentHandler) verdict(w http.ResponseWriter, r *http.Request) (model.StatusVerdict, bool) {
	a, ok := h.load(w, r)
	if !ok {
		return model.StatusVerdict{}, false
	}
	last, err := h.administrations.Last(a.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to get last administration", err)
		return model.StatusVerdict{}, false
	}
	v, err := dosing.ComputeStatus(*a, last, h.now())
	if errors.Is(err, dosing.ErrNoFrequency) {
		writeDetail(w, http.StatusBadRequest, "Medication has no dose frequency configured")
		return v, false
	}
	if err != nil {
		writeInternal(w, h.logger, "failed to compute status", err)
		return v, false
	}
	return v, true
}

func (h *AssignmentHandler) load(w http.ResponseWriter, r *http.Request) (*model.Assignment, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	a, err := h.assignments.GetByID(id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get assignment", err)
		return nil, false
	}
	if a == nil {
		writeDetail(w, http.StatusNotFound, "Assignment not found")
		return nil, false
	}
	return a, true
}

func parseChanges(raw map[string]json.RawMessage) (store.AssignmentChanges, error) {
	var c store.AssignmentChanges
	err := errors.Join(
		optionalField(raw, "current_dose", &c.CurrentDose),
		optionalField(raw, "frequency_hours", &c.FrequencyHours),
		optionalField(raw, "frequency_min_hours", &c.FrequencyMinHours),
		optionalField(raw, "frequency_max_hours", &c.FrequencyMaxHours),
		optionalField(raw, "active", &c.Active),
		optionalField(raw, "schedule_type", &c.ScheduleType),
		optionalField(raw, "schedule_time", &c.ScheduleTime),
		optionalField(raw, "schedule_days", &c.ScheduleDays),
	)
	if err != nil {
		return c, &model.ValidationError{Field: "body", Message: err.Error()}
	}
	return c, nil
}

func optionalField[T any](raw map[string]json.RawMessage, key string, dst *store.Optional[T]) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	dst.Set = true
	if string(v) == "null" {
		return nil
	}
	var x T
	if err := json.Unmarshal(v, &x); err != nil {
		return fmt.Errorf("invalid %s", key)
	}
	dst.Value = &x
	return nil
}
