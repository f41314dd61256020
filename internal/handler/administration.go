package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

type AdministrationHandler struct {
	administrations *store.AdministrationStore
	assignments     *store.AssignmentStore
	caregivers      *store.CaregiverStore
	hub             *ws.Hub
	logger          *slog.Logger
	now             func() time.Time
}

func NewAdministrationHandler(
	administrations *store.AdministrationStore,
	assignments *store.AssignmentStore,
	caregivers *store.CaregiverStore,
	hub *ws.Hub,
	logger *slog.Logger,
) *AdministrationHandler {
	return &AdministrationHandler{
		administrations: administrations,
		assignments:     assignments,
		caregivers:      caregivers,
		hub:             hub,
		logger:          logger,
		now:             time.Now,
	}
}

func (h *AdministrationHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseAdministrationFilter(r)
	if err != nil {
		writeInvalid(w, h.logger, err)
		return
	}
	list, err := h.administrations.List(f)
	if err != nil {
		writeInternal(w, h.logger, "failed to list administrations", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

func parseAdministrationFilter(r *http.Request) (model.AdministrationFilter, error) {
	var f model.AdministrationFilter
	ints := []struct {
		key string
		dst *int64
	}{
		{"assignment_id", &f.AssignmentID},
		{"family_member_id", &f.FamilyMemberID},
		{"medication_id", &f.MedicationID},
	}
	for _, p := range ints {
		v, err := queryInt(r, p.key)
		if err != nil {
			return f, &model.ValidationError{Field: p.key, Message: "Invalid " + p.key}
		}
		*p.dst = v
	}

	q := r.URL.Query()
	for key, dst := range map[string]**time.Time{"start_date": &f.Start, "end_date": &f.End} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, &model.ValidationError{Field: key, Message: "Invalid " + key + ", expected RFC 3339"}
		}
		*dst = &t
	}

	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		return f, &model.ValidationError{Field: "limit", Message: "Invalid limit"}
	}
	f.Limit = int(limit)
	return f, nil
}

func (h *AdministrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ad, ok := h.load(w, r)
	if ok {
		writeJSON(w, http.StatusOK, ad)
	}
}

// Create records a dose, now unless administered_at says otherwise. The time
// must lie within the last 24 hours.
func (h *AdministrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.AdministrationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.DoseGiven = strings.TrimSpace(in.DoseGiven)
	now := h.now()
	if err := in.Validate(now); err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	a, err := h.assignments.GetByID(in.AssignmentID)
	if err != nil {
		writeInternal(w, h.logger, "failed to get assignment", err)
		return
	}
	if a == nil {
		writeDetail(w, http.StatusNotFound, "Assignment not found")
		return
	}
	if !a.Active {
		writeDetail(w, http.StatusBadRequest, "Cannot record a dose for an inactive assignment")
		return
	}
	if !h.checkCaregiver(w, in.CaregiverID) {
		return
	}

	at := now
	if in.AdministeredAt != nil {
		at = *in.AdministeredAt
	}
	ad, err := h.administrations.Create(in, at)
	if err != nil {
		writeInternal(w, h.logger, "failed to record administration", err)
		return
	}
	h.publish(ws.ActionCreated, ad)
	writeJSON(w, http.StatusCreated, ad)
}

func (h *AdministrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	var u model.AdministrationUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	if err := u.Validate(h.now()); err != nil {
		writeInvalid(w, h.logger, err)
		return
	}
	if !h.checkCaregiver(w, u.CaregiverID) {
		return
	}

	ad, err := h.administrations.Update(existing.ID, u)
	if err != nil {
		writeInternal(w, h.logger, "failed to update administration", err)
		return
	}
	h.publish(ws.ActionUpdated, ad)
	writeJSON(w, http.StatusOK, ad)
}

func (h *AdministrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.administrations.Delete(existing.ID); err != nil {
		writeInternal(w, h.logger, "failed to delete administration", err)
		return
	}
	h.publish(ws.ActionDeleted, existing)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdministrationHandler) publish(action string, ad *model.Administration) {
	h.hub.Publish(ws.EntityAdministration, action, ad.ID, map[string]any{"assignment_id": ad.AssignmentID})
}

// checkCaregiver answers 400 when id names a missing or inactive caregiver.
func (h *AdministrationHandler) checkCaregiver(w http.ResponseWriter, id *int64) bool {
	if id == nil {
		return true
	}
	c, err := h.caregivers.GetActive(*id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get caregiver", err)
		return false
	}
	if c == nil {
		writeDetail(w, http.StatusBadRequest, "Caregiver not found or inactive")
		return false
	}
	return true
}

func (h *AdministrationHandler) load(w http.ResponseWriter, r *http.Request) (*model.Administration, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	ad, err := h.administrations.GetByID(id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get administration", err)
		return nil, false
	}
	if ad == nil {
		writeDetail(w, http.StatusNotFound, "Administration not found")
		return nil, false
	}
	return ad, true
}
