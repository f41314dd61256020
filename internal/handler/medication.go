package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

type MedicationHandler struct {
	store  *store.MedicationStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewMedicationHandler(s *store.MedicationStore, hub *ws.Hub, logger *slog.Logger) *MedicationHandler {
	return &MedicationHandler{store: s, hub: hub, logger: logger}
}

func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	meds, err := h.store.List()
	if err != nil {
		writeInternal(w, h.logger, "failed to list medications", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(meds))
}

func (h *MedicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.load(w, r)
	if ok {
		writeJSON(w, http.StatusOK, m)
	}
}

func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	m, err := h.store.Create(in)
	if err != nil {
		writeInternal(w, h.logger, "failed to create medication", err)
		return
	}
	h.hub.Publish(ws.EntityMedication, ws.ActionCreated, m.ID, nil)
	writeJSON(w, http.StatusCreated, m)
}

// Update replaces the medication. Assignments without overrides pick up the
// new defaults.
func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	m, err := h.store.Update(existing.ID, in)
	if err != nil {
		writeInternal(w, h.logger, "failed to update medication", err)
		return
	}
	h.hub.Publish(ws.EntityMedication, ws.ActionUpdated, m.ID, nil)
	writeJSON(w, http.StatusOK, m)
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	check, err := h.store.Dependencies(existing.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check medication dependencies", err)
		return
	}
	if !check.CanDelete {
		writeDetail(w, http.StatusConflict, "Cannot delete medication: "+strings.Join(check.Reasons(), ", "))
		return
	}

	if err := h.store.Delete(existing.ID); err != nil {
		writeInternal(w, h.logger, "failed to delete medication", err)
		return
	}
	h.hub.Publish(ws.EntityMedication, ws.ActionDeleted, existing.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MedicationHandler) CanDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	check, err := h.store.Dependencies(existing.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check medication dependencies", err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *MedicationHandler) decode(w http.ResponseWriter, r *http.Request) (model.MedicationInput, bool) {
	var in model.MedicationInput
	if !decodeJSON(w, r, &in) {
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	in.DefaultDose = strings.TrimSpace(in.DefaultDose)
	if err := in.Validate(); err != nil {
		writeInvalid(w, h.logger, err)
		return in, false
	}
	return in, true
}

func (h *MedicationHandler) load(w http.ResponseWriter, r *http.Request) (*model.Medication, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	m, err := h.store.GetByID(id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get medication", err)
		return nil, false
	}
	if m == nil {
		writeDetail(w, http.StatusNotFound, "Medication not found")
		return nil, false
	}
	return m, true
}
