package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

type CaregiverHandler struct {
	store  *store.CaregiverStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewCaregiverHandler(s *store.CaregiverStore, hub *ws.Hub, logger *slog.Logger) *CaregiverHandler {
	return &CaregiverHandler{store: s, hub: hub, logger: logger}
}

func (h *CaregiverHandler) List(w http.ResponseWriter, r *http.Request) {
	caregivers, err := h.store.List()
	if err != nil {
		writeInternal(w, h.logger, "failed to list caregivers", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(caregivers))
}

func (h *CaregiverHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if ok {
		writeJSON(w, http.StatusOK, c)
	}
}

func (h *CaregiverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := trimmedName(req.Name)
	if err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	c, err := h.store.Create(name)
	if err != nil {
		writeInternal(w, h.logger, "failed to create caregiver", err)
		return
	}
	h.hub.Publish(ws.EntityCaregiver, ws.ActionCreated, c.ID, nil)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CaregiverHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := trimmedName(req.Name)
	if err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	c, err := h.store.Rename(existing.ID, name)
	if err != nil {
		writeInternal(w, h.logger, "failed to update caregiver", err)
		return
	}
	h.hub.Publish(ws.EntityCaregiver, ws.ActionUpdated, c.ID, nil)
	writeJSON(w, http.StatusOK, c)
}

// Delete deactivates the caregiver. Recorded administrations block it.
func (h *CaregiverHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	check, err := h.store.Dependencies(existing.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check caregiver dependencies", err)
		return
	}
	if !check.CanDelete {
		writeDetail(w, http.StatusConflict, "Cannot delete caregiver with recorded administrations")
		return
	}
	if err := h.store.Deactivate(existing.ID); err != nil {
		writeInternal(w, h.logger, "failed to delete caregiver", err)
		return
	}
	h.hub.Publish(ws.EntityCaregiver, ws.ActionDeleted, existing.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CaregiverHandler) CanDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	check, err := h.store.Dependencies(existing.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check caregiver dependencies", err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *CaregiverHandler) load(w http.ResponseWriter, r *http.Request) (*model.Caregiver, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.store.GetActive(id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get caregiver", err)
		return nil, false
	}
	if c == nil {
		writeDetail(w, http.StatusNotFound, "Caregiver not found")
		return nil, false
	}
	return c, true
}
