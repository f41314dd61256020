package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

type nameRequest struct {
	Name string `json:"name"`
}

type FamilyMemberHandler struct {
	store  *store.FamilyMemberStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore, hub *ws.Hub, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{store: s, hub: hub, logger: logger}
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List()
	if err != nil {
		writeInternal(w, h.logger, "failed to list family members", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(members))
}

func (h *FamilyMemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, ok := h.load(w, r)
	if ok {
		writeJSON(w, http.StatusOK, member)
	}
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := trimmedName(req.Name)
	if err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	member, err := h.store.Create(name)
	if err != nil {
		writeInternal(w, h.logger, "failed to create family member", err)
		return
	}
	h.hub.Publish(ws.EntityFamilyMember, ws.ActionCreated, member.ID, nil)
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	member, err := h.store.Rename(existing.ID, name)
	if err != nil {
		writeInternal(w, h.logger, "failed to update family member", err)
		return
	}
	h.hub.Publish(ws.EntityFamilyMember, ws.ActionUpdated, member.ID, nil)
	writeJSON(w, http.StatusOK, member)
}

// Delete deactivates the member. Active assignments block it.
func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	check, err := h.store.Dependencies(existing.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check family member dependencies", err)
		return
	}
	if !check.CanDelete {
		writeDetail(w, http.StatusConflict, "Cannot delete family member with active medication assignments")
		return
	}

	if err := h.store.Deactivate(existing.ID); err != nil {
		writeInternal(w, h.logger, "failed to delete family member", err)
		return
	}
	h.hub.Publish(ws.EntityFamilyMember, ws.ActionDeleted, existing.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyMemberHandler) CanDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	check, err := h.store.Dependencies(existing.ID)
	if err != nil {
		writeInternal(w, h.logger, "failed to check family member dependencies", err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// load fetches the {id} member, answering 400 or 404 itself when it cannot.
func (h *FamilyMemberHandler) load(w http.ResponseWriter, r *http.Request) (*model.FamilyMember, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	member, err := h.store.GetByID(id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get family member", err)
		return nil, false
	}
	if member == nil || !member.Active {
		writeDetail(w, http.StatusNotFound, "Family member not found")
		return nil, false
	}
	return member, true
}
