package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

type InventoryHandler struct {
	inventory   *store.InventoryStore
	medications *store.MedicationStore
	hub         *ws.Hub
	logger      *slog.Logger
}

func NewInventoryHandler(inventory *store.InventoryStore, medications *store.MedicationStore, hub *ws.Hub, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, medications: medications, hub: hub, logger: logger}
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.List()
	if err != nil {
		writeInternal(w, h.logger, "failed to list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.LowStock()
	if err != nil {
		writeInternal(w, h.logger, "failed to list low stock", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if ok {
		writeJSON(w, http.StatusOK, rec)
	}
}

// Upsert creates the medication's stock record or replaces the existing one.
func (h *InventoryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in model.InventoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Unit = strings.TrimSpace(in.Unit)
	if err := in.Validate(); err != nil {
		writeInvalid(w, h.logger, err)
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

	rec, created, err := h.inventory.Upsert(in)
	if err != nil {
		writeInternal(w, h.logger, "failed to save inventory", err)
		return
	}
	status, action := http.StatusOK, ws.ActionUpdated
	if created {
		status, action = http.StatusCreated, ws.ActionCreated
	}
	h.hub.Publish(ws.EntityInventory, action, rec.ID, map[string]any{"medication_id": rec.MedicationID})
	writeJSON(w, status, rec)
}

func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	var u model.InventoryUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	// Reuse the create checks on the merged record.
	merged := model.InventoryInput{
		MedicationID:      existing.MedicationID,
		Quantity:          existing.Quantity,
		Unit:              existing.Unit,
		LowStockThreshold: existing.LowStockThreshold,
	}
	if u.Quantity != nil {
		merged.Quantity = *u.Quantity
	}
	if u.Unit != nil {
		merged.Unit = strings.TrimSpace(*u.Unit)
		u.Unit = &merged.Unit
	}
	if u.LowStockThreshold != nil {
		merged.LowStockThreshold = u.LowStockThreshold
	}
	if err := merged.Validate(); err != nil {
		writeInvalid(w, h.logger, err)
		return
	}

	rec, err := h.inventory.Update(existing.ID, u)
	if err != nil {
		writeInternal(w, h.logger, "failed to update inventory", err)
		return
	}
	h.hub.Publish(ws.EntityInventory, ws.ActionUpdated, rec.ID, map[string]any{"medication_id": rec.MedicationID})
	writeJSON(w, http.StatusOK, rec)
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.inventory.Delete(existing.ID); err != nil {
		writeInternal(w, h.logger, "failed to delete inventory", err)
		return
	}
	h.hub.Publish(ws.EntityInventory, ws.ActionDeleted, existing.ID, map[string]any{"medication_id": existing.MedicationID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) load(w http.ResponseWriter, r *http.Request) (*model.InventoryRecord, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	rec, err := h.inventory.GetByID(id)
	if err != nil {
		writeInternal(w, h.logger, "failed to get inventory", err)
		return nil, false
	}
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Inventory record not found")
		return nil, false
	}
	return rec, true
}
