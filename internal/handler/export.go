package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

const maxImportSize = 32 << 20

type ExportHandler struct {
	store  *store.ExportStore
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
}

func NewExportHandler(s *store.ExportStore, hub *ws.Hub, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{store: s, hub: hub, logger: logger, now: time.Now}
}

func (h *ExportHandler) JSON(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Export()
	if err != nil {
		writeInternal(w, h.logger, "failed to export data", err)
		return
	}
	h.attachment(w, "json")
	writeJSON(w, http.StatusOK, doc)
}

func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	h.attachment(w, "csv")
	if err := h.store.CSV(w); err != nil {
		// Headers are gone; the truncated body is all the client gets.
		h.logger.Error("failed to write csv export", "error", err)
	}
}

func (h *ExportHandler) attachment(w http.ResponseWriter, ext string) {
	name := fmt.Sprintf("medication_export_%s.%s", h.now().Format("2006-01-02"), ext)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

// ImportJSON reads a JSON dump from the multipart field "file" and inserts
// the records whose ids are not already present.
func (h *ExportHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "A JSON file is required in field \"file\"")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".json") {
		writeDetail(w, http.StatusBadRequest, "File must be a JSON file")
		return
	}
	var doc model.Export
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON file")
		return
	}

	counts, err := h.store.Import(&doc)
	if err != nil {
		writeInternal(w, h.logger, "failed to import data", err)
		return
	}
	h.logger.Info("data imported", "counts", counts)
	h.hub.Publish(ws.EntityData, ws.ActionImported, 0, nil)
	writeJSON(w, http.StatusOK, model.ImportResult{Message: "Import completed", Imported: counts})
}
