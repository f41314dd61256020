// Package server wires the stores, handlers and websocket hub into the HTTP
// API served under /api.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/medtrack/internal/handler"
	"github.com/dukerupert/medtrack/internal/middleware"
	"github.com/dukerupert/medtrack/internal/store"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

type Options struct {
	// RateLimit is requests per minute per client; zero disables limiting.
	RateLimit int
}

type Server struct {
	db              *sql.DB
	hub             *ws.Hub
	familyMemberH   *handler.FamilyMemberHandler
	caregiverH      *handler.CaregiverHandler
	medicationH     *handler.MedicationHandler
	assignmentH     *handler.AssignmentHandler
	administrationH *handler.AdministrationHandler
	inventoryH      *handler.InventoryHandler
	exportH         *handler.ExportHandler
	rateLimiter     *middleware.RateLimiter
	opts            Options
	logger          *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	members := store.NewFamilyMemberStore(db)
	caregivers := store.NewCaregiverStore(db)
	medications := store.NewMedicationStore(db)
	assignments := store.NewAssignmentStore(db)
	administrations := store.NewAdministrationStore(db)
	inventory := store.NewInventoryStore(db)

	return &Server{
		db:              db,
		hub:             hub,
		familyMemberH:   handler.NewFamilyMemberHandler(members, hub, logger.With("component", "family_member")),
		caregiverH:      handler.NewCaregiverHandler(caregivers, hub, logger.With("component", "caregiver")),
		medicationH:     handler.NewMedicationHandler(medications, hub, logger.With("component", "medication")),
		assignmentH:     handler.NewAssignmentHandler(assignments, members, medications, administrations, hub, logger.With("component", "assignment")),
		administrationH: handler.NewAdministrationHandler(administrations, assignments, caregivers, hub, logger.With("component", "administration")),
		inventoryH:      handler.NewInventoryHandler(inventory, medications, hub, logger.With("component", "inventory")),
		exportH:         handler.NewExportHandler(store.NewExportStore(db), hub, logger.With("component", "export")),
		rateLimiter:     middleware.NewRateLimiter(),
		opts:            opts,
		logger:          logger,
	}
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	api := http.NewServeMux()
	s.registerAPIRoutes(api)
	limit := middleware.RateLimit(s.rateLimiter, s.opts.RateLimit, time.Minute)
	mux.Handle("/api/", limit(api))

	return middleware.WithRequestID(middleware.RequestLogger(s.logger.With("component", "http"))(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": s.hub.ClientCount()})
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/family-members", s.familyMemberH.Create)
	mux.HandleFunc("GET /api/family-members/{id}", s.familyMemberH.Get)
	mux.HandleFunc("PUT /api/family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/family-members/{id}", s.familyMemberH.Delete)
	mux.HandleFunc("GET /api/family-members/{id}/can-delete", s.familyMemberH.CanDelete)

	mux.HandleFunc("GET /api/caregivers", s.caregiverH.List)
	mux.HandleFunc("POST /api/caregivers", s.caregiverH.Create)
	mux.HandleFunc("GET /api/caregivers/{id}", s.caregiverH.Get)
	mux.HandleFunc("PUT /api/caregivers/{id}", s.caregiverH.Update)
	mux.HandleFunc("DELETE /api/caregivers/{id}", s.caregiverH.Delete)
	mux.HandleFunc("GET /api/caregivers/{id}/can-delete", s.caregiverH.CanDelete)

	mux.HandleFunc("GET /api/medications", s.medicationH.List)
	mux.HandleFunc("POST /api/medications", s.medicationH.Create)
	mux.HandleFunc("GET /api/medications/{id}", s.medicationH.Get)
	mux.HandleFunc("PUT /api/medications/{id}", s.medicationH.Update)
	mux.HandleFunc("DELETE /api/medications/{id}", s.medicationH.Delete)
	mux.HandleFunc("GET /api/medications/{id}/can-delete", s.medicationH.CanDelete)

	mux.HandleFunc("GET /api/assignments", s.assignmentH.List)
	mux.HandleFunc("POST /api/assignments", s.assignmentH.Create)
	mux.HandleFunc("GET /api/assignments/scheduled/list", s.assignmentH.Scheduled)
	mux.HandleFunc("GET /api/assignments/{id}", s.assignmentH.Get)
	mux.HandleFunc("PUT /api/assignments/{id}", s.assignmentH.Update)
	mux.HandleFunc("DELETE /api/assignments/{id}", s.assignmentH.Delete)
	mux.HandleFunc("GET /api/assignments/{id}/status", s.assignmentH.Status)
	mux.HandleFunc("GET /api/assignments/{id}/can-administer", s.assignmentH.CanAdminister)
	mux.HandleFunc("GET /api/assignments/{id}/edit-history", s.assignmentH.EditHistory)

	mux.HandleFunc("GET /api/administrations", s.administrationH.List)
	mux.HandleFunc("POST /api/administrations", s.administrationH.Create)
	mux.HandleFunc("GET /api/administrations/{id}", s.administrationH.Get)
	mux.HandleFunc("PUT /api/administrations/{id}", s.administrationH.Update)
	mux.HandleFunc("DELETE /api/administrations/{id}", s.administrationH.Delete)

	mux.HandleFunc("GET /api/inventory", s.inventoryH.List)
	mux.HandleFunc("POST /api/inventory", s.inventoryH.Upsert)
	mux.HandleFunc("GET /api/inventory/low-stock", s.inventoryH.LowStock)
	mux.HandleFunc("GET /api/inventory/{id}", s.inventoryH.Get)
	mux.HandleFunc("PUT /api/inventory/{id}", s.inventoryH.Update)
	mux.HandleFunc("DELETE /api/inventory/{id}", s.inventoryH.Delete)

	mux.HandleFunc("GET /api/export/json", s.exportH.JSON)
	mux.HandleFunc("GET /api/export/csv", s.exportH.CSV)
	mux.HandleFunc("POST /api/export/import/json", s.exportH.ImportJSON)
}
