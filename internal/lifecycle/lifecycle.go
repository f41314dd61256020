// Package lifecycle runs the assignment and administration workflows:
// creating with duplicate resolution, editing, stopping, reactivating,
// recording doses and guarded deletes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/medtrack/internal/medapi"
	"github.com/dukerupert/medtrack/internal/model"
)

// ErrInactiveReuse is returned when a resolver asks to reuse a stopped
// assignment without reactivating it.
var ErrInactiveReuse = errors.New("existing assignment is inactive and must be reactivated to be used")

// API is the subset of the REST client the workflows need.
type API interface {
	CreateAssignment(ctx context.Context, in model.AssignmentInput) (*model.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (*model.Assignment, error)
	UpdateAssignment(ctx context.Context, id int64, u model.AssignmentUpdate) (*model.Assignment, error)
	SetAssignmentActive(ctx context.Context, id int64, active bool) (*model.Assignment, error)
	StopAssignment(ctx context.Context, id int64) error
	EditHistory(ctx context.Context, id int64) ([]model.AssignmentEditLog, error)

	CreateAdministration(ctx context.Context, in model.AdministrationInput) (*model.Administration, error)
	UpdateAdministration(ctx context.Context, id int64, u model.AdministrationUpdate) (*model.Administration, error)
	DeleteAdministration(ctx context.Context, id int64) error

	CanDeleteFamilyMember(ctx context.Context, id int64) (*model.DeleteCheck, error)
	DeleteFamilyMember(ctx context.Context, id int64) error
	CanDeleteCaregiver(ctx context.Context, id int64) (*model.DeleteCheck, error)
	DeleteCaregiver(ctx context.Context, id int64) error
	CanDeleteMedication(ctx context.Context, id int64) (*model.DeleteCheck, error)
	DeleteMedication(ctx context.Context, id int64) error
}

var _ API = (*medapi.Client)(nil)

type Manager struct {
	api      API
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time
	onChange func()
}

func New(api API, resolver Resolver, logger *slog.Logger) *Manager {
	if resolver == nil {
		resolver = CancelOnConflict
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:      api,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// OnChange registers fn to run after every successful mutation so views can
// re-fetch.
func (m *Manager) OnChange(fn func()) {
	m.onChange = fn
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// Outcome says how Create ended.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeReused      Outcome = "reused"
	OutcomeReactivated Outcome = "reactivated"
	OutcomeCancelled   Outcome = "cancelled"
)

type CreateResult struct {
	Outcome    Outcome
	Assignment *model.Assignment // nil when cancelled
	Conflict   *model.AssignmentConflict
}

// Create validates and submits a new assignment. When one already exists for
// the same family member and medication, the resolver decides what to do; a
// duplicate is never created.
func (m *Manager) Create(ctx context.Context, in model.AssignmentInput) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	a, err := m.api.CreateAssignment(ctx, in)
	if err == nil {
		m.logger.Info("assignment created", "id", a.ID, "family_member_id", a.FamilyMemberID, "medication_id", a.MedicationID)
		m.changed()
		return &CreateResult{Outcome: OutcomeCreated, Assignment: a}, nil
	}

	conflict, ok := medapi.AsConflict(err)
	if !ok {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	decision, err := m.resolver.ResolveConflict(ctx, *conflict)
	if err != nil {
		return nil, fmt.Errorf("resolve conflict: %w", err)
	}
	m.logger.Info("assignment conflict",
		"existing_id", conflict.ExistingAssignmentID,
		"is_active", conflict.IsActive,
		"decision", decision,
	)

	res := &CreateResult{Conflict: conflict}
	switch {
	case decision == Cancel:
		res.Outcome = OutcomeCancelled
		return res, nil

	case conflict.IsActive:
		// Reactivating an active assignment is the same as using it.
		existing, err := m.api.GetAssignment(ctx, conflict.ExistingAssignmentID)
		if err != nil {
			return nil, fmt.Errorf("get existing assignment: %w", err)
		}
		res.Outcome = OutcomeReused
		res.Assignment = existing
		return res, nil

	case decision == Reactivate:
		existing, err := m.Reactivate(ctx, conflict.ExistingAssignmentID)
		if err != nil {
			return nil, err
		}
		res.Outcome = OutcomeReactivated
		res.Assignment = existing
		return res, nil
	}

	return nil, ErrInactiveReuse
}

// Update replaces the editable fields of an assignment. The server records an
// edit log entry for every field whose value changed.
func (m *Manager) Update(ctx context.Context, id int64, u model.AssignmentUpdate) (*model.Assignment, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	a, err := m.api.UpdateAssignment(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	m.changed()
	return a, nil
}

// Stop deactivates an assignment. Its administrations are kept and it can be
// reactivated later.
func (m *Manager) Stop(ctx context.Context, id int64) error {
	if err := m.api.StopAssignment(ctx, id); err != nil {
		return fmt.Errorf("stop assignment: %w", err)
	}
	m.logger.Info("assignment stopped", "id", id)
	m.changed()
	return nil
}

func (m *Manager) Reactivate(ctx context.Context, id int64) (*model.Assignment, error) {
	a, err := m.api.SetAssignmentActive(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("reactivate assignment: %w", err)
	}
	m.logger.Info("assignment reactivated", "id", id)
	m.changed()
	return a, nil
}

// EditHistory returns the assignment's edit log, newest first.
func (m *Manager) EditHistory(ctx context.Context, id int64) ([]model.AssignmentEditLog, error) {
	logs, err := m.api.EditHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("edit history: %w", err)
	}
	return logs, nil
}
