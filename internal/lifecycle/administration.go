package lifecycle

import (
	"context"
	"fmt"

	"github.com/dukerupert/medtrack/internal/model"
)

// RecordDose validates and records a new administration. Times are sent as UTC.
func (m *Manager) RecordDose(ctx context.Context, in model.AdministrationInput) (*model.Administration, error) {
	if err := in.Validate(m.now()); err != nil {
		return nil, err
	}
	if in.AdministeredAt != nil {
		at := in.AdministeredAt.UTC()
		in.AdministeredAt = &at
	}

	a, err := m.api.CreateAdministration(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("record dose: %w", err)
	}
	m.logger.Info("dose recorded", "id", a.ID, "assignment_id", a.AssignmentID, "administered_at", a.AdministeredAt)
	m.changed()
	return a, nil
}

// EditDose corrects a recorded administration.
func (m *Manager) EditDose(ctx context.Context, id int64, u model.AdministrationUpdate) (*model.Administration, error) {
	if err := u.Validate(m.now()); err != nil {
		return nil, err
	}
	if u.AdministeredAt != nil {
		at := u.AdministeredAt.UTC()
		u.AdministeredAt = &at
	}

	a, err := m.api.UpdateAdministration(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("edit dose: %w", err)
	}
	m.changed()
	return a, nil
}

func (m *Manager) DeleteDose(ctx context.Context, id int64) error {
	if err := m.api.DeleteAdministration(ctx, id); err != nil {
		return fmt.Errorf("delete dose: %w", err)
	}
	m.changed()
	return nil
}
