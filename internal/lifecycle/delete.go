package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/medtrack/internal/model"
)

// BlockedError is returned by the guarded deletes when dependencies remain.
type BlockedError struct {
	Entity string
	ID     int64
	Check  model.DeleteCheck
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: %s", e.Entity, e.ID, strings.Join(e.Check.Reasons(), "; "))
}

func (m *Manager) DeleteFamilyMember(ctx context.Context, id int64) error {
	return m.guardedDelete(ctx, "family member", id, m.api.CanDeleteFamilyMember, m.api.DeleteFamilyMember)
}

func (m *Manager) DeleteCaregiver(ctx context.Context, id int64) error {
	return m.guardedDelete(ctx, "caregiver", id, m.api.CanDeleteCaregiver, m.api.DeleteCaregiver)
}

func (m *Manager) DeleteMedication(ctx context.Context, id int64) error {
	return m.guardedDelete(ctx, "medication", id, m.api.CanDeleteMedication, m.api.DeleteMedication)
}

func (m *Manager) guardedDelete(
	ctx context.Context,
	entity string,
	id int64,
	check func(context.Context, int64) (*model.DeleteCheck, error),
	del func(context.Context, int64) error,
) error {
	c, err := check(ctx, id)
	if err != nil {
		return fmt.Errorf("check %s dependencies: %w", entity, err)
	}
	if !c.CanDelete {
		return &BlockedError{Entity: entity, ID: id, Check: *c}
	}
	if err := del(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	m.logger.Info("deleted", "entity", entity, "id", id)
	m.changed()
	return nil
}
