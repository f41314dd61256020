package liveupdate

import (
	"context"
	"log/slog"

	"github.com/dukerupert/medtrack/internal/dashboard"
	"github.com/dukerupert/medtrack/internal/websocket"
)

// Views are the client views a change can invalidate. Nil views are skipped.
type Views struct {
	State     *dashboard.State
	Catalog   *dashboard.Catalog
	Inventory *dashboard.Inventory
}

func (v Views) reloaders() []dashboard.Reloader {
	var out []dashboard.Reloader
	if v.State != nil {
		out = append(out, v.State)
	}
	if v.Catalog != nil {
		out = append(out, v.Catalog)
	}
	if v.Inventory != nil {
		out = append(out, v.Inventory)
	}
	return out
}

// ReloadAll reloads every view; used after (re)connecting.
func (v Views) ReloadAll(ctx context.Context) error {
	return dashboard.ReloadAll(ctx, v.reloaders()...)
}

// DashboardHandler re-fetches whatever a change touched.
func DashboardHandler(v Views, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, msg websocket.Message) {
		if err := v.apply(ctx, msg); err != nil {
			logger.Warn("apply change", "type", msg.Type, "id", msg.ID, "error", err)
		}
	}
}

func (v Views) apply(ctx context.Context, msg websocket.Message) error {
	switch msg.Entity {
	case websocket.EntityAdministration:
		if v.State == nil {
			return nil
		}
		if id, ok := msg.ExtraID("assignment_id"); ok {
			return v.State.Refresh(ctx, id)
		}
		return v.State.Load(ctx)

	case websocket.EntityAssignment:
		if v.State == nil {
			return nil
		}
		switch msg.Action {
		case websocket.ActionCreated, websocket.ActionReactivated:
			return v.State.Load(ctx)
		default:
			return v.State.Refresh(ctx, msg.ID)
		}

	case websocket.EntityMedication, websocket.EntityFamilyMember, websocket.EntityCaregiver:
		// Cards embed names and default frequencies.
		var views []dashboard.Reloader
		if v.Catalog != nil {
			views = append(views, v.Catalog)
		}
		if v.State != nil {
			views = append(views, v.State)
		}
		return dashboard.ReloadAll(ctx, views...)

	case websocket.EntityInventory:
		if v.Inventory == nil {
			return nil
		}
		return v.Inventory.Reload(ctx)

	default:
		return v.ReloadAll(ctx)
	}
}
