package medapi

import (
	"context"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
)

func (c *Client) ListInventory(ctx context.Context) ([]model.InventoryRecord, error) {
	var out []model.InventoryRecord
	if err := c.get(ctx, "/inventory", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LowStock(ctx context.Context) ([]model.InventoryRecord, error) {
	var out []model.InventoryRecord
	if err := c.get(ctx, "/inventory/low-stock", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertInventory creates the medication's record, or replaces it if one exists.
func (c *Client) UpsertInventory(ctx context.Context, in model.InventoryInput) (*model.InventoryRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out model.InventoryRecord
	if err := c.send(ctx, http.MethodPost, "/inventory", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateInventory(ctx context.Context, id int64, u model.InventoryUpdate) (*model.InventoryRecord, error) {
	var out model.InventoryRecord
	if err := c.send(ctx, http.MethodPut, itemPath("inventory", id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteInventory(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, itemPath("inventory", id), nil, nil)
}
