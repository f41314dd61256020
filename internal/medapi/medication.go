package medapi

import (
	"context"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
)

func (c *Client) ListMedications(ctx context.Context) ([]model.Medication, error) {
	var out []model.Medication
	if err := c.get(ctx, "/medications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMedication(ctx context.Context, id int64) (*model.Medication, error) {
	var out model.Medication
	if err := c.get(ctx, itemPath("medications", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateMedication(ctx context.Context, in model.MedicationInput) (*model.Medication, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out model.Medication
	if err := c.send(ctx, http.MethodPost, "/medications", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMedication(ctx context.Context, id int64, in model.MedicationInput) (*model.Medication, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out model.Medication
	if err := c.send(ctx, http.MethodPut, itemPath("medications", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMedication(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, itemPath("medications", id), nil, nil)
}

func (c *Client) CanDeleteMedication(ctx context.Context, id int64) (*model.DeleteCheck, error) {
	var out model.DeleteCheck
	if err := c.get(ctx, itemPath("medications", id, "can-delete"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
