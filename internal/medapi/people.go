package medapi

import (
	"context"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
)

type nameBody struct {
	Name string `json:"name"`
}

func (c *Client) ListFamilyMembers(ctx context.Context) ([]model.FamilyMember, error) {
	var out []model.FamilyMember
	if err := c.get(ctx, "/family-members", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFamilyMember(ctx context.Context, name string) (*model.FamilyMember, error) {
	var out model.FamilyMember
	if err := c.send(ctx, http.MethodPost, "/family-members", nameBody{name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameFamilyMember(ctx context.Context, id int64, name string) (*model.FamilyMember, error) {
	var out model.FamilyMember
	if err := c.send(ctx, http.MethodPut, itemPath("family-members", id), nameBody{name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFamilyMember(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, itemPath("family-members", id), nil, nil)
}

func (c *Client) CanDeleteFamilyMember(ctx context.Context, id int64) (*model.DeleteCheck, error) {
	var out model.DeleteCheck
	if err := c.get(ctx, itemPath("family-members", id, "can-delete"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCaregivers(ctx context.Context) ([]model.Caregiver, error) {
	var out []model.Caregiver
	if err := c.get(ctx, "/caregivers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCaregiver(ctx context.Context, name string) (*model.Caregiver, error) {
	var out model.Caregiver
	if err := c.send(ctx, http.MethodPost, "/caregivers", nameBody{name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameCaregiver(ctx context.Context, id int64, name string) (*model.Caregiver, error) {
	var out model.Caregiver
	if err := c.send(ctx, http.MethodPut, itemPath("caregivers", id), nameBody{name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCaregiver(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, itemPath("caregivers", id), nil, nil)
}

func (c *Client) CanDeleteCaregiver(ctx context.Context, id int64) (*model.DeleteCheck, error) {
	var out model.DeleteCheck
	if err := c.get(ctx, itemPath("caregivers", id, "can-delete"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
