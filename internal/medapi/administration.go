package medapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/medtrack/internal/model"
)

func (c *Client) ListAdministrations(ctx context.Context, f model.AdministrationFilter) ([]model.Administration, error) {
	q := url.Values{}
	setInt(q, "assignment_id", f.AssignmentID)
	setInt(q, "family_member_id", f.FamilyMemberID)
	setInt(q, "medication_id", f.MedicationID)
	setTime(q, "start_date", f.Start)
	setTime(q, "end_date", f.End)
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var out []model.Administration
	if err := c.get(ctx, withQuery("/administrations", q), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LastAdministration returns the newest administration for an assignment, or
// nil when none has been recorded.
func (c *Client) LastAdministration(ctx context.Context, assignmentID int64) (*model.Administration, error) {
	list, err := c.ListAdministrations(ctx, model.AdministrationFilter{AssignmentID: assignmentID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (c *Client) GetAdministration(ctx context.Context, id int64) (*model.Administration, error) {
	var out model.Administration
	if err := c.get(ctx, itemPath("administrations", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAdministration(ctx context.Context, in model.AdministrationInput) (*model.Administration, error) {
	var out model.Administration
	if err := c.send(ctx, http.MethodPost, "/administrations", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAdministration(ctx context.Context, id int64, u model.AdministrationUpdate) (*model.Administration, error) {
	var out model.Administration
	if err := c.send(ctx, http.MethodPut, itemPath("administrations", id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAdministration(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, itemPath("administrations", id), nil, nil)
}

