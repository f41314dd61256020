package medapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/medtrack/internal/model"
)

// AssignmentFilter narrows ListAssignments. A nil Active lists both states.
type AssignmentFilter struct {
	FamilyMemberID int64
	Active         *bool
}

func (c *Client) ListAssignments(ctx context.Context, f AssignmentFilter) ([]model.Assignment, error) {
	q := url.Values{}
	setInt(q, "family_member_id", f.FamilyMemberID)
	if f.Active != nil {
		q.Set("active", strconv.FormatBool(*f.Active))
	}
	var out []model.Assignment
	if err := c.get(ctx, withQuery("/assignments", q), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	var out model.Assignment
	if err := c.get(ctx, itemPath("assignments", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAssignment posts a new assignment. A duplicate is reported as a 409
// *gateway.Error; use AsConflict to read it.
func (c *Client) CreateAssignment(ctx context.Context, in model.AssignmentInput) (*model.Assignment, error) {
	var out model.Assignment
	if err := c.send(ctx, http.MethodPost, "/assignments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAssignment(ctx context.Context, id int64, u model.AssignmentUpdate) (*model.Assignment, error) {
	var out model.Assignment
	if err := c.send(ctx, http.MethodPut, itemPath("assignments", id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type activeBody struct {
	Active bool `json:"active"`
}

// SetAssignmentActive toggles only the active flag.
func (c *Client) SetAssignmentActive(ctx context.Context, id int64, active bool) (*model.Assignment, error) {
	var out model.Assignment
	if err := c.send(ctx, http.MethodPut, itemPath("assignments", id), activeBody{active}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopAssignment deactivates an assignment. History is kept.
func (c *Client) StopAssignment(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, itemPath("assignments", id), nil, nil)
}

// AssignmentStatus is the server-computed verdict.
func (c *Client) AssignmentStatus(ctx context.Context, id int64) (*model.StatusVerdict, error) {
	var out model.StatusVerdict
	if err := c.get(ctx, itemPath("assignments", id, "status"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditHistory(ctx context.Context, id int64) ([]model.AssignmentEditLog, error) {
	var out []model.AssignmentEditLog
	if err := c.get(ctx, itemPath("assignments", id, "edit-history"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduledAssignments lists active assignments with a calendar schedule.
func (c *Client) ScheduledAssignments(ctx context.Context) ([]model.Assignment, error) {
	var out []model.Assignment
	if err := c.get(ctx, "/assignments/scheduled/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}
