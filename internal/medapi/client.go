// Package medapi is a typed client for the medication tracking REST API.
package medapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dukerupert/medtrack/internal/gateway"
	"github.com/dukerupert/medtrack/internal/model"
)

type Client struct {
	gw *gateway.Client
}

func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Gateway exposes the underlying request gateway.
func (c *Client) Gateway() *gateway.Client {
	return c.gw
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.gw.Get(ctx, endpoint, out)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body, out any) error {
	resp, err := c.gw.Send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// AsConflict extracts the duplicate-assignment detail from a 409 failure.
func AsConflict(err error) (*model.AssignmentConflict, bool) {
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || gerr.Status != http.StatusConflict {
		return nil, false
	}
	var conflict model.AssignmentConflict
	if err := gerr.DecodeDetail(&conflict); err != nil || conflict.ExistingAssignmentID == 0 {
		return nil, false
	}
	return &conflict, true
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var gerr *gateway.Error
	return errors.As(err, &gerr) && gerr.Kind == gateway.KindNotFound
}

func itemPath(collection string, id int64, sub ...string) string {
	p := fmt.Sprintf("/%s/%d", collection, id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func setInt(q url.Values, key string, v int64) {
	if v != 0 {
		q.Set(key, strconv.FormatInt(v, 10))
	}
}

func setTime(q url.Values, key string, t *time.Time) {
	if t != nil {
		q.Set(key, t.UTC().Format(time.RFC3339))
	}
}
