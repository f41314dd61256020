package medapi

import (
	"bytes"
	"context"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
)

// ExportJSON downloads the raw JSON dump.
func (c *Client) ExportJSON(ctx context.Context) ([]byte, error) {
	resp, err := c.gw.Send(ctx, http.MethodGet, "/export/json", nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ExportCSV downloads the administration history as CSV.
func (c *Client) ExportCSV(ctx context.Context) ([]byte, error) {
	resp, err := c.gw.Send(ctx, http.MethodGet, "/export/csv", nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ImportJSON uploads a JSON dump. Records whose ids already exist are skipped.
func (c *Client) ImportJSON(ctx context.Context, filename string, data []byte) (*model.ImportResult, error) {
	resp, err := c.gw.SendMultipart(ctx, "/export/import/json", "file", filename, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var out model.ImportResult
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
