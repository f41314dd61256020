// Package gateway sends requests to the medication API with offline
// detection, retry with backoff, and classified errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// RequestIDHeader carries one id per logical request, repeated on retries.
const RequestIDHeader = "X-Request-ID"

type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/api".
	BaseURL      string
	HTTPClient   *http.Client
	Retry        RetryPolicy
	Connectivity Connectivity
	Logger       *slog.Logger
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy
	conn       Connectivity
	logger     *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		policy:     cfg.Retry,
		conn:       cfg.Connectivity,
		logger:     cfg.Logger,
	}
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	NoContent  bool
	RequestID  string
	Attempts   int
}

// Decode unmarshals the JSON body into v. A no-content response leaves v
// untouched.
func (r *Response) Decode(v any) error {
	if r.NoContent || v == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Send issues method on endpoint (relative to BaseURL) with body encoded as
// JSON when non-nil.
func (c *Client) Send(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}
	return c.do(ctx, method, endpoint, payload, "application/json")
}

// SendMultipart uploads content as a single file field.
func (c *Client) SendMultipart(ctx context.Context, endpoint, field, filename string, content io.Reader) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, buf.Bytes(), mw.FormDataContentType())
}

// Get is Send with GET and a decoded JSON result.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	resp, err := c.Send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, contentType string) (*Response, error) {
	if c.conn != nil && !c.conn.Online() {
		return nil, newError(method, endpoint, KindOffline, 0, "", nil)
	}

	reqID := uuid.NewString()
	var (
		attempts int
		lastErr  *Error
		result   *Response
	)

	backoff := c.policy.Backoff()
	logged := retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := backoff.Next()
		if !stop {
			c.logger.Warn("retrying request",
				"method", method,
				"endpoint", endpoint,
				"attempt", attempts,
				"delay", d,
				"status", lastErr.Status,
				"request_id", reqID,
			)
		}
		return d, stop
	})

	err := retry.Do(ctx, logged, func(ctx context.Context) error {
		attempts++
		resp, err := c.attempt(ctx, method, endpoint, payload, contentType, reqID)
		if err != nil {
			var gerr *Error
			if errors.As(err, &gerr) {
				lastErr = gerr
				if gerr.Retryable() {
					return retry.RetryableError(gerr)
				}
			}
			return err
		}
		resp.Attempts = attempts
		result = resp
		return nil
	})
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			gerr.Attempts = attempts
			return nil, gerr
		}
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return result, nil
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte, contentType, reqID string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportError(method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(method, endpoint, err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, NoContent: true, RequestID: reqID}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, detail := parseErrorBody(data)
		gerr := newError(method, endpoint, kindForStatus(resp.StatusCode), resp.StatusCode, msg, nil)
		gerr.Detail = detail
		return nil, gerr
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data, RequestID: reqID}, nil
}

// transportError classifies a failure below HTTP: refused connections, DNS
// and timeouts.
func transportError(method, endpoint string, err error) *Error {
	kind := KindNetwork
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		kind = KindTimeout
	}
	return newError(method, endpoint, kind, 0, "", err)
}
