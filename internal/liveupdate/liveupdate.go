// Package liveupdate subscribes to the server's change feed and keeps the
// client's views current, reconnecting with backoff when the feed drops.
package liveupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/medtrack/internal/websocket"
)

// Handler is called for each message, in order.
type Handler func(ctx context.Context, msg websocket.Message)

// Subscriber holds one change-feed connection open.
type Subscriber struct {
	url        string
	handle     Handler
	logger     *slog.Logger
	httpClient *http.Client
	onConnect  func(ctx context.Context)
	backoff    func() retry.Backoff
}

func DefaultBackoff() retry.Backoff {
	return retry.WithJitterPercent(20, retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second)))
}

func New(feedURL string, handle Handler, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		url:     feedURL,
		handle:  handle,
		logger:  logger.With("component", "liveupdate"),
		backoff: DefaultBackoff,
	}
}

// OnConnect registers fn to run after every successful (re)connect. Messages
// sent while disconnected are lost, so this is where views do a full reload.
func (s *Subscriber) OnConnect(fn func(ctx context.Context)) {
	s.onConnect = fn
}

// FeedURL derives the websocket endpoint from the REST base URL:
// http://host/api becomes ws://host/ws.
func FeedURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Run keeps the subscription alive until ctx is done. The backoff starts
// over after every connection that was established.
func (s *Subscriber) Run(ctx context.Context) error {
	b := s.backoff()
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			b = s.backoff()
		}

		delay, stop := b.Next()
		if stop {
			return fmt.Errorf("change feed: %w", err)
		}
		s.logger.Warn("change feed disconnected", "error", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Subscriber) session(ctx context.Context) (bool, error) {
	conn, _, err := ws.Dial(ctx, s.url, &ws.DialOptions{HTTPClient: s.httpClient})
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.CloseNow()

	s.logger.Info("change feed connected", "url", s.url)
	if s.onConnect != nil {
		s.onConnect(ctx)
	}

	for {
		var msg websocket.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ws.CloseStatus(err) == ws.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return true, errors.New("connection closed")
			}
			return true, err
		}
		s.logger.Debug("change received", "type", msg.Type, "id", msg.ID)
		s.handle(ctx, msg)
	}
}
