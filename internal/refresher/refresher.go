// Package refresher keeps per-key periodic work, such as recomputing an
// assignment's dose status, running at most once per key.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultInterval = 60 * time.Second

// Func is one refresh. Errors are logged and the schedule continues.
type Func func(ctx context.Context) error

type Refresher struct {
	mu       sync.Mutex
	interval time.Duration
	logger   *slog.Logger
	timers   map[int64]*timer
	// draining holds stopped timers whose refresh may still be running.
	draining map[int64]*timer
}

type timer struct {
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
}

func New(interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		interval: interval,
		logger:   logger,
		timers:   make(map[int64]*timer),
		draining: make(map[int64]*timer),
	}
}

// Start runs fn for key now and then every interval until stopped. A timer
// already running or still finishing after Stop is replaced; the new one
// waits for the old one to return so fn never runs twice at once for the
// same key.
func (r *Refresher) Start(ctx context.Context, key int64, fn Func) {
	ctx, cancel := context.WithCancel(ctx)
	t := &timer{
		cancel: cancel,
		done:   make(chan struct{}),
		kick:   make(chan struct{}, 1),
	}

	r.mu.Lock()
	prev, ok := r.timers[key]
	if !ok {
		prev = r.draining[key]
	}
	delete(r.draining, key)
	r.timers[key] = t
	r.mu.Unlock()

	var prevDone <-chan struct{}
	if prev != nil {
		prev.cancel()
		prevDone = prev.done
	}

	go r.run(ctx, key, t, fn, prevDone)
}

func (r *Refresher) run(ctx context.Context, key int64, t *timer, fn Func, prevDone <-chan struct{}) {
	defer close(t.done)
	defer r.release(key, t)

	if prevDone != nil {
		select {
		case <-prevDone:
		case <-ctx.Done():
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.invoke(ctx, key, fn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.invoke(ctx, key, fn)
		case <-t.kick:
			r.invoke(ctx, key, fn)
		}
	}
}

// release forgets t once its goroutine is done, unless key has moved on to
// another timer. This also drops timers whose parent context ended.
func (r *Refresher) release(key int64, t *timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timers[key] == t {
		delete(r.timers, key)
	}
	if r.draining[key] == t {
		delete(r.draining, key)
	}
}

func (r *Refresher) invoke(ctx context.Context, key int64, fn Func) {
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "refresh failed", "key", key, "error", err)
	}
}

// Kick asks key's timer to refresh now without waiting for the next tick.
// It reports whether a timer is running for key.
func (r *Refresher) Kick(key int64) bool {
	r.mu.Lock()
	t, ok := r.timers[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case t.kick <- struct{}{}:
	default:
	}
	return true
}

// Stop cancels key's timer. It does not wait, so fn may call it for its own
// key; a later Start for key waits for the stopped refresh instead.
func (r *Refresher) Stop(key int64) {
	r.mu.Lock()
	t, ok := r.timers[key]
	if ok {
		delete(r.timers, key)
		r.draining[key] = t
	}
	r.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// StopAll cancels every timer and waits for running refreshes to return.
// It must not be called from inside a Func.
func (r *Refresher) StopAll() {
	r.mu.Lock()
	timers := make([]*timer, 0, len(r.timers)+len(r.draining))
	for _, t := range r.timers {
		timers = append(timers, t)
	}
	for _, t := range r.draining {
		timers = append(timers, t)
	}
	r.timers = make(map[int64]*timer)
	r.draining = make(map[int64]*timer)
	r.mu.Unlock()

	for _, t := range timers {
		t.cancel()
	}
	for _, t := range timers {
		<-t.done
	}
}

// Close releases all timers. It implements io.Closer so a view can defer it.
func (r *Refresher) Close() error {
	r.StopAll()
	return nil
}

func (r *Refresher) Running(key int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[key]
	return ok
}

func (r *Refresher) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
