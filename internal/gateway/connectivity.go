package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Connectivity reports whether the network is believed to be reachable.
type Connectivity interface {
	Online() bool
}

// NetworkStatus is a Connectivity whose state is set by its owner or by a
// background probe. Listeners are told about every transition.
type NetworkStatus struct {
	mu        sync.RWMutex
	online    bool
	nextID    int
	listeners map[int]func(online bool)
}

func NewNetworkStatus(online bool) *NetworkStatus {
	return &NetworkStatus{online: online, listeners: make(map[int]func(bool))}
}

func (n *NetworkStatus) Online() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.online
}

// Set records the connectivity state and notifies listeners when it changed.
func (n *NetworkStatus) Set(online bool) {
	n.mu.Lock()
	if n.online == online {
		n.mu.Unlock()
		return
	}
	n.online = online
	fns := make([]func(bool), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// OnChange registers fn and returns a function that unregisters it.
func (n *NetworkStatus) OnChange(fn func(online bool)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

// Watch runs probe every interval until ctx is done, marking the status online
// when it succeeds and offline when it fails.
func (n *NetworkStatus) Watch(ctx context.Context, interval time.Duration, probe func(ctx context.Context) error, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := probe(pctx)
		if err != nil && ctx.Err() != nil {
			return
		}
		if err != nil && n.Online() {
			logger.Warn("connectivity lost", "error", err)
		}
		n.Set(err == nil)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
