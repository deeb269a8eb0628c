// Package realtime fans event envelopes out to live listeners grouped by
// organization.
package realtime

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/rain-droid/orgIO/pkg/events"
)

// ErrListenerClosed is returned by Send on a listener that has gone away.
var ErrListenerClosed = errors.New("listener closed")

// Listener receives envelopes for one connection. Send must not block; a
// listener that cannot accept an envelope returns an error and is dropped.
// Dropped listeners that also implement io.Closer are closed so the peer
// notices and reconnects.
type Listener interface {
	Send(envelope events.Envelope) error
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub      *Hub
	orgID    string
	listener Listener
}

// Close removes the listener from the hub. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.remove(s.orgID, s.listener)
}

// HubOption customizes Hub construction.
type HubOption func(*Hub)

// WithHubLogger overrides the logger used for drop messages.
func WithHubLogger(logger *log.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// Hub is a concurrency-safe multi-map from organization id to listeners.
// Delivery is at-most-once and best-effort.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[Listener]struct{}
	logger    *log.Logger
}

// NewHub constructs an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		listeners: make(map[string]map[Listener]struct{}),
		logger:    log.New(log.Writer(), "[realtime] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscribe registers listener under orgID.
func (h *Hub) Subscribe(orgID string, listener Listener) *Subscription {
	h.mu.Lock()
	set := h.listeners[orgID]
	if set == nil {
		set = make(map[Listener]struct{})
		h.listeners[orgID] = set
	}
	if _, exists := set[listener]; !exists {
		set[listener] = struct{}{}
		listenerGauge.Inc()
	}
	h.mu.Unlock()
	return &Subscription{hub: h, orgID: orgID, listener: listener}
}

// Unsubscribe removes the listener behind sub.
func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.Close()
}

// Broadcast delivers envelope to every listener of orgID and returns the
// number of successful deliveries. Listeners whose Send fails are removed
// and closed; the remaining listeners still receive the envelope.
func (h *Hub) Broadcast(orgID string, envelope events.Envelope) int {
	h.mu.RLock()
	targets := make([]Listener, 0, len(h.listeners[orgID]))
	for listener := range h.listeners[orgID] {
		targets = append(targets, listener)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, listener := range targets {
		if err := safeSend(listener, envelope); err != nil {
			h.logger.Printf("dropping listener for org %s after %s: %v", orgID, envelope.Type, err)
			recordDropped(envelope.Type)
			h.remove(orgID, listener)
			if closer, ok := listener.(io.Closer); ok {
				_ = closer.Close()
			}
			continue
		}
		delivered++
		recordDelivered(envelope.Type)
	}
	return delivered
}

// Notify adapts Broadcast to the domain notifier contract.
func (h *Hub) Notify(_ context.Context, orgID string, envelope events.Envelope) error {
	h.Broadcast(orgID, envelope)
	return nil
}

// Count returns the number of listeners registered for orgID.
func (h *Hub) Count(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[orgID])
}

func (h *Hub) remove(orgID string, listener Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.listeners[orgID]
	if set == nil {
		return
	}
	if _, ok := set[listener]; !ok {
		return
	}
	delete(set, listener)
	listenerGauge.Dec()
	if len(set) == 0 {
		delete(h.listeners, orgID)
	}
}

func safeSend(listener Listener, envelope events.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("listener panicked")
		}
	}()
	return listener.Send(envelope)
}
