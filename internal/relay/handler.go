package relay

import (
	"context"
	"log"
	"time"

	"github.com/rain-droid/orgIO/internal/consumer"
	"github.com/rain-droid/orgIO/pkg/events"
)

// Broadcaster hands an envelope to the local listeners of an organization.
type Broadcaster interface {
	Broadcast(orgID string, envelope events.Envelope) int
}

// HandlerOption customizes a HubHandler.
type HandlerOption func(*HubHandler)

// WithMaxAge skips relayed envelopes older than d. Zero disables the check.
func WithMaxAge(d time.Duration) HandlerOption {
	return func(h *HubHandler) {
		h.maxAge = d
	}
}

// WithHandlerLogger overrides the handler logger.
func WithHandlerLogger(logger *log.Logger) HandlerOption {
	return func(h *HubHandler) {
		h.logger = logger
	}
}

// HubHandler is a consumer.Handler that rebroadcasts relayed envelopes to the
// listeners connected to this instance.
type HubHandler struct {
	hub    Broadcaster
	maxAge time.Duration
	logger *log.Logger
	now    func() time.Time
}

// NewHubHandler constructs a HubHandler.
func NewHubHandler(hub Broadcaster, opts ...HandlerOption) *HubHandler {
	h := &HubHandler{
		hub:    hub,
		logger: log.New(log.Writer(), "[relay] ", log.LstdFlags|log.Lshortfile),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Handle implements consumer.Handler.
func (h *HubHandler) Handle(_ context.Context, msg consumer.Message) error {
	if h.maxAge > 0 && !msg.Timestamp.IsZero() && h.now().Sub(msg.Timestamp) > h.maxAge {
		recordStale(msg.EventType)
		return nil
	}

	envelope, err := events.Decode(msg.Payload)
	if err != nil {
		// Undecodable envelopes can never succeed; let the processor commit them.
		h.logger.Printf("discarding relayed %s at offset %d: %v", msg.EventType, msg.Offset, err)
		recordDiscarded(msg.EventType)
		return nil
	}
	if envelope.Type != msg.EventType {
		h.logger.Printf("relayed envelope type %q does not match header %q", envelope.Type, msg.EventType)
	}

	delivered := h.hub.Broadcast(msg.OrgID, envelope)
	recordRelayed(envelope.Type, delivered)
	return nil
}
