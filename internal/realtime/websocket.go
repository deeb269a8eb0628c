package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rain-droid/orgIO/internal/auth"
	"github.com/rain-droid/orgIO/pkg/events"
)

const (
	typeConnected   = "connected"
	typeHeartbeat   = "heartbeat"
	typePong        = "pong"
	typeActivity    = "activity"
	typeActivityAck = "activity_ack"
	typeError       = "error"

	defaultSendBuffer   = 32
	defaultWriteTimeout = 10 * time.Second
	pongWait            = 60 * time.Second
	pingInterval        = (pongWait * 9) / 10
	maxClientMessage    = 4096
)

var errSendBufferFull = errors.New("send buffer full")

// OrgResolver finds the organization of a user whose token carries none.
type OrgResolver interface {
	ResolveOrg(ctx context.Context, userID string) (string, error)
}

// OrgResolverFunc adapts a function to OrgResolver.
type OrgResolverFunc func(ctx context.Context, userID string) (string, error)

// ResolveOrg implements OrgResolver.
func (f OrgResolverFunc) ResolveOrg(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// HandlerConfig tunes the websocket endpoint.
type HandlerConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Logger         *log.Logger
}

// Handler upgrades authenticated requests and subscribes the connection to
// its organization's envelopes.
type Handler struct {
	hub          *Hub
	resolver     OrgResolver
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	logger       *log.Logger
}

// NewHandler constructs a websocket Handler. resolver may be nil.
func NewHandler(hub *Hub, resolver OrgResolver, cfg HandlerConfig) *Handler {
	h := &Handler{
		hub:          hub,
		resolver:     resolver,
		sendBuffer:   cfg.SendBuffer,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = defaultSendBuffer
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = defaultWriteTimeout
	}
	if h.logger == nil {
		h.logger = log.New(log.Writer(), "[realtime] ", log.LstdFlags|log.Lshortfile)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Desktop clients do not send an Origin header.
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	orgID := claims.OrgID
	if orgID == "" && h.resolver != nil {
		resolved, err := h.resolver.ResolveOrg(r.Context(), claims.UserID)
		if err != nil {
			h.logger.Printf("resolve org for %s: %v", claims.UserID, err)
			writeError(w, http.StatusInternalServerError, "server_error", "an unexpected error occurred")
			return
		}
		orgID = resolved
	}
	if orgID == "" {
		writeError(w, http.StatusForbidden, "forbidden", "organization membership required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Printf("upgrade for %s failed: %v", claims.UserID, err)
		return
	}

	c := newConnection(conn, h.sendBuffer, h.writeTimeout)
	sub := h.hub.Subscribe(orgID, c)
	defer sub.Close()

	go c.writeLoop(h.logger)
	_ = c.Send(events.Envelope{Type: typeConnected, Payload: map[string]string{"orgId": orgID, "userId": claims.UserID}})
	c.readLoop(h.logger)
}

// connection is a Listener backed by a websocket with a dedicated writer.
type connection struct {
	conn         *websocket.Conn
	send         chan events.Envelope
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func newConnection(conn *websocket.Conn, buffer int, writeTimeout time.Duration) *connection {
	return &connection{
		conn:         conn,
		send:         make(chan events.Envelope, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// Send implements Listener without blocking.
func (c *connection) Send(envelope events.Envelope) error {
	select {
	case <-c.done:
		return ErrListenerClosed
	default:
	}
	select {
	case c.send <- envelope:
		return nil
	case <-c.done:
		return ErrListenerClosed
	default:
		return errSendBufferFull
	}
}

// Close tears down the socket. The hub calls it when it drops the listener.
func (c *connection) Close() error {
	c.close()
	return nil
}

func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *connection) writeLoop(logger *log.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case envelope := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(envelope); err != nil {
				logger.Printf("write %s: %v", envelope.Type, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
		}
	}
}

type clientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c *connection) readLoop(logger *log.Logger) {
	defer c.close()

	c.conn.SetReadLimit(maxClientMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Printf("read: %v", err)
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				_ = c.Send(errorEnvelope("invalid message"))
				continue
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case typeHeartbeat:
			_ = c.Send(events.Envelope{Type: typePong, Payload: map[string]int64{"ts": time.Now().Unix()}})
		case typeActivity:
			// Live activity is acknowledged but not stored; sessions carry it on end.
			_ = c.Send(events.Envelope{Type: typeActivityAck, Payload: map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)}})
		default:
			_ = c.Send(errorEnvelope("unknown message type: " + msg.Type))
		}
	}
}

func errorEnvelope(message string) events.Envelope {
	return events.Envelope{Type: typeError, Payload: map[string]string{"message": message}}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
