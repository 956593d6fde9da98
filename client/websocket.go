package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// SnapshotHandler is called for each state snapshot pushed by the server.
type SnapshotHandler func(snap Snapshot)

// envelope matches the server's websocket frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSClient is a display-surface connection: it receives state snapshots and
// can send trigger envelopes back (endOverlay, overlays:add, show/hide).
type WSClient struct {
	baseURL   string
	conn      *websocket.Conn
	handlers  []SnapshotHandler
	mu        sync.RWMutex
	done      chan struct{}
	reconnect bool
}

// WSOption configures the websocket client
type WSOption func(*WSClient)

// WithAutoReconnect enables automatic reconnection on disconnect
func WithAutoReconnect(enabled bool) WSOption {
	return func(c *WSClient) {
		c.reconnect = enabled
	}
}

// NewWSClient creates a display client for the given server base URL.
func NewWSClient(baseURL string, opts ...WSOption) *WSClient {
	c := &WSClient{
		baseURL: baseURL,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnSnapshot registers a snapshot handler.
func (c *WSClient) OnSnapshot(handler SnapshotHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Connect establishes the websocket connection. The server sends the
// current snapshot immediately, before any mutation happens.
func (c *WSClient) Connect(ctx context.Context) error {
	wsURL, err := c.buildWSURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.readLoop(ctx)
	return nil
}

// Close closes the websocket connection
func (c *WSClient) Close() error {
	close(c.done)
	if conn := c.current(); conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	return nil
}

// current returns the live conn; reconnects swap it under the lock.
func (c *WSClient) current() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// EndOverlay asks the server to remove one active instance.
func (c *WSClient) EndOverlay(ctx context.Context, id, name string, payload any) error {
	return c.sendEnvelope(ctx, "endOverlay", map[string]any{"id": id, "name": name, "payload": payload})
}

// RegisterOverlays registers definitions scoped to this connection; the
// server releases their trigger subscriptions when this connection closes.
func (c *WSClient) RegisterOverlays(ctx context.Context, defs ...OverlayDefinition) error {
	return c.sendEnvelope(ctx, "overlays:add", defs)
}

// Trigger publishes an arbitrary named event, e.g. overlay:sub:show.
func (c *WSClient) Trigger(ctx context.Context, event string, payload any) error {
	return c.sendEnvelope(ctx, event, payload)
}

func (c *WSClient) sendEnvelope(ctx context.Context, event string, payload any) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	msg := map[string]any{"event": event}
	if payload != nil {
		msg["data"] = payload
	}
	return wsjson.Write(ctx, conn, msg)
}

func (c *WSClient) buildWSURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/display"
	return u.String(), nil
}

func (c *WSClient) readLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		var env envelope
		err := wsjson.Read(ctx, c.current(), &env)
		if err != nil {
			if c.reconnect {
				select {
				case <-c.done:
				default:
					// Connect starts a fresh readLoop that owns the new conn.
					c.handleReconnect(ctx)
				}
			}
			return
		}
		if env.Event != "overlays:state" {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			continue
		}
		c.dispatch(snap)
	}
}

func (c *WSClient) dispatch(snap Snapshot) {
	c.mu.RLock()
	handlers := make([]SnapshotHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(snap)
	}
}

func (c *WSClient) handleReconnect(ctx context.Context) {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if err := c.Connect(ctx); err == nil {
			return
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
