// Package ws is the realtime channel between the broker and display
// surfaces. Each connection gets its own identity and subscription scope;
// disconnect tears down exactly what the connection installed.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mistakeknot/overcast/internal/broker"
	"github.com/mistakeknot/overcast/internal/core"
)

const writeTimeout = 5 * time.Second

var wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "overcast",
	Subsystem: "ws",
	Name:      "connections",
	Help:      "Currently connected display surfaces",
})

func init() {
	prometheus.MustRegister(wsConnections)
}

// Envelope is the wire frame in both directions: a topic plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type endOverlayRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type connection struct {
	id    string
	sock  *websocket.Conn
	scope *broker.Scope
}

// Hub tracks every connected display surface and fans snapshots out to all
// of them. When the last connection drops the definition registry and the
// active state are cleared; producers re-announce their overlays on
// reconnect and nothing stale is replayed to the next display.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*connection
	brk   *broker.Broker
	log   zerolog.Logger
}

func NewHub(brk *broker.Broker, log zerolog.Logger) *Hub {
	return &Hub{conns: make(map[string]*connection), brk: brk, log: log}
}

// Handler upgrades the request and runs the connection until it closes.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sock, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn := &connection{id: uuid.NewString(), sock: sock, scope: broker.NewScope()}
		h.add(conn)
		defer h.remove(conn)

		// Late joiners converge from the snapshot alone; no event replay.
		h.send(conn, h.brk.Snapshot())

		ctx := r.Context()
		for {
			var env Envelope
			if err := wsjson.Read(ctx, sock, &env); err != nil {
				return
			}
			h.dispatch(conn, env)
		}
	}
}

// dispatch routes one inbound envelope. Registration and end requests need
// the connection's identity (ownership scope); every other event is
// republished on the bus so named events and direct calls stay equivalent.
func (h *Hub) dispatch(conn *connection, env Envelope) {
	switch env.Event {
	case core.TopicEndOverlay:
		var req endOverlayRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.log.Warn().Str("conn", conn.id).Err(err).Msg("bad endOverlay payload")
			return
		}
		var payload any
		if len(req.Payload) > 0 {
			payload = req.Payload
		}
		h.brk.End(req.ID, req.Name, payload)
	case core.TopicOverlaysAdd:
		defs, err := broker.DecodeDefinitions(env.Data)
		if err != nil {
			h.log.Warn().Str("conn", conn.id).Err(err).Msg("bad overlays:add payload")
			return
		}
		h.brk.Add(conn.scope, defs...)
	case "":
		h.log.Debug().Str("conn", conn.id).Msg("envelope without event ignored")
	default:
		var payload any
		if len(env.Data) > 0 {
			payload = env.Data
		}
		h.brk.Bus().Publish(env.Event, payload)
	}
}

// BroadcastSnapshot pushes the snapshot to every connection. A connection
// that fails its write is closed and dropped; the rest still receive it.
func (h *Hub) BroadcastSnapshot(snap core.Snapshot) {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if !h.send(conn, snap) {
			go func(conn *connection) {
				conn.sock.Close(websocket.StatusGoingAway, "write error")
				h.remove(conn)
			}(conn)
		}
	}
}

func (h *Hub) send(conn *connection, snap core.Snapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal snapshot")
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err = wsjson.Write(ctx, conn.sock, Envelope{Event: core.TopicOverlaysState, Data: data})
	return err == nil
}

// ConnectionCount reports how many displays are currently tracked.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) add(conn *connection) {
	h.mu.Lock()
	h.conns[conn.id] = conn
	total := len(h.conns)
	h.mu.Unlock()
	wsConnections.Set(float64(total))
	h.log.Info().Str("conn", conn.id).Int("connections", total).Msg("display connected")
}

func (h *Hub) remove(conn *connection) {
	h.mu.Lock()
	_, present := h.conns[conn.id]
	delete(h.conns, conn.id)
	total := len(h.conns)
	h.mu.Unlock()
	if !present {
		return
	}

	conn.scope.Release(h.brk.Bus())
	wsConnections.Set(float64(total))
	h.log.Info().Str("conn", conn.id).Int("connections", total).Msg("display disconnected")
	if total == 0 {
		h.brk.ClearDefinitions()
		h.brk.ClearState()
	}
}
