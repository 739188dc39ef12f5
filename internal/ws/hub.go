package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"viewport-relay/internal/relay"
	"viewport-relay/pkg/metrics"
)

// Hub accepts websocket connections and feeds their messages into the relay
// engine. One session per connection; the read loop is the only goroutine
// that drives a given session.
type Hub struct {
	log    *slog.Logger
	engine *relay.Engine
	bus    *Bus // nil when Redis is not configured
}

// NewHub wires the websocket layer to the engine and the optional bus
func NewHub(logger *slog.Logger, engine *relay.Engine, bus *Bus) *Hub {
	return &Hub{log: logger, engine: engine, bus: bus}
}

// Run forwards bus traffic from other instances to local subscribers
func (h *Hub) Run(ctx context.Context) {
	if h.bus == nil {
		<-ctx.Done()
		return
	}
	go h.bus.Subscribe(ctx, func(roomID string, env relay.Envelope) {
		h.engine.DeliverRemote(roomID, env)
	})
	<-ctx.Done()
}

// ServeWS handles one client connection for its whole lifetime.
// Closing the connection, however it happens, is an implicit leave.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(conn)
	sess := relay.NewSession(c)
	metrics.ActiveConns.Inc()
	defer metrics.ActiveConns.Dec()

	go c.WriteLoop(ctx)

	for {
		env, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.dispatch(ctx, sess, env)
	}

	h.engine.Leave(ctx, sess)
	_ = c.Close()
}

// dispatch routes one inbound envelope; unknown types and bad payloads are
// dropped, the stream carries on.
func (h *Hub) dispatch(ctx context.Context, sess *relay.Session, env relay.Envelope) {
	switch env.Type {
	case relay.MsgJoin:
		var req relay.JoinRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.engine.Join(ctx, sess, req)
	case relay.MsgLocationUpdate:
		var req relay.LocationRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			metrics.UpdatesDropped.WithLabelValues("malformed").Inc()
			return
		}
		h.engine.Broadcast(ctx, sess, req)
	case relay.MsgAck:
		var req relay.AckRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.engine.Ack(sess, req)
	}
}
