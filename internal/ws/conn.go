package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"viewport-relay/internal/relay"
)

type Conn struct {
	ws  *websocket.Conn
	out chan relay.Envelope
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a WS connection with a buffered outbound queue
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, out: make(chan relay.Envelope, 256)}
}

// Send queues an envelope without blocking; if the queue is full the frame
// is dropped and the next update supersedes it. Implements relay.Sender.
func (c *Conn) Send(env relay.Envelope) {
	select {
	case c.out <- env:
	default:
	}
}

// Read blocks until the next parseable envelope arrives.
// Unparseable frames are skipped; returns false once the connection closes.
func (c *Conn) Read(ctx context.Context) (relay.Envelope, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return relay.Envelope{}, false
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		var env relay.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			continue
		}
		return env, true
	}
}

// WriteLoop sends outbound envelopes + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case env := <-c.out:
			b, _ := json.Marshal(env)
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the WS connection normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }
