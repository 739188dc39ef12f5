package httpx

import (
	"log/slog"
	"net/http"

	"viewport-relay/internal/app"
	"viewport-relay/internal/relay"
	"viewport-relay/internal/ws"
	"viewport-relay/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, engine *relay.Engine) http.Handler {
	mw := NewMiddleware(cfg)
	api := &RoomsAPI{Engine: engine}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint (rate limit applies to the handshake only)
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Room read API
	mux.Handle("GET /api/rooms/{id}", http.HandlerFunc(api.Get))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
