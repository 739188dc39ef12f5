package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay traffic collectors. Registered on the default registry so the
// standard promhttp handler picks them up.
var (
	UpdatesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_updates_accepted_total",
		Help: "Location updates accepted and fanned out to subscribers.",
	})
	UpdatesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_updates_dropped_total",
		Help: "Location updates silently dropped, by reason.",
	}, []string{"reason"})
	JoinsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_joins_dropped_total",
		Help: "Join requests dropped as malformed.",
	})
	AcksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_acks_received_total",
		Help: "Optional delivery acks received from subscribers.",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_rooms_active",
		Help: "Rooms currently held in the registry.",
	})
	ActiveConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "Open websocket connections.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
