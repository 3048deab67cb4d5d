package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebSocket
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_received_total",
		Help: "Inbound events by type.",
	}, []string{"type"})
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_frames_dropped_total",
		Help: "Outbound frames dropped because the client send buffer was full.",
	})

	// Rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rooms_active",
		Help: "The current number of rooms with at least one participant.",
	})
	RoomJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "room_joins_total",
		Help: "Successful room joins.",
	})
	RoomLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "room_leaves_total",
		Help: "Room leaves, explicit and by disconnect.",
	})
	RoomErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "room_errors_total",
		Help: "room:error replies by reason.",
	}, []string{"reason"})

	// Auth
	AuthSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_success_total",
		Help: "The total number of successful handshakes.",
	})
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "The total number of rejected handshakes.",
	}, []string{"reason"})
)

// Handler exposes Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
