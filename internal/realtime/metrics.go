package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_active_connections",
			Help: "Number of WebSocket connections held by this node",
		},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Events published to realtime groups, by event type",
		},
		[]string{"type"},
	)

	droppedSends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_dropped_sends_total",
			Help: "Frames dropped because a client's send buffer was full",
		},
	)

	presenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_presence_transitions_total",
			Help: "Online and offline transitions observed by this node",
		},
		[]string{"state"},
	)

	relayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_relay_messages_total",
			Help: "Messages exchanged with other nodes over the relay",
		},
		[]string{"direction"},
	)
)
