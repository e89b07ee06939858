// Package metrics defines the prometheus collectors shared across the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventCacheHits counts cache-aside lookups served without a store read.
	EventCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askwave_event_cache_hits_total",
		Help: "Event lookups served from the cache",
	})

	// EventCacheMisses counts cache-aside lookups that fell through to the store.
	EventCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askwave_event_cache_misses_total",
		Help: "Event lookups that required a store query",
	})

	// ActiveConnections gauges currently open websocket connections on this worker.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "askwave_websocket_connections",
		Help: "Open websocket connections on this worker",
	})

	// RoomJoins counts join requests handled by the local registry.
	RoomJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askwave_room_joins_total",
		Help: "Room join requests processed",
	})

	// BusMessagesPublished counts messages this worker handed to the bus.
	BusMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askwave_bus_messages_published_total",
		Help: "Room messages published to the broadcast bus",
	}, []string{"event_type"})

	// BusMessagesReceived counts messages this worker's subscriber decoded.
	BusMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askwave_bus_messages_received_total",
		Help: "Room messages received from the broadcast bus",
	}, []string{"event_type"})

	// RoomDeliveries counts frames written to local connections during fanout.
	RoomDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askwave_room_deliveries_total",
		Help: "Messages delivered to locally registered connections",
	})

	// RedisCommandDuration observes redis command latency by command name.
	RedisCommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "askwave_redis_command_duration_seconds",
		Help:    "Redis command latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	// CircuitBreakerState reports the redis breaker state (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "askwave_redis_circuit_breaker_state",
		Help: "Redis circuit breaker state (0=closed, 1=half-open, 2=open)",
	})

	// HTTPRequestDuration observes request latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "askwave_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
