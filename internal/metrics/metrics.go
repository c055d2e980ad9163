// Package metrics provides Prometheus instrumentation for convene.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convene_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convene_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// WebSocket / session metrics.
var (
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convene_ws_connections_active",
		Help: "Number of active agent WebSocket connections.",
	})

	WSMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convene_ws_messages_total",
		Help: "Total number of WebSocket frames processed.",
	}, []string{"direction", "type"})
)

// Room / agent business metrics.
var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convene_active_rooms",
		Help: "Number of currently open rooms.",
	})

	ActiveAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convene_active_agents",
		Help: "Number of currently joined agents across all rooms.",
	})

	ActiveProposals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convene_active_proposals",
		Help: "Number of proposals currently pending resolution.",
	})

	ProposalsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convene_proposals_resolved_total",
		Help: "Total number of proposals resolved, by outcome.",
	}, []string{"status"})
)

// Federation / bus metrics.
var (
	BusMessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convene_bus_messages_published_total",
		Help: "Total number of messages published to the federation bus.",
	})

	BusMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convene_bus_messages_received_total",
		Help: "Total number of messages received from the federation bus.",
	})

	BusMessagesDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convene_bus_messages_deduped_total",
		Help: "Total number of bus messages dropped as duplicates or echoes.",
	})

	BusPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convene_bus_publish_errors_total",
		Help: "Total number of bus publish failures (best-effort; logged and dropped).",
	})
)

// Tool registry metrics.
var (
	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convene_tool_invocations_total",
		Help: "Total number of tool invocation attempts, by tool and outcome.",
	}, []string{"tool", "outcome"})

	ToolRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convene_tool_rate_limited_total",
		Help: "Total number of tool invocations rejected by the rate limiter.",
	}, []string{"tool"})
)
