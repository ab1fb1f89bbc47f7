package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ride_dispatch"

var (
	RidesRequested = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_requested_total", Help: "Rides created"})
	RideClaims     = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_claims_total", Help: "Claim attempts by outcome"},
		[]string{"result"},
	)
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_status_transitions_total", Help: "Committed ride transitions by target status"},
		[]string{"status"},
	)
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_published_total", Help: "Notification publishes by kind and result"},
		[]string{"kind", "result"},
	)

	CommandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "commands_handled_total", Help: "Commands processed by type and reply code"},
		[]string{"type", "code"},
	)
	CommandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command handling latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)
	CommandReplays = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "command_replays_total", Help: "Duplicate commands answered from the idempotency store"})

	DriverDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "driver_decisions_total", Help: "Simulated driver decisions on pending rides"},
		[]string{"decision"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
)

// Label values
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultWon      = "won"
	ResultRejected = "rejected"
)
