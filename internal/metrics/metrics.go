package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borg_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "borg_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	EnvelopesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borg_envelopes_submitted_total",
			Help: "Envelopes accepted into the conversation store",
		},
		[]string{"site"},
	)

	EnvelopesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borg_envelopes_rejected_total",
			Help: "Envelopes rejected at the relay boundary",
		},
		[]string{"reason"},
	)

	BroadcastsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "borg_broadcasts_delivered_total",
			Help: "Broadcast frames delivered to peer session inboxes",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "borg_delivery_failures_total",
			Help: "Per-recipient broadcast delivery failures (swallowed)",
		},
	)

	SnapshotFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "borg_snapshot_failures_total",
			Help: "Durable snapshot persist failures (logged only)",
		},
	)

	SessionsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "borg_sessions_registered_total",
			Help: "Capture sessions registered",
		},
	)

	// Capture metrics (exported by the capture agent process)
	TurnsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borg_turns_extracted_total",
			Help: "Raw turns extracted from observed subtrees",
		},
		[]string{"site"},
	)

	DedupSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borg_dedup_suppressed_total",
			Help: "Turns suppressed by the per-session deduplicator",
		},
		[]string{"site"},
	)
)
