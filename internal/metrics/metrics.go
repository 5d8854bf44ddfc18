// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName labels the HTTP metrics.
const ServiceName = "trendscout"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code", "service"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "service"},
	)

	// Ranking
	RankingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_rankings_total",
			Help: "Total number of ranking requests by resolution strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	CandidatesFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trend_candidates_fetched",
			Help:    "Number of upstream candidates per ranking request",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 40, 50},
		},
	)

	ResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trend_results_returned",
			Help:    "Number of ranked results per ranking request",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 40, 50},
		},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream search duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Snapshots
	SnapshotsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_snapshots_recorded_total",
			Help: "Total number of view snapshots recorded",
		},
		[]string{"source"},
	)

	SnapshotsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "view_snapshots_pruned_total",
			Help: "Total number of view snapshots deleted by retention",
		},
	)

	FeedPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_feed_polls_total",
			Help: "Total number of watched channel feed polls",
		},
		[]string{"status"},
	)

	// NATS
	NatsMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "version", "environment"},
	)
)

// Init publishes the application info gauge.
func Init(version, environment string) {
	ApplicationInfo.WithLabelValues(ServiceName, version, environment).Set(1)
}
