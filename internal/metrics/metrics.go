// Package metrics defines Prometheus metrics for revisor.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revisor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revisor_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revisor_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	RevisionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revisor_revisions_created_total",
			Help: "Revisions recorded, by revision type",
		},
		[]string{"type"},
	)

	RevisionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revisor_revision_conflicts_total",
			Help: "Saves rejected because another writer advanced the document",
		},
	)

	CommitFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revisor_commit_failures_total",
			Help: "Revise calls whose commit step failed",
		},
	)

	FeedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "revisor_feed_subscribers",
			Help: "Active WebSocket feed subscribers",
		},
	)

	RevisionsPerSave = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revisor_revisions_per_save",
			Help:    "Revisions appended by one document save",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		RevisionsCreated, RevisionConflicts, CommitFailures, RevisionsPerSave,
		FeedSubscribers,
	)
}
