// Package metrics registers the Prometheus collectors of the offers service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offers_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DocumentsGenerated counts offers delivered to the user
	DocumentsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_documents_generated_total",
			Help: "Commercial offers generated, by document type and template variant",
		},
		[]string{"type", "variant"},
	)

	// GenerationFailures counts generation attempts aborted after the selection was read
	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_generation_failures_total",
			Help: "Offer generation attempts that failed, by stage",
		},
		[]string{"stage"},
	)

	AllocationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_document_number_conflicts_total",
			Help: "Unique violations hit while allocating document numbers",
		},
	)

	// SelectionNotices counts self-healing corrections reported to users
	SelectionNotices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_selection_notices_total",
			Help: "Selection notices produced by reconciliation and edits, by severity",
		},
		[]string{"severity"},
	)
)
