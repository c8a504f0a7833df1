// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts choice submissions by outcome (accepted, rejected).
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internship_choice_submissions_total",
			Help: "Choice submissions by outcome.",
		},
		[]string{"outcome"},
	)

	// SeatOperationsTotal counts seat-affecting operations by kind and outcome.
	SeatOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internship_seat_operations_total",
			Help: "Allocate, reallocate and release operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// BulkRowsTotal counts processed bulk rows per pipeline and row status.
	BulkRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internship_bulk_rows_total",
			Help: "Rows processed by bulk reconciliation pipelines.",
		},
		[]string{"pipeline", "status"},
	)

	// ResetsTotal counts administrative resets by scope.
	ResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internship_resets_total",
			Help: "Administrative application resets.",
		},
		[]string{"scope"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internship_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "internship_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
