// Package metrics holds the process-wide Prometheus collectors, exposed at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CategoryViewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joeforum_category_views_total",
		Help: "Category page requests by outcome.",
	}, []string{"outcome"})

	CategoryViewDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "joeforum_category_view_duration_seconds",
		Help:    "Time from request receipt to category page response.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	ClicksRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joeforum_category_clicks_recorded_total",
		Help: "Link category clicks successfully written to the database.",
	})

	ClicksRecordErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joeforum_category_clicks_record_errors_total",
		Help: "Link category click write failures, including events dropped on a full queue.",
	})

	MarkReadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joeforum_mark_read_errors_total",
		Help: "Mark-read write failures, including events dropped on a full queue.",
	})
)

// Outcome labels for CategoryViewsTotal beyond the resolver's own outcomes.
const (
	OutcomeLink  = "link"
	OutcomeError = "error"
)
