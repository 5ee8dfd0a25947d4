// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Query statuses reported to Prometheus.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// QueryMetrics tracks pipeline query processing.
//
// Metrics:
//   - tabchat_pipeline_queries_total: query count by status
//   - tabchat_pipeline_query_duration_seconds: end-to-end duration histogram
type QueryMetrics struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// NewQueryMetrics creates and registers query metrics with the registry.
func NewQueryMetrics(registry *prometheus.Registry) *QueryMetrics {
	m := &QueryMetrics{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tabchat",
				Subsystem: "pipeline",
				Name:      "queries_total",
				Help:      "Total number of questions processed",
			},
			[]string{"status"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tabchat",
				Subsystem: "pipeline",
				Name:      "query_duration_seconds",
				Help:      "End-to-end question processing duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}

	registry.MustRegister(m.queriesTotal, m.queryDuration)

	return m
}

// ObserveQuery records one completed (or failed) question cycle.
func (m *QueryMetrics) ObserveQuery(status string, seconds float64) {
	m.queriesTotal.WithLabelValues(status).Inc()
	m.queryDuration.Observe(seconds)
}
