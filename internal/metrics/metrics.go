// Package metrics exposes Prometheus collectors for dataset operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultCanceled = "canceled"
)

// Metrics holds the collectors. A nil *Metrics records nothing, so the CLI
// can run without a registry.
type Metrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	recordsRead     *prometheus.CounterVec
	recordsWritten  *prometheus.CounterVec
	groupsAssigned  *prometheus.CounterVec
	recordsFiltered *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letor_operations_total",
			Help: "Dataset operations by operation and result",
		}, []string{"operation", "result"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "letor_operation_duration_seconds",
			Help:    "Dataset operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		}, []string{"operation"}),

		recordsRead: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letor_records_read_total",
			Help: "Records parsed from sources",
		}, []string{"operation"}),

		recordsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letor_records_written_total",
			Help: "Records written by subset",
		}, []string{"operation", "subset"}),

		groupsAssigned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letor_groups_assigned_total",
			Help: "Query groups assigned to a subset",
		}, []string{"operation", "subset"}),

		recordsFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letor_records_filtered_total",
			Help: "Records dropped by a where expression",
		}, []string{"operation"}),
	}
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AddRecordsRead counts parsed records.
func (m *Metrics) AddRecordsRead(operation string, n int) {
	if m == nil {
		return
	}
	m.recordsRead.WithLabelValues(operation).Add(float64(n))
}

// AddRecordsFiltered counts records removed by a filter.
func (m *Metrics) AddRecordsFiltered(operation string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsFiltered.WithLabelValues(operation).Add(float64(n))
}

// AddSubset counts the groups and records written to one subset.
func (m *Metrics) AddSubset(operation, subset string, groups, records int) {
	if m == nil {
		return
	}
	m.groupsAssigned.WithLabelValues(operation, subset).Add(float64(groups))
	m.recordsWritten.WithLabelValues(operation, subset).Add(float64(records))
}
