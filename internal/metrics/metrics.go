// Package metrics exposes Prometheus collectors for import, export and
// backup operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "ledgersync"

var (
	// Record metrics
	RecordsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_records_imported_total",
			Help: "Total number of records persisted by imports and restores",
		},
		[]string{"kind"},
	)

	RecordsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_records_failed_total",
			Help: "Total number of records dropped or rejected during imports",
		},
		[]string{"kind", "stage"},
	)

	RecordsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_records_deleted_total",
			Help: "Total number of records deleted by restore and clear",
		},
		[]string{"kind"},
	)

	CustomersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_customers_created_total",
			Help: "Total number of customers created while resolving invoices",
		},
	)

	// Operation metrics
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_operation_duration_seconds",
			Help:    "Duration of import, export, restore and backup operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	// Backup metrics
	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_backup_last_success_timestamp_seconds",
			Help: "Unix time of the last successful backup upload",
		},
	)

	BackupBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_backup_size_bytes",
			Help: "Size of the last uploaded backup workbook",
		},
	)

	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

// Failure stage labels.
const (
	StageNormalize = "normalize"
	StageResolve   = "resolve"
	StageInsert    = "insert"
	StageDelete    = "delete"
)

// TrackOperation returns a function that records the duration and outcome
// of an operation started at startTime.
func TrackOperation(operation string) func(startTime time.Time, outcome string) {
	return func(startTime time.Time, outcome string) {
		OperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
		OperationsTotal.WithLabelValues(operation, outcome).Inc()
	}
}
