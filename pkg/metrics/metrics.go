package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.

var (
	// 1. Operations Total (Counter)
	// Counts engine calls, labeled by collection, operation and outcome ("ok" or the error kind).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfdb_operations_total",
			Help: "Total number of engine operations processed",
		},
		[]string{"collection", "operation", "status"},
	)

	// 2. Operation Duration (Histogram)
	// Everything is in-memory, so buckets start at microseconds.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfdb_operation_duration_seconds",
			Help:    "Duration of engine operations in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"collection", "operation"},
	)

	// 3. Documents (Gauge)
	// Tracks the number of stored documents.
	Documents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelfdb_documents",
			Help: "Number of documents stored in a collection",
		},
		[]string{"collection"},
	)

	// 4. Documents Examined (Counter)
	// plan is "index" or "collscan"; a high collscan share means a missing index.
	DocsExamined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfdb_docs_examined_total",
			Help: "Documents examined by queries, by access plan",
		},
		[]string{"collection", "plan"},
	)

	// 5. Indexes (Gauge)
	Indexes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelfdb_indexes",
			Help: "Number of secondary indexes on a collection",
		},
		[]string{"collection"},
	)
)
