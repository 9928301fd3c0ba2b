package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search engine Prometheus metrics.
var (
	EngineOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowdex",
			Name:      "engine_operations_total",
			Help:      "Engine operations by collection, operation and outcome",
		},
		[]string{"collection", "op", "status"},
	)

	EngineOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knowdex",
			Name:      "engine_operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"collection", "op"},
	)

	// EngineSearchPathTotal counts which retrieval path answered a search.
	EngineSearchPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowdex",
			Name:      "engine_search_path_total",
			Help:      "Searches answered by path (hybrid, keyword_only, empty)",
		},
		[]string{"collection", "path"},
	)

	EngineDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowdex",
			Name:      "engine_degraded_total",
			Help:      "Operations that fell back to keyword-only behaviour",
		},
		[]string{"collection", "op"},
	)
)

var engineOnce sync.Once

// RegisterEngineMetrics registers engine metrics. Safe to call more than once.
func RegisterEngineMetrics() {
	engineOnce.Do(func() {
		prometheus.MustRegister(
			EngineOperationsTotal,
			EngineOperationDuration,
			EngineSearchPathTotal,
			EngineDegradedTotal,
		)
	})
}
