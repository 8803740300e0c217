package archive

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbarchive_operations_total",
			Help: "Archive operations by result, known values: ok, error.",
		},
		[]string{
			"op",
			"result",
		},
	)
	metricOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbarchive_operation_duration_seconds",
			Help:    "Duration of archive operations.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"op"},
	)
	metricCursorRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbarchive_cursor_rows_total",
			Help: "Rows consumed by cursors, known values: ok, cached, skipped.",
		},
		[]string{"result"},
	)
	metricIdentityCache = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dbarchive_identity_cache_entries",
			Help: "Objects with a known storage identifier across all archives.",
		},
	)
)

// observe records the outcome of an operation started at start.
func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metricOperations.WithLabelValues(op, result).Inc()
	metricOperationDuration.WithLabelValues(op).Observe(float64(time.Since(start)) / float64(time.Second))
}
