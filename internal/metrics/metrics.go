// Package metrics exposes Prometheus instruments for engine operations.
// Instruments register on the default registry at init; Handler serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	derrors "github.com/julianstephens/daystreak/internal/errors"
)

const namespace = "daystreak"

var (
	// Engine operation latency (seconds)
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"op"},
	)

	// Engine operations by outcome kind
	OperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total engine operations by result kind",
		},
		[]string{"op", "result"}, // result: none, not_found, inactive, invalid_argument, store_failure, unknown
	)

	CompletionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion records written or removed",
		},
		[]string{"action"}, // action: recorded, already_full, removed
	)

	// Secondary failures tolerated after a successful primary write
	SecondaryFailureCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_failures_total",
			Help:      "Failed follow-up steps after a successful primary write",
		},
		[]string{"step"}, // step: total, recompute
	)

	ReconcileHabitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_habits_total",
			Help:      "Habits visited by reconciliation runs",
		},
		[]string{"result"}, // result: recomputed, failed, total_repaired
	)

	LastReconcileTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reconcile_timestamp_seconds",
			Help:      "Unix time of the last completed reconciliation run",
		},
	)

	ActiveHabits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_habits",
			Help:      "Active habits seen by the last reconciliation run",
		},
	)
)

// ObserveOperation records latency and outcome for one engine call.
func ObserveOperation(op string, start time.Time, err error) {
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	OperationCount.WithLabelValues(op, derrors.Kind(err)).Inc()
}

// IncrementCompletion counts a recorder outcome.
func IncrementCompletion(action string) {
	CompletionCount.WithLabelValues(action).Inc()
}

// IncrementSecondaryFailure counts a tolerated follow-up failure.
func IncrementSecondaryFailure(step string) {
	SecondaryFailureCount.WithLabelValues(step).Inc()
}

// RecordReconcile publishes the outcome of one reconciliation run.
func RecordReconcile(at time.Time, active, recomputed, failed, repaired int) {
	ReconcileHabitCount.WithLabelValues("recomputed").Add(float64(recomputed))
	ReconcileHabitCount.WithLabelValues("failed").Add(float64(failed))
	ReconcileHabitCount.WithLabelValues("total_repaired").Add(float64(repaired))
	ActiveHabits.Set(float64(active))
	LastReconcileTimestamp.Set(float64(at.Unix()))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
