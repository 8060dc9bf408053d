package metrics

import "github.com/prometheus/client_golang/prometheus"

// Safety check Prometheus metrics.
var (
	SafetyChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "safety_checks_total",
			Help:      "Total safety checks by verdict status",
		},
		[]string{"status"},
	)

	SafetyCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nutrisafe",
			Name:      "safety_check_duration_seconds",
			Help:      "Safety check duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	FindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "findings_total",
			Help:      "Item findings by severity",
		},
		[]string{"severity"},
	)

	NormalizationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "normalization_failures_total",
			Help:      "Names that did not resolve to a canonical id",
		},
		[]string{"kind"},
	)

	EngineInternalErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "engine_internal_errors_total",
			Help:      "Items that failed closed after an internal error",
		},
	)
)

var safetyMetricsRegistered bool

// RegisterSafetyMetrics registers Prometheus safety check metrics. Must be called once from main.
func RegisterSafetyMetrics() {
	if safetyMetricsRegistered {
		return
	}
	prometheus.MustRegister(SafetyChecksTotal)
	prometheus.MustRegister(SafetyCheckDuration)
	prometheus.MustRegister(FindingsTotal)
	prometheus.MustRegister(NormalizationFailuresTotal)
	prometheus.MustRegister(EngineInternalErrorsTotal)
	safetyMetricsRegistered = true
}
