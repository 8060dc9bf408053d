package metrics

import "github.com/prometheus/client_golang/prometheus"

// Knowledge base Prometheus metrics.
var (
	KBReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "kb_reloads_total",
			Help:      "Knowledge base reload attempts by result",
		},
		[]string{"source", "result"}, // result: published / unchanged / rejected / error
	)

	KBInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nutrisafe",
			Name:      "kb_info",
			Help:      "Currently published knowledge base version (value is always 1)",
		},
		[]string{"version", "checksum"},
	)

	KBRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nutrisafe",
			Name:      "kb_records",
			Help:      "Effective records in the published knowledge base by kind",
		},
		[]string{"kind"},
	)

	KBSnapshotsRetiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "kb_snapshots_retired_total",
			Help:      "Replaced snapshots released after their last in-flight query",
		},
	)

	KBEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrisafe",
			Name:      "kb_events_total",
			Help:      "Knowledge base publication events received from the broker",
		},
		[]string{"result"}, // result: triggered / malformed
	)
)

var kbMetricsRegistered bool

// RegisterKBMetrics registers Prometheus knowledge base metrics. Must be called once from main.
func RegisterKBMetrics() {
	if kbMetricsRegistered {
		return
	}
	prometheus.MustRegister(KBReloadsTotal)
	prometheus.MustRegister(KBInfo)
	prometheus.MustRegister(KBRecords)
	prometheus.MustRegister(KBSnapshotsRetiredTotal)
	prometheus.MustRegister(KBEventsTotal)
	kbMetricsRegistered = true
}
