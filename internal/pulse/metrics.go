package pulse

import "github.com/prometheus/client_golang/prometheus"

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwarden_cycles_total",
			Help: "Monitoring cycles run, by outcome.",
		},
		[]string{"outcome"},
	)
	cyclesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netwarden_cycles_skipped_total",
			Help: "Cycle triggers ignored because a cycle was already in flight.",
		},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netwarden_cycle_duration_seconds",
			Help:    "Wall time of a monitoring cycle.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
	)
	deviceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwarden_device_checks_total",
			Help: "Device checks completed, by device class and resulting status.",
		},
		[]string{"class", "status"},
	)
	collectorFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netwarden_collector_failures_total",
			Help: "Metric collector failures, by protocol.",
		},
		[]string{"protocol"},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, cyclesSkipped, cycleDuration, deviceChecksTotal, collectorFailuresTotal)
}

// RecordCollectorFailure counts a failed collector attempt. It is meant to
// be passed to monitor.WithCollectorFailureHook.
func RecordCollectorFailure(protocol string) {
	collectorFailuresTotal.WithLabelValues(protocol).Inc()
}
