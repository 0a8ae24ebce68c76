package delivery

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueueTotal  *prometheus.CounterVec
	dispatchTotal *prometheus.CounterVec
	deadTotal     *prometheus.CounterVec
	reapedTotal   prometheus.Counter

	dispatchLatency *prometheus.HistogramVec

	pending    prometheus.Gauge
	processing prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifications",
			Name:      "enqueue_total",
			Help:      "Total number of rows accepted into the outbox.",
		}, []string{"channel", "event_type"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifications",
			Name:      "dispatch_total",
			Help:      "Total number of finalized outbox rows by channel and result.",
		}, []string{"channel", "result"}),
		deadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifications",
			Name:      "dead_total",
			Help:      "Total number of rows that exhausted their attempts.",
		}, []string{"channel"}),
		reapedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "notifications",
			Name:      "reaped_total",
			Help:      "Total number of expired leases reset to pending.",
		}),
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notifications",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency distribution for provider send calls.",
			Buckets: []float64{
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10, 30,
			},
		}, []string{"channel", "result"}),
		pending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifications",
			Name:      "pending",
			Help:      "Current number of pending outbox rows.",
		}),
		processing: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifications",
			Name:      "processing",
			Help:      "Current number of claimed (in-flight) outbox rows.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// RecordEnqueue counts a row accepted at the producer edge.
func RecordEnqueue(channel, eventType string) {
	getMetrics().enqueueTotal.WithLabelValues(channel, eventType).Inc()
}
