package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/firewatch/incident-push/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	PushesSent    *prometheus.CounterVec
	PushesFailed  *prometheus.CounterVec
	PushLatency   *prometheus.HistogramVec
	ItemsDrained  prometheus.Counter
	QueueBacklog  prometheus.Gauge
	DrainDuration prometheus.Histogram
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PushesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushes_sent_total",
			Help: "Total number of push deliveries accepted by a transport.",
		}, []string{"platform"}),

		PushesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushes_failed_total",
			Help: "Total number of per-subscriber delivery failures.",
		}, []string{"platform"}),

		PushLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "push_delivery_seconds",
			Help:    "Latency of a single transport delivery attempt.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),

		ItemsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_items_drained_total",
			Help: "Total number of queue items marked processed.",
		}),

		QueueBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_backlog",
			Help: "Unprocessed queue items at the last snapshot.",
		}),

		DrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_drain_seconds",
			Help:    "Wall time of one full drain invocation.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.PushesSent,
		m.PushesFailed,
		m.PushLatency,
		m.ItemsDrained,
		m.QueueBacklog,
		m.DrainDuration,
	)

	return m
}

// DispatchHooks returns the metric callback functions expected by
// service.MetricHooks. Centralises the prometheus observation calls so
// the service stays metrics-agnostic.
func (m *Metrics) DispatchHooks() (
	onSent func(domain.Platform, time.Duration),
	onFailed func(domain.Platform),
	onDrained func(items int, elapsed time.Duration),
) {
	onSent = func(p domain.Platform, latency time.Duration) {
		m.PushesSent.WithLabelValues(string(p)).Inc()
		m.PushLatency.WithLabelValues(string(p)).Observe(latency.Seconds())
	}
	onFailed = func(p domain.Platform) {
		m.PushesFailed.WithLabelValues(string(p)).Inc()
	}
	onDrained = func(items int, elapsed time.Duration) {
		m.ItemsDrained.Add(float64(items))
		m.DrainDuration.Observe(elapsed.Seconds())
	}
	return
}
