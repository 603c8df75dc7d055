package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitord",
			Subsystem: "collector",
			Name:      "samples_total",
			Help:      "Number of successful collector samples.",
		}, []string{"category"},
	)
	sampleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitord",
			Subsystem: "collector",
			Name:      "sample_failures_total",
			Help:      "Number of collector samples that returned an error.",
		}, []string{"category"},
	)
	sampleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "monitord",
			Subsystem: "collector",
			Name:      "sample_duration_seconds",
			Help:      "Wall time spent inside collector sample calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"},
	)
	collectorPaused = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "monitord",
			Subsystem: "collector",
			Name:      "paused",
			Help:      "1 while a category scheduler is paused (no active subscribers).",
		}, []string{"category"},
	)
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitord",
			Subsystem: "delivery",
			Name:      "deliveries_total",
			Help:      "Snapshots handed to subscriber sinks.",
		}, []string{"category"},
	)
	dropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitord",
			Subsystem: "delivery",
			Name:      "drops_total",
			Help:      "Snapshots dropped because a subscriber sink would block.",
		}, []string{"category"},
	)
	activeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "monitord",
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Current ACTIVE subscriptions per category.",
		}, []string{"category"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cols := []prometheus.Collector{
		samplesTotal, sampleFailures, sampleDuration, collectorPaused,
		deliveriesTotal, dropsTotal, activeSubscriptions,
	}
	for _, c := range cols {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default registry; mounted on /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func IncSample(category string)         { samplesTotal.WithLabelValues(category).Inc() }
func IncSampleFailure(category string)  { sampleFailures.WithLabelValues(category).Inc() }
func ObserveSampleDuration(category string, secs float64) {
	sampleDuration.WithLabelValues(category).Observe(secs)
}
func SetPaused(category string, paused bool) {
	v := 0.0
	if paused {
		v = 1.0
	}
	collectorPaused.WithLabelValues(category).Set(v)
}
func IncDelivery(category string) { deliveriesTotal.WithLabelValues(category).Inc() }
func IncDrop(category string)     { dropsTotal.WithLabelValues(category).Inc() }
func SetActiveSubscriptions(category string, n int) {
	activeSubscriptions.WithLabelValues(category).Set(float64(n))
}
