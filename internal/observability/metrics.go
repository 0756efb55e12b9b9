// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "nft_floor"

// Metrics holds all Prometheus metrics for an estimation run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Input metrics
	TradesLoaded  prometheus.Counter
	TradesDropped *prometheus.CounterVec

	// Estimation metrics
	CollectionsEstimated prometheus.Counter
	CollectionsSkipped   *prometheus.CounterVec
	ObservedHitRate      prometheus.Histogram
	AdjustedTarget       prometheus.Histogram

	// Latency metrics
	RunDuration        *prometheus.HistogramVec
	StoreWriteDuration *prometheus.HistogramVec
}

// NewMetrics creates metrics registered on registry. A nil registry gets a
// fresh one with the Go and process collectors attached.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		TradesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "trades_loaded_total",
			Help:      "Total number of trade records read from the source",
		}),
		TradesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "trades_dropped_total",
			Help:      "Total number of trade records removed by sanitization, by reason",
		}, []string{"reason"}),

		CollectionsEstimated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimation",
			Name:      "collections_estimated_total",
			Help:      "Total number of collections that produced a floor price",
		}),
		CollectionsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimation",
			Name:      "collections_skipped_total",
			Help:      "Total number of collections skipped, by reason",
		}, []string{"reason"}),
		ObservedHitRate: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "estimation",
			Name:      "observed_hit_rate",
			Help:      "Realized backtest hit-rate per collection",
			Buckets:   prometheus.LinearBuckets(0, 0.02, 11),
		}),
		AdjustedTarget: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "estimation",
			Name:      "adjusted_target",
			Help:      "Controller output quantile per collection",
			Buckets:   prometheus.LinearBuckets(0, 0.01, 21),
		}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Estimation run duration in seconds, by status",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		StoreWriteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_duration_seconds",
			Help:      "Floor price store write latency in seconds, by backend",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordLoaded adds n to the loaded trades counter.
func (m *Metrics) RecordLoaded(n int) {
	if m == nil {
		return
	}
	m.TradesLoaded.Add(float64(n))
}

// RecordDropped adds the per-reason drop counts of one sanitization pass.
func (m *Metrics) RecordDropped(byReason map[string]int) {
	if m == nil {
		return
	}
	for reason, n := range byReason {
		m.TradesDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordEstimate records one successful collection estimate.
func (m *Metrics) RecordEstimate(observedHitRate, adjustedTarget float64) {
	if m == nil {
		return
	}
	m.CollectionsEstimated.Inc()
	m.ObservedHitRate.Observe(observedHitRate)
	m.AdjustedTarget.Observe(adjustedTarget)
}

// RecordSkipped records a collection that produced no estimate.
func (m *Metrics) RecordSkipped(reason string) {
	if m == nil {
		return
	}
	m.CollectionsSkipped.WithLabelValues(reason).Inc()
}

// ObserveRun records the duration of a whole run.
func (m *Metrics) ObserveRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(status).Observe(seconds)
}

// ObserveStoreWrite records the latency of one InsertBulk call.
func (m *Metrics) ObserveStoreWrite(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.StoreWriteDuration.WithLabelValues(backend).Observe(seconds)
}
