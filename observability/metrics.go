package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type presaleMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

var (
	presaleMetricsOnce sync.Once
	presaleRegistry    *presaleMetrics
)

// Presale returns the lazily-initialised metrics registry used to record
// presale RPC activity and emitted ledger events.
func Presale() *presaleMetrics {
	presaleMetricsOnce.Do(func() {
		presaleRegistry = &presaleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tako",
				Subsystem: "presale",
				Name:      "requests_total",
				Help:      "Total JSON-RPC presale requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tako",
				Subsystem: "presale",
				Name:      "errors_total",
				Help:      "Total JSON-RPC presale errors segmented by method and code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tako",
				Subsystem: "presale",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for presale JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tako",
				Subsystem: "presale",
				Name:      "events_total",
				Help:      "Count of structured ledger events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			presaleRegistry.requests,
			presaleRegistry.errors,
			presaleRegistry.latency,
			presaleRegistry.events,
		)
	})
	return presaleRegistry
}

// RecordRequest increments the request counter and observes handler latency.
func (m *presaleMetrics) RecordRequest(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}

// RecordError increments the error counter for the supplied RPC error code.
func (m *presaleMetrics) RecordError(method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, code).Inc()
}

// RecordEvent increments the event counter for an emitted ledger event type.
func (m *presaleMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType).Inc()
}
