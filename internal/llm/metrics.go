package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianshen/docgen/internal/prompt"
)

const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeExhausted = "exhausted"
)

// callerMetrics holds Prometheus metrics for model calls.
type callerMetrics struct {
	once sync.Once

	calls   *prometheus.CounterVec
	retries *prometheus.CounterVec
	backoff prometheus.Histogram
}

var metrics callerMetrics

func (m *callerMetrics) init() {
	m.once.Do(func() {
		m.calls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docgen_model_calls_total",
			Help: "Model calls by capability and final outcome",
		}, []string{"capability", "outcome"})
		m.retries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docgen_model_retries_total",
			Help: "Rate-limited model calls that were retried",
		}, []string{"capability"})
		m.backoff = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docgen_model_backoff_seconds",
			Help:    "Backoff applied before retrying a rate-limited call",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		})
		prometheus.MustRegister(m.calls, m.retries, m.backoff)
	})
}

func recordCall(c prompt.Capability, outcome string) {
	metrics.init()
	metrics.calls.WithLabelValues(string(c), outcome).Inc()
}

func recordRetry(c prompt.Capability, delay time.Duration) {
	metrics.init()
	metrics.retries.WithLabelValues(string(c)).Inc()
	metrics.backoff.Observe(delay.Seconds())
}
