package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type stageMetrics struct {
	once     sync.Once
	duration *prometheus.HistogramVec
}

var metrics stageMetrics

func (m *stageMetrics) init() {
	m.once.Do(func() {
		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docgen_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"})
		prometheus.MustRegister(m.duration)
	})
}

func observeStage(name string, d time.Duration) {
	metrics.init()
	metrics.duration.WithLabelValues(name).Observe(d.Seconds())
}
