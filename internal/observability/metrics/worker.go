package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the recompute consumer.
type WorkerMetrics struct {
	registry *prometheus.Registry

	recomputeTotal    *prometheus.CounterVec
	recomputeDuration *prometheus.HistogramVec
	recomputeInFlight prometheus.Gauge
	completionsTotal  *prometheus.CounterVec
	queueLag          *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	recomputeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "worker",
			Name:      "profile_recompute_total",
			Help:      "Total profile recomputations by status.",
		},
		[]string{"service", "status"},
	)
	recomputeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagecraft",
			Subsystem: "worker",
			Name:      "profile_recompute_duration_seconds",
			Help:      "Profile recomputation duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	recomputeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stagecraft",
			Subsystem: "worker",
			Name:      "profile_recompute_in_flight",
			Help:      "Number of in-flight profile recomputations.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	completionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "worker",
			Name:      "profile_completions_total",
			Help:      "Profiles whose completion latch tripped.",
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagecraft",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between the triggering swipe and recompute start.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)

	registry.MustRegister(recomputeTotal, recomputeDuration, recomputeInFlight, completionsTotal, queueLag)

	return &WorkerMetrics{
		registry:          registry,
		recomputeTotal:    recomputeTotal,
		recomputeDuration: recomputeDuration,
		recomputeInFlight: recomputeInFlight,
		completionsTotal:  completionsTotal,
		queueLag:          queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRecompute() {
	m.recomputeInFlight.Inc()
}

func (m *WorkerMetrics) FinishRecompute(service string, duration time.Duration, err error) {
	m.recomputeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.recomputeTotal.WithLabelValues(service, status).Inc()
	m.recomputeDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ProfileCompleted(service string) {
	m.completionsTotal.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
