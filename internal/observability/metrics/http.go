package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics covers the API binary: generic request telemetry plus
// the swipe/profile counters the product dashboards read.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	swipesTotal          *prometheus.CounterVec
	publishFailuresTotal *prometheus.CounterVec
	profileReadsTotal    *prometheus.CounterVec
	imagePicksTotal      *prometheus.CounterVec
	streamSubscribers    prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagecraft",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stagecraft",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	swipesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "swipes",
			Name:      "appended_total",
			Help:      "Total swipes durably appended, by direction.",
		},
		[]string{"service", "direction"},
	)
	publishFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "swipes",
			Name:      "recompute_publish_failures_total",
			Help:      "Recompute triggers dropped at publish time.",
		},
		[]string{"service"},
	)
	profileReadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "profiles",
			Name:      "reads_total",
			Help:      "Profile reads by outcome (found, missing).",
		},
		[]string{"service", "outcome"},
	)
	imagePicksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagecraft",
			Subsystem: "images",
			Name:      "picks_total",
			Help:      "Reference images handed out for swiping.",
		},
		[]string{"service"},
	)
	streamSubscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stagecraft",
			Subsystem: "profiles",
			Name:      "stream_subscribers",
			Help:      "Open SSE profile subscriptions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		swipesTotal, publishFailuresTotal, profileReadsTotal, imagePicksTotal, streamSubscribers,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		swipesTotal:          swipesTotal,
		publishFailuresTotal: publishFailuresTotal,
		profileReadsTotal:    profileReadsTotal,
		imagePicksTotal:      imagePicksTotal,
		streamSubscribers:    streamSubscribers,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) ObserveRequest(service, method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(service, method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RequestStarted()  { m.requestInFlight.Inc() }
func (m *HTTPServerMetrics) RequestFinished() { m.requestInFlight.Dec() }

func (m *HTTPServerMetrics) SwipeAppended(service, direction string) {
	m.swipesTotal.WithLabelValues(service, direction).Inc()
}

func (m *HTTPServerMetrics) RecomputePublishFailed(service string) {
	m.publishFailuresTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) ProfileRead(service, outcome string) {
	m.profileReadsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) ImagesPicked(service string, count int) {
	m.imagePicksTotal.WithLabelValues(service).Add(float64(count))
}

func (m *HTTPServerMetrics) StreamOpened() { m.streamSubscribers.Inc() }
func (m *HTTPServerMetrics) StreamClosed() { m.streamSubscribers.Dec() }
