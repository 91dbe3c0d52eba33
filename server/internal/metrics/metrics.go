package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netpulse"

// Suggestion outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	batchesReceived    prometheus.Counter
	devicesReceived    prometheus.Counter
	batchesGenerated   prometheus.Counter
	suggestions        *prometheus.CounterVec
	suggestionDuration prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New builds and registers all collectors. storedBatches, when non-nil,
// backs a gauge of batches currently held in memory.
func New(storedBatches func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		batchesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_received_total",
			Help:      "Total batches accepted from agents over gRPC.",
		}),
		devicesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_received_total",
			Help:      "Total device records accepted from agents over gRPC.",
		}),
		batchesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_generated_total",
			Help:      "Total batches generated on demand through the REST API.",
		}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestion requests by outcome.",
		}, []string{"outcome"}),
		suggestionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestion_duration_seconds",
			Help:      "Latency of calls to the suggestion endpoint.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.batchesReceived,
		m.devicesReceived,
		m.batchesGenerated,
		m.suggestions,
		m.suggestionDuration,
		m.httpRequests,
		m.httpDuration,
	)
	if storedBatches != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_batches",
			Help:      "Batches currently held in memory, including stale ones awaiting eviction.",
		}, func() float64 { return float64(storedBatches()) }))
	}
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// BatchReceived records one batch of devices accepted from an agent.
func (m *Metrics) BatchReceived(devices int) {
	if m == nil {
		return
	}
	m.batchesReceived.Inc()
	m.devicesReceived.Add(float64(devices))
}

// BatchGenerated records one on-demand batch.
func (m *Metrics) BatchGenerated() {
	if m == nil {
		return
	}
	m.batchesGenerated.Inc()
}

// Suggestion records the outcome and duration of one suggestion request.
func (m *Metrics) Suggestion(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeUnavailable {
		m.suggestionDuration.Observe(d.Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController and websocket upgrades reach the
// underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// WrapHandler counts and times requests served by next under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
