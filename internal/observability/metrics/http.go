package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	evidenceDecisionTotal *prometheus.CounterVec
	mergedCandidates      *prometheus.HistogramVec
	verificationTotal     *prometheus.CounterVec
	pipelineDuration      *prometheus.HistogramVec
	searchResultsTotal    *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pp",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	evidenceDecisionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pp",
			Subsystem: "chat",
			Name:      "evidence_decisions_total",
			Help:      "Total chat turns by evidence source (internal, external, none).",
		},
		[]string{"service", "source"},
	)
	mergedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pp",
			Subsystem: "chat",
			Name:      "merged_candidates",
			Help:      "Distribution of evidence candidates after the priority merge.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	verificationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pp",
			Subsystem: "chat",
			Name:      "verifications_total",
			Help:      "Total answer verification passes by outcome.",
		},
		[]string{"service", "outcome"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pp",
			Subsystem: "chat",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end chat pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	searchResultsTotal := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pp",
			Subsystem: "search",
			Name:      "results_per_page",
			Help:      "Distribution of results returned per keyword search page.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		evidenceDecisionTotal,
		mergedCandidates,
		verificationTotal,
		pipelineDuration,
		searchResultsTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		evidenceDecisionTotal: evidenceDecisionTotal,
		mergedCandidates:      mergedCandidates,
		verificationTotal:     verificationTotal,
		pipelineDuration:      pipelineDuration,
		searchResultsTotal:    searchResultsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordEvidenceDecision(service, source string, candidates int, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	m.evidenceDecisionTotal.WithLabelValues(service, source).Inc()
	m.mergedCandidates.WithLabelValues(service).Observe(float64(candidates))
	m.pipelineDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordVerification(service string, revised bool) {
	outcome := "passed"
	if revised {
		outcome = "revised"
	}
	m.verificationTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordSearchResults(service string, count int) {
	m.searchResultsTotal.WithLabelValues(service).Observe(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
