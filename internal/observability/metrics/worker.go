package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	syncTotal      *prometheus.CounterVec
	syncDuration   *prometheus.HistogramVec
	syncInFlight   prometheus.Gauge
	policiesSynced *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	syncTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pp",
			Subsystem: "worker",
			Name:      "sync_runs_total",
			Help:      "Total policy sync runs by status.",
		},
		[]string{"service", "status"},
	)
	syncDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pp",
			Subsystem: "worker",
			Name:      "sync_duration_seconds",
			Help:      "Policy sync run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	syncInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pp",
			Subsystem: "worker",
			Name:      "sync_in_flight",
			Help:      "Number of in-flight policy sync runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	policiesSynced := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pp",
			Subsystem: "worker",
			Name:      "policies_synced_total",
			Help:      "Total policies upserted by sync runs.",
		},
		[]string{"service", "category"},
	)

	registry.MustRegister(syncTotal, syncDuration, syncInFlight, policiesSynced)

	return &WorkerMetrics{
		registry:       registry,
		syncTotal:      syncTotal,
		syncDuration:   syncDuration,
		syncInFlight:   syncInFlight,
		policiesSynced: policiesSynced,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSync() {
	m.syncInFlight.Inc()
}

func (m *WorkerMetrics) FinishSync(service string, duration time.Duration, err error) {
	m.syncInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.syncTotal.WithLabelValues(service, status).Inc()
	m.syncDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddPoliciesSynced(service, category string, count int) {
	if count <= 0 {
		return
	}
	if category == "" {
		category = "all"
	}
	m.policiesSynced.WithLabelValues(service, category).Add(float64(count))
}
