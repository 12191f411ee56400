package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/brief-service/internal/core/domain"
)

// WorkerMetrics implements ports.WorkerObserver.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

// NewWorkerMetrics registers worker collectors on registry, or on a fresh
// registry when registry is nil.
func NewWorkerMetrics(service string, registry *prometheus.Registry) *WorkerMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_process_total",
			Help:      "Total processed jobs by terminal status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_process_duration_seconds",
			Help:      "Job processing duration in seconds by terminal status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120, 300},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_process_in_flight",
			Help:      "Number of jobs currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job creation and claim.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "llm_tokens_total",
			Help:      "Token usage of brief generation by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, tokensTotal)

	return &WorkerMetrics{
		service:         service,
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		tokensTotal:     tokensTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) JobStarted(queueLag time.Duration) {
	m.processInFlight.Inc()
	if queueLag >= 0 {
		m.queueLag.WithLabelValues(m.service).Observe(queueLag.Seconds())
	}
}

func (m *WorkerMetrics) JobFinished(status domain.JobStatus, duration time.Duration) {
	m.processInFlight.Dec()
	m.processTotal.WithLabelValues(m.service, string(status)).Inc()
	m.processDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) TokensUsed(model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(m.service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(m.service, "out", model).Add(float64(completionTokens))
	}
}
