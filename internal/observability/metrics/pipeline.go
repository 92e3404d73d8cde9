package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/booklab/booklab/internal/core/domain"
)

// PipelineMetrics tracks processing runs and page outcomes on the worker. It
// implements the pipeline's run observer.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	pagesTotal   *prometheus.CounterVec
	runsInFlight prometheus.Gauge
	queueBacklog prometheus.Gauge
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booklab",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total finished processing runs by terminal document status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booklab",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Processing run duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service"},
	)
	pagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booklab",
			Subsystem: "pipeline",
			Name:      "pages_total",
			Help:      "Total processed pages by outcome status.",
		},
		[]string{"service", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "booklab",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of processing runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "booklab",
			Subsystem: "pipeline",
			Name:      "dispatch_backlog",
			Help:      "Number of triggers waiting in the worker dispatch queue.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(runsTotal, runDuration, pagesTotal, runsInFlight, queueBacklog)

	return &PipelineMetrics{
		registry:     registry,
		service:      service,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		pagesTotal:   pagesTotal,
		runsInFlight: runsInFlight,
		queueBacklog: queueBacklog,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) PageProcessed(status domain.PageStatus) {
	m.pagesTotal.WithLabelValues(m.service, string(status)).Inc()
}

func (m *PipelineMetrics) RunFinished(status domain.DocumentStatus) {
	m.runsTotal.WithLabelValues(m.service, string(status)).Inc()
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(duration time.Duration) {
	m.runsInFlight.Dec()
	m.runDuration.WithLabelValues(m.service).Observe(duration.Seconds())
}

func (m *PipelineMetrics) SetDispatchBacklog(depth int) {
	m.queueBacklog.Set(float64(depth))
}
