// Package metrics exposes pipeline Prometheus collectors and the HTTP server
// that serves them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics records per-invocation results. A nil *PipelineMetrics
// records nothing.
type PipelineMetrics struct {
	invocations     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	ciphertextBytes prometheus.Histogram
}

// NewPipelineMetrics creates the pipeline collectors and registers them with reg.
func NewPipelineMetrics(reg prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_invocations_total",
			Help: "Pipeline invocations by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		ciphertextBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_ciphertext_bytes",
			Help:    "Size of the armored ciphertext written per invocation.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.invocations, m.stageDuration, m.ciphertextBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PipelineMetrics) ObserveInvocation(outcome string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *PipelineMetrics) ObserveCiphertext(size int) {
	if m == nil {
		return
	}
	m.ciphertextBytes.Observe(float64(size))
}

// MetricsServer serves /metrics from its own registry.
type MetricsServer struct {
	Pipeline *PipelineMetrics

	registry *prometheus.Registry
	srv      *http.Server
}

// New creates a metrics server listening on addr with pipeline and Go runtime
// collectors registered.
func New(addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline, err := NewPipelineMetrics(registry)
	if err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		Pipeline: pipeline,
		registry: registry,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Handler returns the HTTP handler serving /metrics.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
