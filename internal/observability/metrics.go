package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	backendRequests   *prometheus.CounterVec
	backendLatency    *prometheus.HistogramVec
	recordings        *prometheus.CounterVec
	recordingDuration prometheus.Histogram
	audioBytes        prometheus.Counter
	dispatches        *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		backendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_backend_requests_total",
			Help: "Backend calls by operation and outcome",
		}, []string{"operation", "status"}),
		backendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medbridge_backend_latency_seconds",
			Help:    "Backend call latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		recordings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_recordings_total",
			Help: "Recording sessions by outcome",
		}, []string{"outcome"}),
		recordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medbridge_recording_duration_seconds",
			Help:    "Elapsed time of finished recordings",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}),
		audioBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "medbridge_audio_captured_bytes_total",
			Help: "Encoded audio bytes captured from the microphone",
		}),
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_messages_dispatched_total",
			Help: "Outbound messages by kind and outcome",
		}, []string{"kind", "status"}),
	}
}

// Registry exposes the underlying registry for tests and handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RecordBackendCall records one backend operation.
func (m *Metrics) RecordBackendCall(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.backendLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	m.backendRequests.WithLabelValues(operation, statusLabel(err)).Inc()
}

// RecordRecording records how a capture session ended.
func (m *Metrics) RecordRecording(outcome string, seconds int, bytes int) {
	if m == nil {
		return
	}
	m.recordings.WithLabelValues(outcome).Inc()
	if outcome == "captured" {
		m.recordingDuration.Observe(float64(seconds))
	}
	if bytes > 0 {
		m.audioBytes.Add(float64(bytes))
	}
}

// RecordDispatch records an outbound text or audio message.
func (m *Metrics) RecordDispatch(kind string, err error) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(kind, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
