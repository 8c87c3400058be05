package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the tool.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal        *prometheus.CounterVec
	GenerationLatency *prometheus.HistogramVec
	NarrationLatency  prometheus.Histogram
	SpeechQueueDepth  prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by speaker and outcome.",
		}, []string{"speaker", "outcome"}),
		GenerationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "Reply generation latency per speaker in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"speaker"}),
		NarrationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narration_latency_seconds",
			Help:      "Time spent narrating one utterance in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		SpeechQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speech_queue_depth",
			Help:      "Playback tasks currently enqueued or narrating.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Collaborator errors by provider and code.",
		}, []string{"provider", "code"}),
	}
}

func (m *Metrics) ObserveGeneration(speaker string, d time.Duration) {
	m.GenerationLatency.WithLabelValues(speaker).Observe(d.Seconds())
}

func (m *Metrics) ObserveNarration(d time.Duration) {
	m.NarrationLatency.Observe(d.Seconds())
}

// Handler serves this instance's registry; each Metrics value carries its
// own registry so tests can construct instruments freely.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
