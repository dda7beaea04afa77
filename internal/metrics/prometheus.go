package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the relay's Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsOpened  prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Chunk metrics
	ChunksReceived prometheus.Counter
	BytesReceived  prometheus.Counter
	ChunksDropped  prometheus.Counter

	// Flush metrics
	Flushes              *prometheus.CounterVec
	FlushPayloadBytes    prometheus.Histogram
	TranscriptionLatency prometheus.Histogram
	ProcessingFailures   prometheus.Counter
	ResultsDropped       prometheus.Counter
}

// NewMetrics creates the metrics on a private registry so several relays
// (and tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicerelay_active_sessions",
			Help: "Number of open relay sessions",
		}),
		SessionsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_sessions_opened_total",
			Help: "Total number of sessions opened",
		}),
		SessionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicerelay_session_duration_seconds",
			Help:    "Lifetime of relay sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		}),

		ChunksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_chunks_received_total",
			Help: "Total number of audio chunks received",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_bytes_received_total",
			Help: "Total number of audio bytes received",
		}),
		ChunksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_chunks_discarded_total",
			Help: "Chunks discarded unflushed when their session closed",
		}),

		Flushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicerelay_flushes_total",
			Help: "Total number of buffer flushes",
		}, []string{"trigger"}),
		FlushPayloadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicerelay_flush_payload_bytes",
			Help:    "Size of concatenated flush payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		TranscriptionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicerelay_transcription_duration_seconds",
			Help:    "Duration of transcription calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		ProcessingFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_processing_failures_total",
			Help: "Flushes that produced an error frame",
		}),
		ResultsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_results_dropped_total",
			Help: "Results dropped because the connection was no longer open",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSessionOpened() {
	m.SessionsOpened.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionClosed records the close and how many buffered chunks were discarded.
func (m *Metrics) RecordSessionClosed(durationSeconds float64, discarded int) {
	m.SessionsClosed.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if discarded > 0 {
		m.ChunksDropped.Add(float64(discarded))
	}
}

func (m *Metrics) RecordChunk(size int) {
	m.ChunksReceived.Inc()
	m.BytesReceived.Add(float64(size))
}

// RecordFlush records one flush; trigger is "threshold" or "timer".
func (m *Metrics) RecordFlush(trigger string, payloadBytes int, seconds float64) {
	m.Flushes.WithLabelValues(trigger).Inc()
	m.FlushPayloadBytes.Observe(float64(payloadBytes))
	m.TranscriptionLatency.Observe(seconds)
}

func (m *Metrics) RecordProcessingFailure() {
	m.ProcessingFailures.Inc()
}

func (m *Metrics) RecordResultDropped() {
	m.ResultsDropped.Inc()
}
