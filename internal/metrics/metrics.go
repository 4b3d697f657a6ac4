// Package metrics exposes Prometheus instrumentation for the live session
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the orchestrator.
type Metrics struct {
	registry *prometheus.Registry

	// Capture metrics
	FramesCaptured prometheus.Counter
	FramesDropped  prometheus.Counter
	BytesCaptured  prometheus.Counter

	// Recognition metrics
	RecognizerRestarts prometheus.Counter
	RecognizerDisables prometheus.Counter
	InterimResults     prometheus.Counter
	FinalResults       prometheus.Counter

	// Translation metrics
	TranslationRequests prometheus.Counter
	TranslationFailures prometheus.Counter

	// Duplex session metrics
	SessionsStarted  prometheus.Counter
	SessionsEnded    prometheus.Counter
	MessagesReceived prometheus.Counter
	AudioFramesSent  prometheus.Counter
	TextTurnsSent    prometheus.Counter

	// Playback metrics
	PlaybackChunksScheduled prometheus.Counter
	PlaybackChunksDropped   prometheus.Counter
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_frames_captured_total",
			Help: "Total number of capture frames produced",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_frames_dropped_total",
			Help: "Total number of capture frames dropped due to backpressure",
		}),
		BytesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_bytes_captured_total",
			Help: "Total number of PCM bytes captured",
		}),
		RecognizerRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_recognizer_restarts_total",
			Help: "Total number of local recognizer restarts",
		}),
		RecognizerDisables: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_recognizer_disables_total",
			Help: "Total number of permanent recognizer disables",
		}),
		InterimResults: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_interim_results_total",
			Help: "Total number of interim recognition results",
		}),
		FinalResults: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_final_results_total",
			Help: "Total number of final recognition results",
		}),
		TranslationRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_translation_requests_total",
			Help: "Total number of translation requests issued",
		}),
		TranslationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_translation_failures_total",
			Help: "Total number of failed or empty translations",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_sessions_ended_total",
			Help: "Total number of sessions ended",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_duplex_messages_received_total",
			Help: "Total number of inbound duplex messages",
		}),
		AudioFramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_duplex_audio_frames_sent_total",
			Help: "Total number of realtime audio frames sent to the cloud",
		}),
		TextTurnsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_duplex_text_turns_sent_total",
			Help: "Total number of text turns sent to the cloud",
		}),
		PlaybackChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_playback_chunks_scheduled_total",
			Help: "Total number of audio chunks scheduled for playback",
		}),
		PlaybackChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_playback_chunks_dropped_total",
			Help: "Total number of audio chunks dropped before playback",
		}),
	}
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
