// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voicevault"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Recording metrics
	RecordingsCreated prometheus.Counter
	RecordingsDeleted prometheus.Counter
	AudioBytesStored  prometheus.Counter

	// Capture metrics
	CaptureErrors *prometheus.CounterVec

	// Transcription metrics
	TranscriptionsStarted prometheus.Counter
	TranscriptionsActive  prometheus.Gauge
	TranscriptsInterim    prometheus.Counter
	TranscriptsFinal      prometheus.Counter
	TranscriptionErrors   prometheus.Counter

	// Store metrics
	StoreLoadDuration prometheus.Histogram
	StoreSaveDuration prometheus.Histogram
	StoreLoadFailures *prometheus.CounterVec

	// Identity metrics
	SignIns  *prometheus.CounterVec
	SignOuts prometheus.Counter
}

// Default is the global metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RecordingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_created_total",
			Help:      "Total number of recordings finalized and stored",
		}),
		RecordingsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_deleted_total",
			Help:      "Total number of recordings deleted",
		}),
		AudioBytesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_stored_total",
			Help:      "Total audio payload bytes written to storage",
		}),

		CaptureErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Total number of microphone capture failures",
		}, []string{"reason"}),

		TranscriptionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_started_total",
			Help:      "Total number of transcription sessions started",
		}),
		TranscriptionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcriptions_active",
			Help:      "Number of transcription sessions currently in progress",
		}),
		TranscriptsInterim: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_interim_total",
			Help:      "Total number of interim recognition results received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final recognition results received",
		}),
		TranscriptionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of recognition runtime errors",
		}),

		StoreLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_load_duration_seconds",
			Help:      "Duration of partition snapshot loads",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		StoreSaveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_save_duration_seconds",
			Help:      "Duration of partition snapshot saves",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		StoreLoadFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_load_failures_total",
			Help:      "Total number of malformed or unreadable persisted entries recovered from",
		}, []string{"kind"}),

		SignIns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Total number of sign-ins by method",
		}, []string{"method"}),
		SignOuts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_outs_total",
			Help:      "Total number of sign-outs",
		}),
	}
}

// RecordRecordingCreated records a finalized recording.
func (m *Metrics) RecordRecordingCreated(audioBytes int64) {
	m.RecordingsCreated.Inc()
	m.AudioBytesStored.Add(float64(audioBytes))
}

// RecordRecordingDeleted records a deleted recording.
func (m *Metrics) RecordRecordingDeleted() {
	m.RecordingsDeleted.Inc()
}

// RecordCaptureError records a microphone capture failure.
func (m *Metrics) RecordCaptureError(reason string) {
	m.CaptureErrors.WithLabelValues(reason).Inc()
}

// RecordTranscriptionStart records a transcription session starting.
func (m *Metrics) RecordTranscriptionStart() {
	m.TranscriptionsStarted.Inc()
	m.TranscriptionsActive.Inc()
}

// RecordTranscriptionEnd records a transcription session ending.
func (m *Metrics) RecordTranscriptionEnd() {
	m.TranscriptionsActive.Dec()
}

// RecordInterimResult records an interim recognition result.
func (m *Metrics) RecordInterimResult() {
	m.TranscriptsInterim.Inc()
}

// RecordFinalResult records a final recognition result.
func (m *Metrics) RecordFinalResult() {
	m.TranscriptsFinal.Inc()
}

// RecordTranscriptionError records a recognition runtime error.
func (m *Metrics) RecordTranscriptionError() {
	m.TranscriptionErrors.Inc()
}

// ObserveStoreLoad records the duration of a partition load.
func (m *Metrics) ObserveStoreLoad(seconds float64) {
	m.StoreLoadDuration.Observe(seconds)
}

// ObserveStoreSave records the duration of a partition save.
func (m *Metrics) ObserveStoreSave(seconds float64) {
	m.StoreSaveDuration.Observe(seconds)
}

// RecordLoadFailure records a malformed persisted entry that load
// recovered from.
func (m *Metrics) RecordLoadFailure(kind string) {
	m.StoreLoadFailures.WithLabelValues(kind).Inc()
}

// RecordSignIn records a sign-in by method.
func (m *Metrics) RecordSignIn(method string) {
	m.SignIns.WithLabelValues(method).Inc()
}

// RecordSignOut records a sign-out.
func (m *Metrics) RecordSignOut() {
	m.SignOuts.Inc()
}
