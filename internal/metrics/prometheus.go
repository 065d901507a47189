package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/burka/voicsh/internal/pipeline"
)

// Metrics contains all Prometheus metrics exported by a pipeline run.
type Metrics struct {
	// Source metrics
	FramesIngested prometheus.Counter
	SourceErrors   prometheus.Counter

	// VAD metrics
	VADWindowsProcessed prometheus.Counter
	VADVoiceDetected    prometheus.Counter
	VADProcessingTime   prometheus.Histogram

	// Chunker metrics
	ChunksGenerated prometheus.Counter
	ChunkDuration   prometheus.Histogram
	ChunkSpeechMs   prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	TranscriptionRetries   prometheus.Counter
	TranscriptionSuppressed prometheus.Counter

	// Sink metrics
	SinkDeliveries prometheus.Counter

	// Stage error-reporter metrics, labeled by stage name and report kind
	// ("recoverable" or "fatal").
	StageReports *prometheus.CounterVec

	// Admin HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics against the
// default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		FramesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_frames_ingested_total",
			Help: "Total number of audio frames read from the source",
		}),
		SourceErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_source_errors_total",
			Help: "Total number of source-stage errors reported",
		}),

		VADWindowsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_vad_windows_processed_total",
			Help: "Total number of VAD frames processed",
		}),
		VADVoiceDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_vad_voice_detected_total",
			Help: "Total number of VAD frames classified as speech",
		}),
		VADProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicsh_vad_processing_duration_seconds",
			Help:    "Time spent classifying a single VAD frame",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),

		ChunksGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_chunks_generated_total",
			Help: "Total number of audio chunks emitted by the chunker",
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicsh_chunk_duration_seconds",
			Help:    "Duration of generated audio chunks",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		ChunkSpeechMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicsh_chunk_speech_milliseconds",
			Help:    "Buffered speech duration at chunk emission time",
			Buckets: prometheus.LinearBuckets(0, 500, 12),
		}),

		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicsh_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),
		TranscriptionSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_transcription_suppressed_total",
			Help: "Total number of transcription results suppressed by a filter",
		}),

		SinkDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicsh_sink_deliveries_total",
			Help: "Total number of texts delivered to the sink",
		}),

		StageReports: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicsh_stage_reports_total",
			Help: "Total number of error reports by stage and kind",
		}, []string{"stage", "kind"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicsh_http_requests_total",
			Help: "Total number of admin HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicsh_http_request_duration_seconds",
			Help:    "Duration of admin HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordFrameIngested increments the frames-ingested counter.
func (m *Metrics) RecordFrameIngested() {
	m.FramesIngested.Inc()
}

// RecordVADWindow records one VAD classification.
func (m *Metrics) RecordVADWindow(hasVoice bool, processingTimeSeconds float64) {
	m.VADWindowsProcessed.Inc()
	if hasVoice {
		m.VADVoiceDetected.Inc()
	}
	m.VADProcessingTime.Observe(processingTimeSeconds)
}

// RecordChunkGenerated records a chunk emitted by the chunker.
func (m *Metrics) RecordChunkGenerated(durationSeconds float64, speechMs float64) {
	m.ChunksGenerated.Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkSpeechMs.Observe(speechMs)
}

// RecordTranscriptionRequest increments the transcription requests counter.
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription.
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription.
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter.
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordTranscriptionSuppressed increments the suppressed-result counter.
func (m *Metrics) RecordTranscriptionSuppressed() {
	m.TranscriptionSuppressed.Inc()
}

// RecordSinkDelivery increments the sink deliveries counter.
func (m *Metrics) RecordSinkDelivery() {
	m.SinkDeliveries.Inc()
}

// RecordStageReport increments the stage-reports counter for the given
// stage and kind ("recoverable" or "fatal").
func (m *Metrics) RecordStageReport(stage, kind string) {
	m.StageReports.WithLabelValues(stage, kind).Inc()
}

// RecordHTTPRequest records an admin HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// Reporter wraps another pipeline.ErrorReporter and records every report
// against StageReports before forwarding it, so the admin server's
// /metrics endpoint reflects error-reporter activity without every Station
// needing to know about Prometheus.
type Reporter struct {
	metrics *Metrics
	next    pipeline.ErrorReporter
}

// NewReporter builds a Reporter that records into metrics and forwards to
// next. next may be nil, in which case reports are only recorded.
func NewReporter(metrics *Metrics, next pipeline.ErrorReporter) *Reporter {
	return &Reporter{metrics: metrics, next: next}
}

func (r *Reporter) Report(stageName string, kind pipeline.ErrorKind, message string) {
	r.metrics.RecordStageReport(stageName, string(kind))
	if r.next != nil {
		r.next.Report(stageName, kind, message)
	}
}
