package pipeline

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Default channel capacities.
const (
	DefaultAudioVADChannelSize        = 32
	DefaultVADChunkerChannelSize      = 16
	DefaultChunkerTranscriberChanSize = 4
	DefaultTranscriberSinkChannelSize = 4

	// DefaultShutdownTimeout is how long Stop waits for stage goroutines
	// to exit before abandoning them with a diagnostic report.
	DefaultShutdownTimeout = time.Second
)

// PipelineConfig carries the recognized tuning and sizing knobs for a
// pipeline run.
type PipelineConfig struct {
	SampleRate             int
	FrameDurationMs        int
	VADSilenceThresholdDB  float64
	VADHysteresis          float32
	VADAutoLevel           bool
	ChunkerPreRoll         bool
	LanguageHint           string
	TranscriberFilters     TranscriberFilters
	ShutdownTimeout        time.Duration

	AudioVADChannelSize        int
	VADChunkerChannelSize      int
	ChunkerTranscriberChanSize int
	TranscriberSinkChannelSize int
}

// DefaultPipelineConfig returns a PipelineConfig with the default
// settings: 16 kHz sample rate, 40 ms frames, and the default channel
// capacities.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SampleRate:                 16000,
		FrameDurationMs:            40,
		VADSilenceThresholdDB:      -34, // ~0.02 linear
		ShutdownTimeout:            DefaultShutdownTimeout,
		AudioVADChannelSize:        DefaultAudioVADChannelSize,
		VADChunkerChannelSize:      DefaultVADChunkerChannelSize,
		ChunkerTranscriberChanSize: DefaultChunkerTranscriberChanSize,
		TranscriberSinkChannelSize: DefaultTranscriberSinkChannelSize,
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.FrameDurationMs == 0 {
		c.FrameDurationMs = d.FrameDurationMs
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.AudioVADChannelSize == 0 {
		c.AudioVADChannelSize = d.AudioVADChannelSize
	}
	if c.VADChunkerChannelSize == 0 {
		c.VADChunkerChannelSize = d.VADChunkerChannelSize
	}
	if c.ChunkerTranscriberChanSize == 0 {
		c.ChunkerTranscriberChanSize = d.ChunkerTranscriberChanSize
	}
	if c.TranscriberSinkChannelSize == 0 {
		c.TranscriberSinkChannelSize = d.TranscriberSinkChannelSize
	}
	return c
}

// Handle is returned by Start and exposes the pipeline's shutdown protocol.
type Handle struct {
	runID        string
	sourceHandle SourceHandle
	sink         *SinkStation
	done         chan struct{}
	timeout      time.Duration
	logger       *slog.Logger
	reporter     ErrorReporter
}

// RunID is the correlation id assigned to this pipeline run, surfaced in
// structured logs and admin-server status output.
func (h *Handle) RunID() string { return h.runID }

// Stop initiates the shutdown protocol: it stops the source, which
// cascades channel closure stage-by-stage, then joins with a bounded
// timeout and returns the Sink's Finish() value.
func (h *Handle) Stop() *string {
	h.logger.Info("pipeline stop requested", slog.String("run_id", h.runID))
	h.sourceHandle.Stop()

	select {
	case <-h.done:
	case <-time.After(h.timeout):
		h.reporter.Report("orchestrator", KindFatal, "stage goroutines did not exit within the shutdown timeout; abandoning")
	}
	return h.sink.Result()
}

// Start wires the five stages together and returns a
// Handle. source, transcriber, and sink are the pluggable boundary
// implementations; cfg supplies sizing and tuning knobs. reporter may be
// nil, in which case a LogReporter writing through logger is used; tests
// pass a CollectingReporter to assert on reports.
func Start(cfg PipelineConfig, source AudioSource, transcriber Transcriber, sink TextSink, logger *slog.Logger, reporter ErrorReporter) (*Handle, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = NewLogReporter(logger)
	}
	runID := uuid.NewString()

	audioToVAD := make(chan AudioFrame, cfg.AudioVADChannelSize)
	vadToChunker := make(chan VadFrame, cfg.VADChunkerChannelSize)
	chunkerToTranscriber := make(chan AudioChunk, cfg.ChunkerTranscriberChanSize)
	transcriberToSink := make(chan TranscribedText, cfg.TranscriberSinkChannelSize)
	sinkDoneCh := make(chan sinkDone)

	vadStation := NewVADStation(VADConfig{
		ThresholdDB: cfg.VADSilenceThresholdDB,
		Hysteresis:  cfg.VADHysteresis,
		AutoLevel:   cfg.VADAutoLevel,
	}, reporter)

	chunkerStation := NewChunkerStation(ChunkerConfig{
		SampleRate:      cfg.SampleRate,
		FrameDurationMs: cfg.FrameDurationMs,
		PreRoll:         cfg.ChunkerPreRoll,
	})

	transcriberStation := NewTranscriberStation(transcriber, cfg.SampleRate, cfg.LanguageHint, cfg.TranscriberFilters, reporter)
	sinkStation := NewSinkStation(sink)

	sourceHandle, err := source.Start(audioToVAD, reporter)
	if err != nil {
		return nil, err
	}

	var group errgroup.Group
	group.Go(func() error {
		RunStation[AudioFrame, VadFrame](vadStation, audioToVAD, vadToChunker, reporter)
		return nil
	})
	group.Go(func() error {
		RunStation[VadFrame, AudioChunk](chunkerStation, vadToChunker, chunkerToTranscriber, reporter)
		return nil
	})
	group.Go(func() error {
		RunStation[AudioChunk, TranscribedText](transcriberStation, chunkerToTranscriber, transcriberToSink, reporter)
		return nil
	})
	group.Go(func() error {
		RunStation[TranscribedText, sinkDone](sinkStation, transcriberToSink, sinkDoneCh, reporter)
		return nil
	})
	group.Go(func() error {
		// sinkDoneCh never carries a value; it is closed when the Sink
		// runner returns, so this goroutine ends only after the Sink
		// runner has finished.
		for range sinkDoneCh {
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = group.Wait()
	}()

	logger.Info("pipeline started", slog.String("run_id", runID), slog.Int("sample_rate", cfg.SampleRate))

	return &Handle{
		runID:        runID,
		sourceHandle: sourceHandle,
		sink:         sinkStation,
		done:         done,
		timeout:      cfg.ShutdownTimeout,
		logger:       logger,
		reporter:     reporter,
	}, nil
}
