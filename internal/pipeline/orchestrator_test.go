package pipeline

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

type mockHandle struct {
	once sync.Once
	done chan struct{}
}

func (h *mockHandle) Stop() {
	h.once.Do(func() { close(h.done) })
}

// mockAudioSource replays a fixed slice of AudioFrames then closes, as a
// file-backed or synthetic source would once exhausted. Stop is idempotent
// and safe to call whether or not the replay has already finished.
type mockAudioSource struct {
	frames []AudioFrame
}

func (m *mockAudioSource) Start(out chan<- AudioFrame, reporter ErrorReporter) (SourceHandle, error) {
	handle := &mockHandle{done: make(chan struct{})}
	go func() {
		defer close(out)
		for _, f := range m.frames {
			out <- f
		}
	}()
	return handle, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func speechAudioFrames(n int, startSeq uint64) []AudioFrame {
	frames := make([]AudioFrame, n)
	for i := range frames {
		frames[i] = AudioFrame{Samples: sineWave(samplesPerFrame(), 0.5), Sequence: startSeq + uint64(i)}
	}
	return frames
}

func silenceAudioFrames(n int, startSeq uint64) []AudioFrame {
	frames := make([]AudioFrame, n)
	for i := range frames {
		frames[i] = AudioFrame{Samples: make([]int16, samplesPerFrame()), Sequence: startSeq + uint64(i)}
	}
	return frames
}

// utteranceFrames produces speechFrameCount speech frames followed by
// requiredGap/frame+1 trailing silence frames, at least enough to reach the
// adaptive chunker's required gap for that much buffered speech,
// guaranteeing a chunk boundary.
func utteranceFrames(speechFrameCount int, startSeq uint64) []AudioFrame {
	speechMs := uint32(speechFrameCount * testFrameMs)
	gapFrames := int(requiredGap(speechMs))/testFrameMs + 1
	frames := append([]AudioFrame{}, speechAudioFrames(speechFrameCount, startSeq)...)
	frames = append(frames, silenceAudioFrames(gapFrames, startSeq+uint64(speechFrameCount))...)
	return frames
}

type scriptedTranscriber struct {
	mu      sync.Mutex
	results []TranscribeResult
	errs    []error
	delay   time.Duration
	calls   int
}

func (s *scriptedTranscriber) Transcribe(samples []int16, sampleRate int, languageHint string) (TranscribeResult, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if idx < len(s.errs) && s.errs[idx] != nil {
		return TranscribeResult{}, s.errs[idx]
	}
	if idx < len(s.results) {
		return s.results[idx], nil
	}
	return TranscribeResult{Text: "hello world", Confidence: 1}, nil
}

func startTestPipeline(source AudioSource, transcriber Transcriber, sink TextSink) *Handle {
	return startTestPipelineWithReporter(source, transcriber, sink, nil)
}

func startTestPipelineWithReporter(source AudioSource, transcriber Transcriber, sink TextSink, reporter ErrorReporter) *Handle {
	cfg := DefaultPipelineConfig()
	cfg.ShutdownTimeout = 5 * time.Second
	h, err := Start(cfg, source, transcriber, sink, testLogger(), reporter)
	if err != nil {
		panic(err)
	}
	return h
}
