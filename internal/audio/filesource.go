package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/burka/voicsh/internal/pipeline"
)

// WAVFileSource is a pipeline.AudioSource that reads a WAV file once and
// replays its samples as fixed-duration AudioFrames, paced at real time so
// downstream VAD/Chunker timing behaves as it would against a live feed.
// It closes its output channel once the file is exhausted.
type WAVFileSource struct {
	path            string
	frameDurationMs int
	logger          *slog.Logger
}

// NewWAVFileSource builds a WAVFileSource over the WAV file at path,
// delivering frameDurationMs of audio per AudioFrame.
func NewWAVFileSource(path string, frameDurationMs int, logger *slog.Logger) *WAVFileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WAVFileSource{path: path, frameDurationMs: frameDurationMs, logger: logger}
}

type fileSourceHandle struct {
	stop chan struct{}
	once sync.Once
	wg   *sync.WaitGroup
}

func (h *fileSourceHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
	h.wg.Wait()
}

// Start implements pipeline.AudioSource.
func (s *WAVFileSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) (pipeline.SourceHandle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file %s: %w", s.path, err)
	}

	samples, sampleRate, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV file %s: %w", s.path, err)
	}

	samplesPerFrame := sampleRate * s.frameDurationMs / 1000
	if samplesPerFrame <= 0 {
		return nil, fmt.Errorf("frame duration %dms at sample rate %d produces zero samples per frame", s.frameDurationMs, sampleRate)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	s.logger.Info("WAV file source started", slog.String("path", s.path), slog.Int("sample_rate", sampleRate), slog.Int("samples", len(samples)))

	go func() {
		defer wg.Done()
		defer close(frames)

		ticker := time.NewTicker(time.Duration(s.frameDurationMs) * time.Millisecond)
		defer ticker.Stop()

		var seq uint64
		for offset := 0; offset < len(samples); offset += samplesPerFrame {
			end := offset + samplesPerFrame
			if end > len(samples) {
				end = len(samples)
			}
			frame := make([]int16, samplesPerFrame)
			copy(frame, samples[offset:end])

			select {
			case frames <- pipeline.AudioFrame{Samples: frame, Timestamp: time.Now(), Sequence: seq}:
			case <-stop:
				return
			}
			seq++

			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}

		s.logger.Info("WAV file source exhausted", slog.String("path", s.path))
	}()

	return &fileSourceHandle{stop: stop, wg: &wg}, nil
}
