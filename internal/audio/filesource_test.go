package audio

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/burka/voicsh/internal/pipeline"
)

func writeTestWAV(t *testing.T, samples []int16, sampleRate int) string {
	t.Helper()
	data, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	path := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestWAVFileSourceDeliversFramesInOrder(t *testing.T) {
	sampleRate := 16000
	frameDurationMs := 1 // keep the test fast; one frame per millisecond
	samplesPerFrame := sampleRate * frameDurationMs / 1000
	samples := make([]int16, samplesPerFrame*3)
	for i := range samples {
		samples[i] = int16(i)
	}
	path := writeTestWAV(t, samples, sampleRate)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := NewWAVFileSource(path, frameDurationMs, logger)

	frames := make(chan pipeline.AudioFrame, 8)
	handle, err := source.Start(frames, &pipeline.CollectingReporter{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer handle.Stop()

	var got []pipeline.AudioFrame
	for f := range frames {
		got = append(got, f)
	}

	if len(got) != 3 {
		t.Fatalf("got %d frames, want 3", len(got))
	}
	for i, f := range got {
		if f.Sequence != uint64(i) {
			t.Errorf("frame %d: Sequence = %d, want %d", i, f.Sequence, i)
		}
		if len(f.Samples) != samplesPerFrame {
			t.Errorf("frame %d: len(Samples) = %d, want %d", i, len(f.Samples), samplesPerFrame)
		}
	}
}

func TestWAVFileSourceStopBeforeExhaustionClosesPromptly(t *testing.T) {
	sampleRate := 16000
	frameDurationMs := 40
	samplesPerFrame := sampleRate * frameDurationMs / 1000
	samples := make([]int16, samplesPerFrame*1000)
	path := writeTestWAV(t, samples, sampleRate)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := NewWAVFileSource(path, frameDurationMs, logger)

	frames := make(chan pipeline.AudioFrame, 1)
	handle, err := source.Start(frames, &pipeline.CollectingReporter{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-frames // let the first frame land before requesting stop
	done := make(chan struct{})
	go func() {
		handle.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return promptly")
	}
}

func TestWAVFileSourceRejectsMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := NewWAVFileSource("/nonexistent/path.wav", 40, logger)
	if _, err := source.Start(make(chan pipeline.AudioFrame), &pipeline.CollectingReporter{}); err == nil {
		t.Fatal("expected an error for a missing WAV file")
	}
}
