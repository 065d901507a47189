package pipeline

import (
	"testing"
	"time"
)

// TestScenarioSingleUtterance exercises silence, then speech, then
// trailing silence, then the source closing. One chunk is expected and
// the collector accumulates the single transcription.
func TestScenarioSingleUtterance(t *testing.T) {
	var frames []AudioFrame
	frames = append(frames, silenceAudioFrames(100, 0)...)
	frames = append(frames, utteranceFrames(75, 100)...)

	source := &mockAudioSource{frames: frames}
	transcriber := &scriptedTranscriber{results: []TranscribeResult{{Text: "hello world", Confidence: 1}}}
	sink := NewCollectorSink()

	handle := startTestPipeline(source, transcriber, sink)
	got := handle.Stop()

	if got == nil || *got != "hello world" {
		t.Fatalf("Stop() = %v, want \"hello world\"", got)
	}
}

// TestScenarioTwoUtterancesSeparatedByLongPause checks that the first
// utterance closes on its own trailing-silence gap, while the second has
// no trailing silence and is only emitted by the shutdown-flush.
func TestScenarioTwoUtterancesSeparatedByLongPause(t *testing.T) {
	var frames []AudioFrame
	frames = append(frames, utteranceFrames(50, 0)...)
	second := speechAudioFrames(40, 1000)
	frames = append(frames, second...)
	// No trailing silence after the second utterance: only the
	// shutdown-flush emits it, once the source closes.

	source := &mockAudioSource{frames: frames}
	transcriber := &scriptedTranscriber{results: []TranscribeResult{
		{Text: "first", Confidence: 1},
		{Text: "second", Confidence: 1},
	}}
	sink := NewCollectorSink()

	handle := startTestPipeline(source, transcriber, sink)
	got := handle.Stop()

	if got == nil || *got != "first second" {
		t.Fatalf("Stop() = %v, want \"first second\"", got)
	}
}

// TestScenarioGapShrinkingFloorBoundary feeds 4800ms of speech (S >= 4500
// -> floor gap 80ms) followed by exactly two silence frames (80ms),
// verifying the boundary triggers on the second frame.
func TestScenarioGapShrinkingFloorBoundary(t *testing.T) {
	chunker := NewChunkerStation(ChunkerConfig{SampleRate: testSampleRate, FrameDurationMs: testFrameMs})
	var frames []VadFrame
	frames = append(frames, speechFrames(120)...)
	frames = append(frames, silenceFrames(1)...)
	if chunks := feed(chunker, frames); len(chunks) != 0 {
		t.Fatalf("one silence frame (40ms) must not yet reach the 80ms floor, got %d chunks", len(chunks))
	}
	second, err := chunker.Process(vadFrame(121, false, samplesPerFrame()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == nil {
		t.Fatal("the second silence frame (80ms total) must trigger the chunk boundary")
	}
}

// TestScenarioBackpressure checks that a slow transcriber and several
// utterances still deliver every transcription to the sink, in order,
// without deadlocking.
func TestScenarioBackpressure(t *testing.T) {
	const utteranceCount = 5
	var frames []AudioFrame
	seq := uint64(0)
	for i := 0; i < utteranceCount; i++ {
		u := utteranceFrames(50, seq)
		frames = append(frames, u...)
		seq += uint64(len(u))
	}

	results := make([]TranscribeResult, utteranceCount)
	want := make([]string, utteranceCount)
	for i := range results {
		text := []rune("utterance-0")
		text[len(text)-1] = rune('0' + i)
		results[i] = TranscribeResult{Text: string(text), Confidence: 1}
		want[i] = string(text)
	}

	source := &mockAudioSource{frames: frames}
	transcriber := &scriptedTranscriber{results: results, delay: 30 * time.Millisecond}
	sink := NewCollectorSink()

	handle := startTestPipeline(source, transcriber, sink)
	got := handle.Stop()

	wantJoined := want[0]
	for _, w := range want[1:] {
		wantJoined += " " + w
	}
	if got == nil || *got != wantJoined {
		t.Fatalf("Stop() = %v, want %q (in order)", got, wantJoined)
	}
}

// TestScenarioFatalTranscriber triggers a fatal transcriber error on the
// third chunk; chunks 0 and 1 must still reach the sink, the reporter
// gets one fatal report naming the transcriber stage, and Stop() returns
// the two-text collector value.
func TestScenarioFatalTranscriber(t *testing.T) {
	var frames []AudioFrame
	seq := uint64(0)
	for i := 0; i < 3; i++ {
		u := utteranceFrames(50, seq)
		frames = append(frames, u...)
		seq += uint64(len(u))
	}

	transcriber := &scriptedTranscriber{
		results: []TranscribeResult{{Text: "one"}, {Text: "two"}},
		errs:    []error{nil, nil, &TranscribeFatalError{Message: "model unloaded"}},
	}
	source := &mockAudioSource{frames: frames}
	sink := NewCollectorSink()
	reporter := &CollectingReporter{}

	handle := startTestPipelineWithReporter(source, transcriber, sink, reporter)
	got := handle.Stop()

	if got == nil || *got != "one two" {
		t.Fatalf("Stop() = %v, want \"one two\"", got)
	}

	var fatalReports []Report
	for _, r := range reporter.All() {
		if r.Kind == KindFatal {
			fatalReports = append(fatalReports, r)
		}
	}
	if len(fatalReports) != 1 || fatalReports[0].Stage != "transcriber" {
		t.Fatalf("fatal reports = %v, want exactly one naming the transcriber stage", fatalReports)
	}
}

// TestScenarioEmptyTranscriptionSuppression transcribes one of three
// chunks to empty text; the collector must contain exactly the other
// two, in order.
func TestScenarioEmptyTranscriptionSuppression(t *testing.T) {
	var frames []AudioFrame
	seq := uint64(0)
	for i := 0; i < 3; i++ {
		u := utteranceFrames(50, seq)
		frames = append(frames, u...)
		seq += uint64(len(u))
	}

	transcriber := &scriptedTranscriber{results: []TranscribeResult{
		{Text: "one", Confidence: 1},
		{Text: "", Confidence: 1},
		{Text: "three", Confidence: 1},
	}}
	source := &mockAudioSource{frames: frames}
	sink := NewCollectorSink()

	handle := startTestPipeline(source, transcriber, sink)
	got := handle.Stop()

	if got == nil || *got != "one three" {
		t.Fatalf("Stop() = %v, want \"one three\"", got)
	}
}
