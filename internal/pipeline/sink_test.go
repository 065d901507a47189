package pipeline

import (
	"bytes"
	"errors"
	"testing"
)

func TestCollectorSinkJoinsWithSingleSpace(t *testing.T) {
	sink := NewCollectorSink()
	sink.Handle("hello")
	sink.Handle("world")
	got := sink.Finish()
	if got == nil || *got != "hello world" {
		t.Fatalf("Finish() = %v, want \"hello world\"", got)
	}
}

func TestCollectorSinkFinishNoneWhenEmpty(t *testing.T) {
	sink := NewCollectorSink()
	if got := sink.Finish(); got != nil {
		t.Fatalf("Finish() on an empty collector = %v, want nil", got)
	}
}

func TestCollectorSinkNormalizesInternalWhitespace(t *testing.T) {
	sink := NewCollectorSink()
	sink.Handle("hello   there")
	sink.Handle("world")
	got := sink.Finish()
	want := "hello there world"
	if got == nil || *got != want {
		t.Fatalf("Finish() = %v, want %q", got, want)
	}
}

func TestStandardOutSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStandardOutSink(&buf)
	sink.Handle("hello")
	sink.Handle("world")
	if got := buf.String(); got != "hello\nworld\n" {
		t.Fatalf("wrote %q, want %q", got, "hello\nworld\n")
	}
	if got := sink.Finish(); got != nil {
		t.Errorf("Finish() = %v, want nil", got)
	}
}

type recordingBackend struct {
	received []string
	failOn   int
}

func (b *recordingBackend) Inject(text string) error {
	b.received = append(b.received, text)
	if b.failOn > 0 && len(b.received) == b.failOn {
		return errors.New("injection backend unavailable")
	}
	return nil
}

func TestInjectorSinkForwardsEachTextOnce(t *testing.T) {
	backend := &recordingBackend{}
	sink := NewInjectorSink(backend, nil)
	sink.Handle("hello")
	sink.Handle("world")
	if len(backend.received) != 2 || backend.received[0] != "hello" || backend.received[1] != "world" {
		t.Fatalf("backend received %v, want [hello world]", backend.received)
	}
	if got := sink.Finish(); got != nil {
		t.Errorf("Finish() = %v, want nil", got)
	}
}

func TestInjectorSinkReportsRecoverableOnBackendFailure(t *testing.T) {
	backend := &recordingBackend{failOn: 1}
	reporter := &CollectingReporter{}
	sink := NewInjectorSink(backend, reporter)
	sink.Handle("hello")
	reports := reporter.All()
	if len(reports) != 1 || reports[0].Kind != KindRecoverable {
		t.Fatalf("reports = %v, want one recoverable report", reports)
	}
}

type finishCountingSink struct {
	TextSink
	finishes int
}

func (s *finishCountingSink) Finish() *string {
	s.finishes++
	return s.TextSink.Finish()
}

func TestSinkStationCallsFinishExactlyOnce(t *testing.T) {
	sink := NewCollectorSink()
	sink.Handle("hello")
	counting := &finishCountingSink{TextSink: sink}
	station := NewSinkStation(counting)
	station.Shutdown()
	station.Shutdown()
	if counting.finishes != 1 {
		t.Fatalf("Finish called %d times, want 1", counting.finishes)
	}
	got := station.Result()
	if got == nil || *got != "hello" {
		t.Fatalf("Result() = %v, want \"hello\"", got)
	}
}
