package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TextSink is the terminal capability consumed by the SinkStation. handle
// must not block the pipeline arbitrarily; a sink performing I/O that can
// stall is responsible for bounding its own wait.
type TextSink interface {
	Handle(text string)
	// Finish is called at most once per pipeline lifetime, after the
	// input channel closes.
	Finish() *string
	Name() string
}

// sinkDone is the SinkStation's output type. The station never emits a
// value of it; the sink's Finish() result is kept on the station and read
// back through Result().
type sinkDone struct{}

// SinkStation invokes TextSink.Handle for every TranscribedText and calls
// Finish exactly once on shutdown, stashing the result for the pipeline
// owner to read back.
type SinkStation struct {
	sink   TextSink
	mu     sync.Mutex
	result *string
	done   bool
}

// NewSinkStation builds a SinkStation around sink.
func NewSinkStation(sink TextSink) *SinkStation {
	return &SinkStation{sink: sink}
}

func (s *SinkStation) Name() string { return "sink" }

func (s *SinkStation) Process(in TranscribedText) (*sinkDone, error) {
	s.sink.Handle(in.Text)
	return nil, nil
}

func (s *SinkStation) Shutdown() *sinkDone {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.result = s.sink.Finish()
		s.done = true
	}
	return nil
}

// Result returns the sink's Finish() value. It is only meaningful after
// the SinkStation's runner has returned.
func (s *SinkStation) Result() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// InjectorBackend is the external injection mechanism an InjectorSink
// forwards text to (a compositor portal, a virtual-keyboard device, a
// clipboard tool) — consumed here purely as an abstract contract; the
// mechanism itself is out of the core's scope.
type InjectorBackend interface {
	Inject(text string) error
}

// InjectorSink forwards text to an external injection backend. It is a
// side-effect-only sink: Finish always returns nil.
type InjectorSink struct {
	backend  InjectorBackend
	reporter ErrorReporter
}

// NewInjectorSink builds an InjectorSink around backend. reporter, if
// non-nil, receives a recoverable report for each injection failure (the
// text is still considered delivered from the pipeline's point of view —
// injection failures do not halt transcription).
func NewInjectorSink(backend InjectorBackend, reporter ErrorReporter) *InjectorSink {
	return &InjectorSink{backend: backend, reporter: reporter}
}

func (s *InjectorSink) Name() string { return "injector-sink" }

func (s *InjectorSink) Handle(text string) {
	if err := s.backend.Inject(text); err != nil && s.reporter != nil {
		s.reporter.Report(s.Name(), KindRecoverable, fmt.Sprintf("injection failed: %s", err.Error()))
	}
}

func (s *InjectorSink) Finish() *string { return nil }

// CollectorSink appends delivered text to an internal buffer, joined by a
// single space with internal whitespace normalized. Finish returns the
// accumulated string, or nil if nothing was ever delivered.
type CollectorSink struct {
	mu    sync.Mutex
	parts []string
}

// NewCollectorSink builds an empty CollectorSink.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (s *CollectorSink) Name() string { return "collector-sink" }

func (s *CollectorSink) Handle(text string) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts = append(s.parts, normalized)
}

func (s *CollectorSink) Finish() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.parts) == 0 {
		return nil
	}
	joined := strings.Join(s.parts, " ")
	return &joined
}

// StandardOutSink writes each delivered text followed by a newline to w.
// Finish always returns nil.
type StandardOutSink struct {
	w  *bufio.Writer
	mu sync.Mutex
}

// NewStandardOutSink builds a StandardOutSink writing to w.
func NewStandardOutSink(w io.Writer) *StandardOutSink {
	return &StandardOutSink{w: bufio.NewWriter(w)}
}

func (s *StandardOutSink) Name() string { return "stdout-sink" }

func (s *StandardOutSink) Handle(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, text)
	s.w.Flush()
}

func (s *StandardOutSink) Finish() *string { return nil }
