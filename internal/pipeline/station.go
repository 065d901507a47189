package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
)

// ErrorKind classifies a StationError for the ErrorReporter.
type ErrorKind string

const (
	// KindRecoverable marks a condition affecting a single message; the
	// station drops that message and continues.
	KindRecoverable ErrorKind = "recoverable"
	// KindFatal marks a condition from which the station cannot make
	// progress; the runner shuts the station down.
	KindFatal ErrorKind = "fatal"
)

// StationError is the two-kind error a Station.Process may return.
// Recoverable errors never close a channel; fatal errors always do.
type StationError struct {
	Kind    ErrorKind
	Message string
}

func (e *StationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Recoverable builds a recoverable StationError.
func Recoverable(format string, args ...any) *StationError {
	return &StationError{Kind: KindRecoverable, Message: fmt.Sprintf(format, args...)}
}

// Fatal builds a fatal StationError.
func Fatal(format string, args ...any) *StationError {
	return &StationError{Kind: KindFatal, Message: fmt.Sprintf(format, args...)}
}

// Station is the per-stage processing contract: a pure handler from one
// input message to zero or one output message. Implementations carry no
// inheritance relationship to the runner; the runner is the only
// polymorphic component.
type Station[In, Out any] interface {
	// Process handles one message. A nil output with a nil error means
	// "no output for this input" (e.g. VAD frames the Chunker still
	// buffers). Process must not block on anything but its own compute
	// and the runner's downstream send.
	Process(input In) (*Out, error)
	// Name identifies the station in error reports and logs.
	Name() string
	// Shutdown is invoked exactly once: after the input channel drains
	// and closes, or right after a fatal error from Process. It may return
	// a final output (e.g. the Chunker's tail chunk) to be forwarded before
	// the output channel closes.
	Shutdown() *Out
}

// ErrorReporter is the abstract capability every runner reports through.
// It must be safe for concurrent invocation: every stage runner holds the
// same instance.
type ErrorReporter interface {
	Report(stageName string, kind ErrorKind, message string)
}

// LogReporter is the default ErrorReporter: one structured log line per
// report.
type LogReporter struct {
	Logger *slog.Logger
}

// NewLogReporter builds a LogReporter writing through logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{Logger: logger}
}

func (r *LogReporter) Report(stageName string, kind ErrorKind, message string) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{slog.String("stage", stageName), slog.String("kind", string(kind))}
	if kind == KindFatal {
		logger.Error(message, attrs...)
		return
	}
	logger.Warn(message, attrs...)
}

// CollectingReporter accumulates reports for tests; safe for concurrent use.
type CollectingReporter struct {
	mu      sync.Mutex
	Reports []Report
}

// Report is one recorded call to ErrorReporter.Report.
type Report struct {
	Stage   string
	Kind    ErrorKind
	Message string
}

func (r *CollectingReporter) Report(stageName string, kind ErrorKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, Report{Stage: stageName, Kind: kind, Message: message})
}

// All returns a snapshot of the reports recorded so far.
func (r *CollectingReporter) All() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.Reports))
	copy(out, r.Reports)
	return out
}

// RunStation wires a Station between a bounded input channel and a bounded
// output channel. It reads until input is closed, dispatches each message
// through Process, forwards non-nil outputs, and reports errors through
// reporter. On return, output is always closed, cascading shutdown to the
// next stage.
//
// RunStation returns only once input is drained and closed, or the
// station hits a fatal error. It is meant to be run in its own goroutine.
func RunStation[In, Out any](station Station[In, Out], input <-chan In, output chan<- Out, reporter ErrorReporter) {
	defer close(output)

	for msg := range input {
		out, err := station.Process(msg)
		if err != nil {
			se, ok := err.(*StationError)
			if !ok {
				se = Recoverable(err.Error())
			}
			reporter.Report(station.Name(), se.Kind, se.Message)
			if se.Kind == KindFatal {
				if final := station.Shutdown(); final != nil {
					output <- *final
				}
				return
			}
			continue
		}
		if out != nil {
			output <- *out
		}
	}

	if final := station.Shutdown(); final != nil {
		output <- *final
	}
}
