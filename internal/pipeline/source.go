package pipeline

// AudioSource is the pipeline's producer boundary. The implementer
// guarantees frame duration, sample rate, channel count, mono-ness, and
// sequence-number monotonicity. A failure to deliver frames must be
// reported through errorReporter and must close frames.
type AudioSource interface {
	// Start begins pushing AudioFrame values into frames at real time
	// and returns a SourceHandle whose Stop the owner later calls. Start must
	// not block; frame production happens on a goroutine owned by the
	// source.
	Start(frames chan<- AudioFrame, errorReporter ErrorReporter) (SourceHandle, error)
}

// SourceHandle is what an AudioSource hands back from Start; its Stop
// method ends frame production.
type SourceHandle interface {
	// Stop requests that the source stop producing frames and close its
	// output channel. Stop must not return until the source's goroutine
	// has exited.
	Stop()
}
