package pipeline

import "time"

// requiredGap is the pure adaptive-chunker gap function: the monotonically
// non-increasing step function of buffered speech duration that decides
// how much trailing silence must elapse before a chunk boundary fires.
// It has no I/O and no shared state, and is directly unit-testable
// against the table it implements.
func requiredGap(speechDurationMs uint32) uint32 {
	switch {
	case speechDurationMs < 2500:
		return 400
	case speechDurationMs < 3000:
		return 250
	case speechDurationMs < 3500:
		return 150
	case speechDurationMs < 4500:
		return 100
	default:
		return 80
	}
}

// chunkerState is the Chunker's internal state machine position.
type chunkerState int

const (
	chunkerIdle chunkerState = iota
	chunkerInSpeech
	chunkerInTrailingSilence
)

// preRollMaxMs bounds the optional pre-speech ring buffer the Chunker
// keeps while Idle, so the first speech chunk does not clip its onset.
const preRollMaxMs = 200

// ChunkerConfig configures the ChunkerStation.
type ChunkerConfig struct {
	SampleRate      int
	FrameDurationMs int
	// PreRoll enables the bounded pre-speech ring buffer that keeps a
	// short lead-in before the first voiced frame. Disabled by default.
	PreRoll bool
}

// ChunkerStation segments a VadFrame stream into AudioChunks per the
// state machine and gap-shrinking policy of the adaptive chunker.
type ChunkerStation struct {
	sampleRate int
	frameMs    int
	preRoll    bool

	state        chunkerState
	buffer       []int16
	speechMs     uint32
	silenceMs    uint32
	preRollBuf   []int16
	preRollLimit int
	sequence     uint64
	startTime    time.Time
}

// NewChunkerStation builds a ChunkerStation from cfg.
func NewChunkerStation(cfg ChunkerConfig) *ChunkerStation {
	frameMs := cfg.FrameDurationMs
	if frameMs <= 0 {
		frameMs = 40
	}
	return &ChunkerStation{
		sampleRate:   cfg.SampleRate,
		frameMs:      frameMs,
		preRoll:      cfg.PreRoll,
		preRollLimit: sampleCount(cfg.SampleRate, preRollMaxMs),
	}
}

func (c *ChunkerStation) Name() string { return "chunker" }

// Process implements the chunker's state transitions.
func (c *ChunkerStation) Process(in VadFrame) (*AudioChunk, error) {
	if len(in.Samples) == 0 {
		return nil, Recoverable("chunker: dropped empty vad frame")
	}

	switch c.state {
	case chunkerIdle:
		if !in.IsSpeech {
			c.bufferPreRoll(in.Samples)
			return nil, nil
		}
		c.startChunk(in)
		c.state = chunkerInSpeech
		return nil, nil

	case chunkerInSpeech:
		c.buffer = append(c.buffer, in.Samples...)
		if in.IsSpeech {
			c.speechMs += uint32(len(in.Samples)) * 1000 / uint32(c.sampleRate)
			return nil, nil
		}
		c.state = chunkerInTrailingSilence
		c.silenceMs = uint32(c.frameMs)
		return nil, nil

	case chunkerInTrailingSilence:
		c.buffer = append(c.buffer, in.Samples...)
		if in.IsSpeech {
			c.speechMs += uint32(len(in.Samples)) * 1000 / uint32(c.sampleRate)
			c.state = chunkerInSpeech
			c.silenceMs = 0
			return nil, nil
		}
		c.silenceMs += uint32(c.frameMs)
		if c.silenceMs >= requiredGap(c.speechMs) {
			chunk := c.emit()
			return &chunk, nil
		}
		return nil, nil
	}
	return nil, nil
}

// Shutdown flushes any buffered speech as a final chunk; an empty buffer
// emits nothing.
func (c *ChunkerStation) Shutdown() *AudioChunk {
	if c.state == chunkerIdle || len(c.buffer) == 0 {
		return nil
	}
	chunk := c.emit()
	return &chunk
}

func (c *ChunkerStation) startChunk(in VadFrame) {
	c.buffer = c.buffer[:0]
	if c.preRoll && len(c.preRollBuf) > 0 {
		c.buffer = append(c.buffer, c.preRollBuf...)
	}
	c.buffer = append(c.buffer, in.Samples...)
	c.preRollBuf = c.preRollBuf[:0]
	c.speechMs = uint32(len(in.Samples)) * 1000 / uint32(c.sampleRate)
	c.silenceMs = 0
	c.startTime = in.Timestamp
}

func (c *ChunkerStation) bufferPreRoll(samples []int16) {
	if !c.preRoll || c.preRollLimit <= 0 {
		return
	}
	c.preRollBuf = append(c.preRollBuf, samples...)
	if excess := len(c.preRollBuf) - c.preRollLimit; excess > 0 {
		c.preRollBuf = c.preRollBuf[excess:]
	}
}

func (c *ChunkerStation) emit() AudioChunk {
	samples := make([]int16, len(c.buffer))
	copy(samples, c.buffer)
	chunk := AudioChunk{
		Samples:    samples,
		DurationMs: durationMs(len(samples), c.sampleRate),
		Sequence:   c.sequence,
		StartTime:  c.startTime,
	}
	c.sequence++
	c.buffer = c.buffer[:0]
	c.speechMs = 0
	c.silenceMs = 0
	c.state = chunkerIdle
	return chunk
}
