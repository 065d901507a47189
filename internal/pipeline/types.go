package pipeline

import "time"

// AudioFrame is one producer-delivered slice of mono 16-bit linear PCM at
// the pipeline's configured sample rate.
type AudioFrame struct {
	Samples   []int16
	Timestamp time.Time
	Sequence  uint64
}

// VadFrame is an AudioFrame carrying its voice-activity classification.
// Samples and Timestamp are carried through unchanged; ownership of the
// sample slice moves forward with the frame.
type VadFrame struct {
	Samples   []int16
	Timestamp time.Time
	Sequence  uint64
	IsSpeech  bool
	Level     float32 // RMS, normalized to [0, 1]
}

// AudioChunk is a contiguous speech region, ready for transcription.
type AudioChunk struct {
	Samples    []int16
	DurationMs uint32
	Sequence   uint64
	StartTime  time.Time
}

// TranscribedText is one transcription result flowing out of the
// Transcriber stage.
type TranscribedText struct {
	Text      string
	Timestamp time.Time
}

func sampleCount(sampleRate int, durationMs int) int {
	return sampleRate * durationMs / 1000
}

func durationMs(numSamples, sampleRate int) uint32 {
	if sampleRate <= 0 {
		return 0
	}
	return uint32(numSamples * 1000 / sampleRate)
}
