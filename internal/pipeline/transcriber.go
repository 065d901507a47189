package pipeline

import (
	"strings"
	"time"
	"unicode"
)

// minEnergyForTranscription is the RMS floor below which a chunk is
// treated as silence-only and never sent to the Transcriber capability
// at all — an earlier cut of the same "suppress empty output" policy
// the station itself applies after transcription.
const minEnergyForTranscription = 0.002

// TranscribeResult is what the Transcriber capability returns for one
// chunk.
type TranscribeResult struct {
	Text       string
	Confidence float32
}

// Transcriber is the external ASR capability consumed by the
// TranscriberStation. It may be slow; invocations from one station
// instance are always serial.
type Transcriber interface {
	Transcribe(samples []int16, sampleRate int, languageHint string) (TranscribeResult, error)
}

// TranscribeFatalError may be returned by a Transcriber implementation to
// signal an unrecoverable condition (model unloaded, device lost). Any
// other error is treated as recoverable.
type TranscribeFatalError struct {
	Message string
}

func (e *TranscribeFatalError) Error() string { return e.Message }

// TranscriberFilters are optional, pipeline-owner-configured
// post-processing filters applied to a TranscribeResult before it is
// forwarded to the Sink stage.
type TranscriberFilters struct {
	// AllowedLanguages, if non-empty, suppresses every result when the
	// station's configured languageHint isn't in the set. The capability's
	// result carries no language, so no per-result detected language is
	// checked. Empty means "accept any language".
	AllowedLanguages map[string]bool
	// MinConfidence suppresses results below this confidence. Zero
	// disables the filter.
	MinConfidence float32
	// HallucinationPhrases is a denylist of common ASR hallucinations
	// (e.g. "thank you for watching" on a silent chunk), compared after
	// punctuation normalization.
	HallucinationPhrases []string
}

// TranscriberStation consumes AudioChunks, invokes the Transcriber
// capability, and emits TranscribedText. Chunk ordering is preserved:
// the station never reorders outputs relative to inputs because it
// processes one chunk at a time.
type TranscriberStation struct {
	transcriber  Transcriber
	languageHint string
	filters      TranscriberFilters
	sampleRate   int
	reporter     ErrorReporter
	warnedStall  bool
}

// NewTranscriberStation builds a TranscriberStation around transcriber.
func NewTranscriberStation(transcriber Transcriber, sampleRate int, languageHint string, filters TranscriberFilters, reporter ErrorReporter) *TranscriberStation {
	return &TranscriberStation{
		transcriber:  transcriber,
		languageHint: languageHint,
		filters:      filters,
		sampleRate:   sampleRate,
		reporter:     reporter,
	}
}

func (s *TranscriberStation) Name() string { return "transcriber" }

func (s *TranscriberStation) Process(chunk AudioChunk) (*TranscribedText, error) {
	if CalculateRMS(chunk.Samples) < minEnergyForTranscription {
		return nil, nil
	}

	start := time.Now()
	result, err := s.transcriber.Transcribe(chunk.Samples, s.sampleRate, s.languageHint)
	elapsed := time.Since(start)

	if err != nil {
		if fatal, ok := err.(*TranscribeFatalError); ok {
			return nil, Fatal("transcriber capability signalled fatal condition: %s", fatal.Message)
		}
		return nil, Recoverable("transcription failed for chunk %d: %s", chunk.Sequence, err.Error())
	}

	if elapsed > time.Duration(chunk.DurationMs)*time.Millisecond && !s.warnedStall {
		s.warnedStall = true
		if s.reporter != nil {
			s.reporter.Report(s.Name(), KindRecoverable, "transcription is slower than real time; the pipeline cannot keep up")
		}
	}

	text := cleanTranscription(result.Text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if s.isHallucination(text) {
		return nil, nil
	}
	if s.filters.MinConfidence > 0 && result.Confidence < s.filters.MinConfidence {
		return nil, nil
	}
	if len(s.filters.AllowedLanguages) > 0 && !s.filters.AllowedLanguages[s.languageHint] {
		return nil, nil
	}

	out := TranscribedText{Text: text, Timestamp: chunk.StartTime}
	return &out, nil
}

func (s *TranscriberStation) Shutdown() *TranscribedText { return nil }

// cleanTranscription strips bracketed non-speech markers some ASR models
// emit for music, noise, or other non-verbal audio, e.g. "[MUSIC]" or
// "(laughs)".
func cleanTranscription(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '[', '(':
			depth++
			continue
		case ']', ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (s *TranscriberStation) isHallucination(text string) bool {
	if len(s.filters.HallucinationPhrases) == 0 {
		return false
	}
	normalized := normalizePunctuation(text)
	for _, phrase := range s.filters.HallucinationPhrases {
		if normalized == normalizePunctuation(phrase) {
			return true
		}
	}
	return false
}

// normalizePunctuation lowercases and strips punctuation (including
// common CJK punctuation) so hallucination-phrase comparison is
// insensitive to trailing periods, full-width punctuation, and case.
func normalizePunctuation(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) || isCJKPunctuation(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isCJKPunctuation(r rune) bool {
	switch r {
	case '。', '，', '、', '！', '？', '：', '；', '「', '」', '『', '』':
		return true
	default:
		return false
	}
}
