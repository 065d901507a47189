package pipeline

import (
	"math"
	"sort"
)

const (
	// noAudioThreshold is the RMS level below which a frame counts as
	// "near silence" for the no-audio watchdog.
	noAudioThreshold = 0.0001
	// noAudioWarningFrames is how many consecutive near-zero frames
	// trigger the one-time no-audio diagnostic.
	noAudioWarningFrames = 180
	// levelHistoryMax bounds the rolling window used by auto-level.
	levelHistoryMax = 100
)

// VADConfig configures the energy-based voice activity detector.
type VADConfig struct {
	// ThresholdDB is the silence threshold in dBFS; converted to a
	// linear RMS threshold via 10^(ThresholdDB/20).
	ThresholdDB float64
	// Hysteresis, if > 0, is subtracted (in linear units) from the
	// leaving-speech threshold so flapping on borderline frames is
	// suppressed. The entering-speech threshold stays at ThresholdLinear.
	Hysteresis float32
	// AutoLevel enables adjustThreshold-driven adaptation of the
	// threshold from a rolling history of recent RMS levels.
	AutoLevel bool
}

// ThresholdLinear converts the configured dBFS threshold to a linear RMS
// threshold: threshold_linear = 10^(threshold_db / 20).
func (c VADConfig) ThresholdLinear() float32 {
	return float32(math.Pow(10, c.ThresholdDB/20))
}

// CalculateRMS computes the root-mean-square level of samples, normalized
// to [0, 1] against the full 16-bit signed range.
func CalculateRMS(samples []int16) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		normalized := float64(s) / 32768.0
		sumSquares += normalized * normalized
	}
	return float32(math.Sqrt(sumSquares / float64(len(samples))))
}

// VADStation classifies each AudioFrame as speech or silence. It is
// stateless apart from the hysteresis/auto-level bookkeeping below; frames
// are always emitted 1-for-1 and are never dropped or coalesced.
type VADStation struct {
	threshold     float32
	hysteresis    float32
	autoLevel     bool
	wasSpeech     bool
	levelHistory  []float32
	framesSeen    int
	zeroFrames    int
	warnedNoAudio bool
	reporter      ErrorReporter
}

// NewVADStation builds a VADStation from cfg. reporter receives the
// one-time no-audio diagnostic (kind recoverable); it may be nil, in
// which case the diagnostic is dropped.
func NewVADStation(cfg VADConfig, reporter ErrorReporter) *VADStation {
	return &VADStation{
		threshold:  cfg.ThresholdLinear(),
		hysteresis: cfg.Hysteresis,
		autoLevel:  cfg.AutoLevel,
		reporter:   reporter,
	}
}

func (s *VADStation) Name() string { return "vad" }

// Process classifies one AudioFrame. It never returns an error for a
// frame of unexpected length: the VAD stage has no expected frame size and
// computes RMS over whatever samples it is given. No later stage rejects
// such frames either; the Chunker drops only empty ones.
func (s *VADStation) Process(in AudioFrame) (*VadFrame, error) {
	level := CalculateRMS(in.Samples)

	threshold := s.threshold
	if s.wasSpeech && s.hysteresis > 0 {
		threshold -= s.hysteresis
		if threshold < 0 {
			threshold = 0
		}
	}
	isSpeech := level > threshold
	s.wasSpeech = isSpeech

	if s.autoLevel {
		s.recordLevel(level)
		s.framesSeen++
		if s.framesSeen%20 == 0 {
			s.adjustThreshold()
		}
	}
	s.checkNoAudio(level)

	out := VadFrame{
		Samples:   in.Samples,
		Timestamp: in.Timestamp,
		Sequence:  in.Sequence,
		IsSpeech:  isSpeech,
		Level:     level,
	}
	return &out, nil
}

func (s *VADStation) Shutdown() *VadFrame { return nil }

func (s *VADStation) recordLevel(level float32) {
	s.levelHistory = append(s.levelHistory, level)
	if len(s.levelHistory) > levelHistoryMax {
		s.levelHistory = s.levelHistory[len(s.levelHistory)-levelHistoryMax:]
	}
}

// adjustThreshold recomputes the speech threshold from the 25th
// percentile of recent RMS levels, clamped to [0.002, 0.2]. Only takes
// effect when AutoLevel is enabled and there is enough history.
func (s *VADStation) adjustThreshold() {
	if !s.autoLevel || len(s.levelHistory) < 10 {
		return
	}
	sorted := make([]float32, len(s.levelHistory))
	copy(sorted, s.levelHistory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	noiseFloor := sorted[len(sorted)/4]

	newThreshold := noiseFloor * 2.0
	const lo, hi = float32(0.002), float32(0.2)
	if newThreshold < lo {
		newThreshold = lo
	} else if newThreshold > hi {
		newThreshold = hi
	}
	s.threshold = newThreshold
}

// checkNoAudio tracks consecutive near-silent frames and reports once
// after noAudioWarningFrames, to surface a disconnected or muted
// microphone early. It never affects classification.
func (s *VADStation) checkNoAudio(level float32) {
	if level < noAudioThreshold {
		s.zeroFrames++
	} else {
		s.zeroFrames = 0
		s.warnedNoAudio = false
	}
	if s.zeroFrames >= noAudioWarningFrames && !s.warnedNoAudio {
		s.warnedNoAudio = true
		if s.reporter != nil {
			s.reporter.Report(s.Name(), KindRecoverable, "no audio detected for an extended period; check the capture device")
		}
	}
}
