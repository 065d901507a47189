package pipeline

import (
	"math"
	"testing"
)

func sineWave(n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*440*float64(i)/16000)
		samples[i] = int16(v * 32767)
	}
	return samples
}

func TestCalculateRMSOfSilenceIsZero(t *testing.T) {
	samples := make([]int16, 640)
	if rms := CalculateRMS(samples); rms != 0 {
		t.Errorf("RMS of all-zero samples = %f, want 0", rms)
	}
}

func TestCalculateRMSOfEmptyIsZero(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0 {
		t.Errorf("RMS of empty samples = %f, want 0", rms)
	}
}

func TestThresholdLinearConversion(t *testing.T) {
	cfg := VADConfig{ThresholdDB: -20} // 10^(-20/20) = 0.1
	got := cfg.ThresholdLinear()
	want := float32(0.1)
	if diff := got - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("ThresholdLinear() = %f, want %f", got, want)
	}
}

func TestVADStationClassifiesSilence(t *testing.T) {
	station := NewVADStation(VADConfig{ThresholdDB: -34}, nil)
	frame := AudioFrame{Samples: make([]int16, 640), Sequence: 1}
	out, err := station.Process(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsSpeech {
		t.Error("a frame of pure silence must classify as not-speech")
	}
	if out.Level != 0 {
		t.Errorf("level = %f, want 0", out.Level)
	}
}

func TestVADStationThresholdDecidesSpeech(t *testing.T) {
	// -6 dBFS full-scale sine: amplitude = 10^(-6/20) ~= 0.501
	samples := sineWave(640, math.Pow(10, -6.0/20))

	loThreshold := NewVADStation(VADConfig{ThresholdDB: -20}, nil) // 0.1 linear
	out, _ := loThreshold.Process(AudioFrame{Samples: samples})
	if !out.IsSpeech {
		t.Error("with threshold -20 dBFS, a -6 dBFS tone must classify as speech")
	}

	hiThreshold := NewVADStation(VADConfig{ThresholdDB: 0}, nil) // 1.0 linear
	out, _ = hiThreshold.Process(AudioFrame{Samples: samples})
	if out.IsSpeech {
		t.Error("with threshold 0 dBFS, a -6 dBFS tone must classify as silence")
	}
}

func TestVADStationNeverDropsFrames(t *testing.T) {
	station := NewVADStation(VADConfig{ThresholdDB: -20}, nil)
	for i := 0; i < 10; i++ {
		out, err := station.Process(AudioFrame{Samples: make([]int16, 640), Sequence: uint64(i)})
		if err != nil || out == nil {
			t.Fatalf("frame %d: VAD must never filter or error on silence, got out=%v err=%v", i, out, err)
		}
	}
}

func TestVADStationCarriesSequenceAndTimestampThrough(t *testing.T) {
	station := NewVADStation(VADConfig{ThresholdDB: -20}, nil)
	in := AudioFrame{Samples: make([]int16, 640), Sequence: 42}
	out, _ := station.Process(in)
	if out.Sequence != 42 {
		t.Errorf("sequence = %d, want 42", out.Sequence)
	}
}

func TestVADStationNoAudioWatchdogFiresOnce(t *testing.T) {
	reporter := &CollectingReporter{}
	station := NewVADStation(VADConfig{ThresholdDB: -20}, reporter)
	for i := 0; i < noAudioWarningFrames+5; i++ {
		station.Process(AudioFrame{Samples: make([]int16, 640)})
	}
	reports := reporter.All()
	if len(reports) != 1 {
		t.Fatalf("expected exactly one no-audio report, got %d", len(reports))
	}
	if reports[0].Kind != KindRecoverable {
		t.Errorf("no-audio report kind = %s, want recoverable", reports[0].Kind)
	}
}

func TestVADStationNoAudioWatchdogResetsOnAudio(t *testing.T) {
	reporter := &CollectingReporter{}
	station := NewVADStation(VADConfig{ThresholdDB: -20}, reporter)
	for i := 0; i < noAudioWarningFrames-1; i++ {
		station.Process(AudioFrame{Samples: make([]int16, 640)})
	}
	station.Process(AudioFrame{Samples: sineWave(640, 0.9)})
	for i := 0; i < noAudioWarningFrames-1; i++ {
		station.Process(AudioFrame{Samples: make([]int16, 640)})
	}
	if len(reporter.All()) != 0 {
		t.Errorf("watchdog must reset its counter after a loud frame")
	}
}

func TestVADStationAutoLevelAdjustsThreshold(t *testing.T) {
	station := NewVADStation(VADConfig{ThresholdDB: -20, AutoLevel: true}, nil)
	initial := station.threshold
	for i := 0; i < 200; i++ {
		// Quiet background noise, well below the configured threshold.
		station.Process(AudioFrame{Samples: sineWave(640, 0.01)})
	}
	if station.threshold == initial {
		t.Error("auto-level threshold should adapt away from the initial configured value")
	}
}
