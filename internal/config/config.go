package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/burka/voicsh/internal/pipeline"
)

// Config represents the complete service configuration.
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Pipeline      PipelineSettings    `yaml:"pipeline"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Sink          SinkConfig          `yaml:"sink"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// SourceConfig selects and configures the AudioSource implementation.
type SourceConfig struct {
	Mode       string `yaml:"mode"` // "wav" or "udp"
	WAVPath    string `yaml:"wav_path"`
	UDPAddress string `yaml:"udp_address"`
	UDPPort    int    `yaml:"udp_port"`
	BufferSize int    `yaml:"buffer_size"`
}

// PipelineSettings mirrors the recognized PipelineConfig fields,
// plus the four channel-capacity knobs of the pipeline's sizing table.
type PipelineSettings struct {
	SampleRate                 int     `yaml:"sample_rate"`
	FrameDurationMs            int     `yaml:"frame_duration_ms"`
	VADThresholdDB             float64 `yaml:"vad_threshold_db"`
	VADHysteresis              float64 `yaml:"vad_hysteresis"`
	VADAutoLevel               bool    `yaml:"vad_auto_level"`
	ChunkerPreRoll             bool    `yaml:"chunker_preroll"`
	LanguageHint               string  `yaml:"language_hint"`
	ShutdownTimeoutSeconds     float64 `yaml:"shutdown_timeout_seconds"`
	AudioVADChannelSize        int     `yaml:"audio_vad_channel_size"`
	VADChunkerChannelSize      int     `yaml:"vad_chunker_channel_size"`
	ChunkerTranscriberChanSize int     `yaml:"chunker_transcriber_channel_size"`
	TranscriberSinkChannelSize int     `yaml:"transcriber_sink_channel_size"`
}

// TranscriptionConfig contains transcription HTTP client configuration and
// the post-transcription filters applied before a result reaches the sink.
type TranscriptionConfig struct {
	Endpoint             string   `yaml:"endpoint"`
	APIKey               string   `yaml:"api_key"`
	TimeoutSeconds       int      `yaml:"timeout_seconds"`
	MaxRetries           int      `yaml:"max_retries"`
	MaxConcurrent        int      `yaml:"max_concurrent"`
	MinConfidence        float64  `yaml:"min_confidence"`
	AllowedLanguages     []string `yaml:"allowed_languages"`
	HallucinationPhrases []string `yaml:"hallucination_phrases"`
}

// SinkConfig selects the TextSink implementation.
type SinkConfig struct {
	Mode string `yaml:"mode"` // "stdout", "collector", or "injector"
}

// HTTPConfig contains the admin server configuration.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates source configuration.
func (s *SourceConfig) Validate() error {
	switch s.Mode {
	case "wav":
		if s.WAVPath == "" {
			return fmt.Errorf("wav_path cannot be empty when mode is 'wav'")
		}
	case "udp":
		if s.UDPPort < 1 || s.UDPPort > 65535 {
			return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
		}
		if s.BufferSize < 1024 {
			return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", s.BufferSize)
		}
	default:
		return fmt.Errorf("mode must be 'wav' or 'udp', got '%s'", s.Mode)
	}
	return nil
}

// Validate validates pipeline configuration.
func (p *PipelineSettings) Validate() error {
	if p.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", p.SampleRate)
	}

	if p.FrameDurationMs < 10 || p.FrameDurationMs > 100 {
		return fmt.Errorf("frame_duration_ms must be between 10 and 100, got %d", p.FrameDurationMs)
	}

	if p.VADHysteresis < 0 {
		return fmt.Errorf("vad_hysteresis cannot be negative, got %f", p.VADHysteresis)
	}

	if p.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("shutdown_timeout_seconds cannot be negative, got %f", p.ShutdownTimeoutSeconds)
	}

	for name, size := range map[string]int{
		"audio_vad_channel_size":           p.AudioVADChannelSize,
		"vad_chunker_channel_size":         p.VADChunkerChannelSize,
		"chunker_transcriber_channel_size": p.ChunkerTranscriberChanSize,
		"transcriber_sink_channel_size":    p.TranscriberSinkChannelSize,
	} {
		if size < 0 {
			return fmt.Errorf("%s cannot be negative, got %d", name, size)
		}
	}

	return nil
}

// Validate validates transcription configuration.
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", t.TimeoutSeconds)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", t.MinConfidence)
	}

	return nil
}

// Validate validates sink configuration.
func (s *SinkConfig) Validate() error {
	switch s.Mode {
	case "stdout", "collector", "injector":
		return nil
	default:
		return fmt.Errorf("mode must be 'stdout', 'collector', or 'injector', got '%s'", s.Mode)
	}
}

// Validate validates admin HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.Output != "" && l.Output != "stdout" && l.Output != "stderr" {
		// Anything else is assumed to be a file path.
	}

	return nil
}

// ShutdownTimeout returns the configured shutdown timeout as a
// time.Duration.
func (p *PipelineSettings) ShutdownTimeout() time.Duration {
	return time.Duration(p.ShutdownTimeoutSeconds * float64(time.Second))
}

// ToPipelineConfig translates the YAML-facing PipelineSettings into a
// pipeline.PipelineConfig, applying pipeline.DefaultPipelineConfig for any
// field left at its zero value.
func (p *PipelineSettings) ToPipelineConfig() pipeline.PipelineConfig {
	cfg := pipeline.DefaultPipelineConfig()
	if p.SampleRate != 0 {
		cfg.SampleRate = p.SampleRate
	}
	if p.FrameDurationMs != 0 {
		cfg.FrameDurationMs = p.FrameDurationMs
	}
	if p.VADThresholdDB != 0 {
		cfg.VADSilenceThresholdDB = p.VADThresholdDB
	}
	cfg.VADHysteresis = float32(p.VADHysteresis)
	cfg.VADAutoLevel = p.VADAutoLevel
	cfg.ChunkerPreRoll = p.ChunkerPreRoll
	cfg.LanguageHint = p.LanguageHint
	if p.ShutdownTimeoutSeconds != 0 {
		cfg.ShutdownTimeout = p.ShutdownTimeout()
	}
	if p.AudioVADChannelSize != 0 {
		cfg.AudioVADChannelSize = p.AudioVADChannelSize
	}
	if p.VADChunkerChannelSize != 0 {
		cfg.VADChunkerChannelSize = p.VADChunkerChannelSize
	}
	if p.ChunkerTranscriberChanSize != 0 {
		cfg.ChunkerTranscriberChanSize = p.ChunkerTranscriberChanSize
	}
	if p.TranscriberSinkChannelSize != 0 {
		cfg.TranscriberSinkChannelSize = p.TranscriberSinkChannelSize
	}
	return cfg
}

// TranscriberFilters translates the YAML-facing filter lists into the
// pipeline's TranscriberFilters.
func (t *TranscriptionConfig) TranscriberFilters() pipeline.TranscriberFilters {
	var allowed map[string]bool
	if len(t.AllowedLanguages) > 0 {
		allowed = make(map[string]bool, len(t.AllowedLanguages))
		for _, lang := range t.AllowedLanguages {
			allowed[lang] = true
		}
	}
	return pipeline.TranscriberFilters{
		MinConfidence:        float32(t.MinConfidence),
		HallucinationPhrases: t.HallucinationPhrases,
		AllowedLanguages:     allowed,
	}
}
