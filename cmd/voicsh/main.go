package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burka/voicsh/internal/audio"
	"github.com/burka/voicsh/internal/config"
	"github.com/burka/voicsh/internal/metrics"
	"github.com/burka/voicsh/internal/pipeline"
	"github.com/burka/voicsh/internal/server"
	"github.com/burka/voicsh/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voicsh"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)
	logger.Info("configuration loaded",
		slog.String("source_mode", cfg.Source.Mode),
		slog.Int("sample_rate", cfg.Pipeline.SampleRate),
		slog.Int("frame_duration_ms", cfg.Pipeline.FrameDurationMs),
		slog.String("sink_mode", cfg.Sink.Mode),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
	)

	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	source, err := buildSource(cfg, logger)
	if err != nil {
		logger.Error("failed to build audio source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Timeout:       time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("failed to build transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sink, err := buildSink(cfg, logger)
	if err != nil {
		logger.Error("failed to build sink", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reporter := metrics.NewReporter(appMetrics, pipeline.NewLogReporter(logger))

	pipelineCfg := cfg.Pipeline.ToPipelineConfig()
	pipelineCfg.TranscriberFilters = cfg.Transcription.TranscriberFilters()

	handle, err := pipeline.Start(pipelineCfg, source, transcriber, sink, logger, reporter)
	if err != nil {
		logger.Error("failed to start pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("pipeline started", slog.String("run_id", handle.RunID()))

	var adminServer *server.AdminServer
	if cfg.HTTP.Enabled {
		status := func() server.RunStatus {
			return server.RunStatus{RunID: handle.RunID(), Running: true}
		}
		adminServer = server.NewAdminServer(cfg.HTTP, logger, cfg, appMetrics, status)
		if err := adminServer.Start(); err != nil {
			logger.Error("failed to start admin server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("service started successfully, waiting for signals...")
	<-sigChan

	logger.Info("starting graceful shutdown...")

	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := adminServer.Stop(shutdownCtx); err != nil {
			logger.Error("error stopping admin server", slog.String("error", err.Error()))
		}
	}

	result := handle.Stop()
	if result != nil {
		fmt.Println(*result)
	}

	logger.Info("service stopped")
}

func buildSource(cfg *config.Config, logger *slog.Logger) (pipeline.AudioSource, error) {
	switch cfg.Source.Mode {
	case "wav":
		return audio.NewWAVFileSource(cfg.Source.WAVPath, cfg.Pipeline.FrameDurationMs, logger), nil
	case "udp":
		return audio.NewUDPFrameSource(cfg.Source.UDPAddress, cfg.Source.UDPPort, cfg.Source.BufferSize, logger), nil
	default:
		return nil, fmt.Errorf("unrecognized source mode %q", cfg.Source.Mode)
	}
}

func buildSink(cfg *config.Config, logger *slog.Logger) (pipeline.TextSink, error) {
	switch cfg.Sink.Mode {
	case "stdout":
		return pipeline.NewStandardOutSink(os.Stdout), nil
	case "collector":
		return pipeline.NewCollectorSink(), nil
	case "injector":
		return nil, fmt.Errorf("injector sink requires a backend wired by an embedding program, not available from configuration alone")
	default:
		return nil, fmt.Errorf("unrecognized sink mode %q", cfg.Sink.Mode)
	}
}

// initLogger creates and configures the structured logger based on
// configuration.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
