package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/burka/voicsh/internal/config"
	"github.com/burka/voicsh/internal/metrics"
)

// RunStatus is a snapshot of the running pipeline, supplied by whoever owns
// the pipeline.Handle; the admin server has no pipeline dependency of its
// own, only this narrow read-only view.
type RunStatus struct {
	RunID   string
	Running bool
}

// StatusFunc produces the current RunStatus on each /healthz or /stats call.
type StatusFunc func() RunStatus

// AdminServer provides HTTP endpoints for monitoring a running pipeline:
// health, sanitized configuration, and Prometheus metrics.
type AdminServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	status  StatusFunc
	metrics *metrics.Metrics

	startTime time.Time
}

// NewAdminServer creates a new admin HTTP server.
func NewAdminServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config, m *metrics.Metrics, status StatusFunc) *AdminServer {
	h := &AdminServer{
		logger:    logger,
		config:    appConfig,
		metrics:   m,
		status:    status,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

func (h *AdminServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.withMetrics("/healthz", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with Prometheus request metrics.
func (h *AdminServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), time.Since(start).Seconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the admin HTTP server in the background.
func (h *AdminServer) Start() error {
	h.logger.Info("starting admin HTTP server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("admin HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the admin HTTP server.
func (h *AdminServer) Stop(ctx context.Context) error {
	h.logger.Info("stopping admin HTTP server")
	return h.server.Shutdown(ctx)
}

func (h *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.status()
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"pipeline": map[string]interface{}{
			"run_id":  status.RunID,
			"running": status.Running,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func (h *AdminServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitized := map[string]interface{}{
		"source": map[string]interface{}{
			"mode": h.config.Source.Mode,
		},
		"pipeline": map[string]interface{}{
			"sample_rate":       h.config.Pipeline.SampleRate,
			"frame_duration_ms": h.config.Pipeline.FrameDurationMs,
			"vad_threshold_db":  h.config.Pipeline.VADThresholdDB,
			"vad_auto_level":    h.config.Pipeline.VADAutoLevel,
			"chunker_preroll":   h.config.Pipeline.ChunkerPreRoll,
			"language_hint":     h.config.Pipeline.LanguageHint,
		},
		"transcription": map[string]interface{}{
			"endpoint":       h.config.Transcription.Endpoint,
			"timeout":        h.config.Transcription.TimeoutSeconds,
			"max_retries":    h.config.Transcription.MaxRetries,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
			"min_confidence": h.config.Transcription.MinConfidence,
			// api_key is intentionally omitted.
		},
		"sink": map[string]interface{}{
			"mode": h.config.Sink.Mode,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

func (h *AdminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.status()
	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"pipeline": map[string]interface{}{
			"run_id":  status.RunID,
			"running": status.Running,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *AdminServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	doc := map[string]interface{}{
		"service": "voicsh continuous transcription pipeline",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /healthz": "service health check",
			"GET /config":  "sanitized configuration",
			"GET /stats":   "pipeline run status",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}
