package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/burka/voicsh/internal/audio"
)

// transcriptionResponse mirrors the JSON body internal/transcription.Client
// expects back from a real ASR endpoint.
type transcriptionResponse struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

func main() {
	addr := flag.String("addr", ":9000", "address to listen on")
	text := flag.String("text", "this is a mock transcription", "fixed text to return for every request")
	delay := flag.Duration("delay", 100*time.Millisecond, "simulated processing delay")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	http.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "error parsing form", http.StatusBadRequest)
			return
		}

		language := r.FormValue("language")

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "error getting audio file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		wav, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "error reading audio file", http.StatusInternalServerError)
			return
		}

		duration, durationErr := audio.GetWAVDuration(wav)

		logger.Info("received transcription request",
			slog.String("filename", header.Filename),
			slog.Int("bytes", len(wav)),
			slog.String("language", language),
			slog.Float64("duration_seconds", duration),
		)
		if durationErr != nil {
			logger.Warn("could not parse audio as WAV", slog.String("error", durationErr.Error()))
		}

		time.Sleep(*delay)

		resp := transcriptionResponse{Text: *text, Confidence: 0.95, Language: language}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	logger.Info("mock ASR server starting", slog.String("addr", *addr))
	if err := http.ListenAndServe(*addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}
