// Package stt turns recorded speech into text.
//
// A Recognizer talks to one speech recognition backend and works on a file
// path. The Transcriber wraps a Recognizer with the pipeline contract: it
// spools the upload to a transient file, bounds the call with a timeout,
// always removes the file afterwards, and reports the outcome as a
// Transcription value instead of an error.
//
// Example usage:
//
//	rec, _ := stt.NewAssemblyAI(stt.WithAPIKey(os.Getenv("ASSEMBLYAI_API_KEY")))
//	tr := stt.NewTranscriber(rec)
//
//	result := tr.Transcribe(ctx, &stt.Audio{Filename: "clip.webm", Data: data})
//	if result.Success {
//	    fmt.Println(result.Text)
//	}
package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
)

// Recognizer is a speech recognition backend.
type Recognizer interface {
	// Recognize transcribes the audio file at path.
	Recognize(ctx context.Context, path string) (*Result, error)

	// Available reports whether the backend has usable credentials.
	Available() bool

	// Name identifies the backend in logs and health output.
	Name() string
}

// Result is the raw output of a Recognizer.
type Result struct {
	Text       string
	Confidence float64
	Language   string
}

// Transcription is the outcome of one Transcribe call. Text, Confidence and
// Language are set only when Success is true.
type Transcription struct {
	Success    bool          `json:"success"`
	Text       string        `json:"transcription,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Language   string        `json:"language,omitempty"`
	ErrorKind  agenterr.Kind `json:"error_type,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
}

// Transcriber adapts a Recognizer to the pipeline contract.
type Transcriber struct {
	rec    Recognizer
	config *Config
	logger *slog.Logger
}

// NewTranscriber creates a Transcriber. A nil Recognizer yields a Transcriber
// that is never available.
func NewTranscriber(rec Recognizer, opts ...Option) *Transcriber {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Transcriber{
		rec:    rec,
		config: cfg,
		logger: cfg.Logger.With("component", "stt.transcriber"),
	}
}

// Available reports whether transcription can be attempted.
func (t *Transcriber) Available() bool {
	return t.rec != nil && t.rec.Available()
}

// Name returns the backend name, or "none".
func (t *Transcriber) Name() string {
	if t.rec == nil {
		return "none"
	}
	return t.rec.Name()
}

// Timeout returns the per-call timeout.
func (t *Transcriber) Timeout() time.Duration {
	return t.config.Timeout
}

// Transcribe converts audio to text. It never returns an error or panics;
// failures are reported in the Transcription.
func (t *Transcriber) Transcribe(ctx context.Context, audio *Audio) (out Transcription) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("transcription panicked", "panic", fmt.Sprint(r))
			out = failed(agenterr.KindSTT, agenterr.Summary(agenterr.KindSTT, capability))
		}
		out.Duration = time.Since(start)
	}()

	if !t.Available() {
		return failed(agenterr.KindConfig, ErrNotConfigured.Error())
	}
	if audio == nil || len(audio.Data) == 0 {
		return failed(agenterr.KindInput, "no audio data provided")
	}

	path, err := t.spool(audio)
	if err != nil {
		t.logger.Error("spool audio failed", "error", log.Clip(err.Error(), 200))
		return failed(agenterr.KindSTT, agenterr.Summary(agenterr.KindSTT, capability))
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("failed to remove temp audio", "path", path, "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	res, err := t.rec.Recognize(ctx, path)
	if err != nil {
		kind := agenterr.Classify(err, agenterr.KindSTT)
		t.logger.Error("transcription failed",
			"provider", t.rec.Name(),
			"kind", kind,
			"error", log.Clip(err.Error(), 200),
		)
		return failed(kind, agenterr.Summary(kind, capability))
	}

	text := ""
	if res != nil {
		text = strings.TrimSpace(res.Text)
	}
	if text == "" {
		t.logger.Warn("empty transcription received", "provider", t.rec.Name())
		return failed(agenterr.KindSTT, ErrNoSpeech.Error())
	}

	lang := res.Language
	if lang == "" {
		lang = t.config.Language
	}
	t.logger.Info("transcription succeeded",
		"provider", t.rec.Name(),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return Transcription{
		Success:    true,
		Text:       text,
		Confidence: clamp01(res.Confidence),
		Language:   lang,
	}
}

// spool writes the upload to a transient file and returns its path.
func (t *Transcriber) spool(audio *Audio) (string, error) {
	ext := audio.Extension()
	if ext == "" || ext == strings.ToLower(audio.Filename) {
		ext = "webm"
	}
	f, err := os.CreateTemp(t.config.TempDir, "voiceagent-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// capability names transcription in caller-visible messages.
const capability = "Transcription"

func failed(kind agenterr.Kind, msg string) Transcription {
	return Transcription{ErrorKind: kind, Error: msg}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
