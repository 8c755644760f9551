package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/teslashibe/go-voiceagent/internal/config"
	"github.com/teslashibe/go-voiceagent/internal/httpc"
)

const (
	assemblyAIBaseURL  = "https://api.assemblyai.com/v2"
	providerAssemblyAI = "assemblyai"
)

// Transcript statuses reported by AssemblyAI.
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

// AssemblyAI implements Recognizer using the AssemblyAI REST API:
// upload the file, create a transcript, then poll until it settles.
type AssemblyAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewAssemblyAI creates an AssemblyAI recognizer.
func NewAssemblyAI(opts ...Option) (*AssemblyAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = assemblyAIBaseURL
	}

	return &AssemblyAI{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "stt.assemblyai"),
		baseURL: baseURL,
	}, nil
}

// Name returns the provider name.
func (a *AssemblyAI) Name() string { return providerAssemblyAI }

// Available reports whether the API key is set and not a placeholder.
func (a *AssemblyAI) Available() bool {
	return config.Configured(a.config.APIKey, config.PlaceholderAssemblyAIKey)
}

type transcript struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	LanguageCode string  `json:"language_code"`
	Error        string  `json:"error"`
}

// Recognize uploads the file at path and waits for its transcript.
func (a *AssemblyAI) Recognize(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	uploadURL, err := a.upload(ctx, path)
	if err != nil {
		return nil, err
	}

	tr, err := a.createTranscript(ctx, uploadURL)
	if err != nil {
		return nil, err
	}

	tr, err = a.await(ctx, tr)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("transcript completed",
		"id", tr.ID,
		"chars", len(tr.Text),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	lang := tr.LanguageCode
	if lang == "" {
		lang = a.config.Language
	}
	return &Result{Text: tr.Text, Confidence: tr.Confidence, Language: lang}, nil
}

func (a *AssemblyAI) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", WrapError(providerAssemblyAI, fmt.Errorf("open audio: %w", err))
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", f)
	if err != nil {
		return "", WrapError(providerAssemblyAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "upload response missing upload_url", Provider: providerAssemblyAI}
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) createTranscript(ctx context.Context, audioURL string) (*transcript, error) {
	body, err := json.Marshal(map[string]string{
		"audio_url":     audioURL,
		"language_code": a.config.Language,
	})
	if err != nil {
		return nil, WrapError(providerAssemblyAI, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerAssemblyAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	var tr transcript
	if err := a.do(req, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// await polls the transcript until it completes, fails, or ctx ends.
func (a *AssemblyAI) await(ctx context.Context, tr *transcript) (*transcript, error) {
	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		switch tr.Status {
		case statusCompleted:
			return tr, nil
		case statusError:
			return nil, &TranscriptError{Provider: providerAssemblyAI, Reason: tr.Error}
		}

		select {
		case <-ctx.Done():
			return nil, WrapError(providerAssemblyAI, ctx.Err())
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+tr.ID, nil)
		if err != nil {
			return nil, WrapError(providerAssemblyAI, fmt.Errorf("create request: %w", err))
		}
		var next transcript
		if err := a.do(req, &next); err != nil {
			return nil, err
		}
		if next.ID == "" {
			next.ID = tr.ID
		}
		tr = &next
	}
}

// do sends req with credentials and decodes a 200 JSON body into out.
func (a *AssemblyAI) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return WrapError(providerAssemblyAI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return WrapError(providerAssemblyAI, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return a.parseError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "invalid JSON response: " + err.Error(), Provider: providerAssemblyAI}
	}
	return nil
}

// parseError builds an APIError from an error response body.
func (a *AssemblyAI) parseError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}
	return &APIError{StatusCode: status, Message: message, Provider: providerAssemblyAI}
}

// Verify AssemblyAI implements Recognizer at compile time.
var _ Recognizer = (*AssemblyAI)(nil)
