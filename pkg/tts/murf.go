package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-voiceagent/internal/config"
	"github.com/teslashibe/go-voiceagent/internal/httpc"
)

const (
	murfBaseURL  = "https://api.murf.ai/v1/speech/generate"
	providerMurf = "murf"
)

// Murf implements Provider for the Murf speech generation API. Murf hosts
// the generated file and answers with its URL.
type Murf struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewMurf creates a Murf provider. BaseURL is the full generate endpoint.
func NewMurf(opts ...Option) (*Murf, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = murfBaseURL
	}

	return &Murf{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "tts.murf"),
		baseURL: baseURL,
	}, nil
}

// Name returns the provider name.
func (m *Murf) Name() string { return providerMurf }

// Available reports whether both key and endpoint are configured.
func (m *Murf) Available() bool {
	return config.Configured(m.config.APIKey, config.PlaceholderMurfKey) &&
		config.Configured(m.baseURL, config.PlaceholderMurfURL)
}

type murfPayload struct {
	VoiceID                 string         `json:"voiceId"`
	Style                   string         `json:"style"`
	Text                    string         `json:"text"`
	Rate                    int            `json:"rate"`
	Pitch                   int            `json:"pitch"`
	SampleRate              int            `json:"sampleRate"`
	Format                  string         `json:"format"`
	ChannelType             string         `json:"channelType"`
	PronunciationDictionary map[string]any `json:"pronunciationDictionary"`
	EncodeAsBase64          bool           `json:"encodeAsBase64"`
	Variation               int            `json:"variation"`
	AudioDuration           int            `json:"audioDuration"`
	ModelVersion            string         `json:"modelVersion"`
}

// Synthesize requests speech and returns the hosted audio URL.
func (m *Murf) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	start := time.Now()

	body, err := json.Marshal(m.buildPayload(req))
	if err != nil {
		return nil, WrapError(providerMurf, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerMurf, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("api-key", m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, WrapError(providerMurf, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("TTS API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			Provider:   providerMurf,
		}
	}

	var out struct {
		AudioFile string `json:"audioFile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "Invalid response format from TTS service",
			Provider:   providerMurf,
		}
	}
	if out.AudioFile == "" {
		return nil, WrapError(providerMurf, ErrNoAudio)
	}

	m.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"voice", req.VoiceID,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &Audio{URL: out.AudioFile, MIME: "audio/mpeg"}, nil
}

func (m *Murf) buildPayload(req *Request) murfPayload {
	voice, speed, pitch := req.VoiceID, req.Speed, req.Pitch
	if voice == "" {
		voice = m.config.VoiceID
	}
	if speed == 0 {
		speed = m.config.Speed
	}
	return murfPayload{
		VoiceID:                 voice,
		Style:                   "Conversational",
		Text:                    req.Text,
		Rate:                    speed,
		Pitch:                   pitch,
		SampleRate:              24000,
		Format:                  "MP3",
		ChannelType:             "MONO",
		PronunciationDictionary: map[string]any{},
		EncodeAsBase64:          false,
		Variation:               1,
		AudioDuration:           0,
		ModelVersion:            "GEN2",
	}
}

// Verify Murf implements Provider at compile time.
var _ Provider = (*Murf)(nil)
