package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/teslashibe/go-voiceagent/internal/config"
	"github.com/teslashibe/go-voiceagent/internal/httpc"
)

const (
	providerGemini     = "gemini"
	defaultGeminiModel = "gemini-1.5-flash"
)

// Gemini implements Provider using the Google Gen AI SDK.
type Gemini struct {
	client *genai.Client
	config *Config
	logger *slog.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Model = defaultGeminiModel
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpc.NewClient(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	return &Gemini{
		client: gc,
		config: cfg,
		logger: cfg.Logger.With("component", "llm.gemini"),
	}, nil
}

// Name returns the provider name.
func (g *Gemini) Name() string { return providerGemini }

// Available reports whether the API key is set and not a placeholder.
func (g *Gemini) Available() bool {
	return config.Configured(g.config.APIKey, config.PlaceholderGeminiKey)
}

// Chat generates a reply using Gemini.
func (g *Gemini) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = g.config.Model
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, convertMessages(req.Messages), g.buildConfig(req))
	if err != nil {
		return nil, g.wrapError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	finish := ""
	if len(resp.Candidates) > 0 {
		finish = string(resp.Candidates[0].FinishReason)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("generated reply", "model", model, "chars", len(text), "latency_ms", latency)

	return &ChatResponse{
		Text:         text,
		Model:        model,
		FinishReason: finish,
		LatencyMs:    latency,
	}, nil
}

func (g *Gemini) buildConfig(req *ChatRequest) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = g.config.Temperature
	}

	cfg := &genai.GenerateContentConfig{}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if temp > 0 {
		t := float32(temp)
		cfg.Temperature = &t
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	return cfg
}

// convertMessages maps conversation turns onto Gemini contents. Gemini only
// knows "user" and "model"; system turns in history are sent as user turns.
func convertMessages(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}

// wrapError converts SDK API errors into *APIError so they classify by status.
func (g *Gemini) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Message: apiErr.Message, Code: apiErr.Status, Provider: providerGemini}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message, Code: apiErrPtr.Status, Provider: providerGemini}
	}
	return WrapError(providerGemini, fmt.Errorf("generate content: %w", err))
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)
