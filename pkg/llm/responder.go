package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/fallback"
	"github.com/teslashibe/go-voiceagent/pkg/session"
)

// GenerateRequest is the input to one generation.
type GenerateRequest struct {
	// Text is the current user utterance.
	Text string

	// SessionID is used for log context only.
	SessionID string

	// History is prior conversation, oldest first. If its last message is
	// the current user turn it is not sent twice.
	History []session.Message

	// IncludeHistory controls whether History is sent at all.
	IncludeHistory bool

	// Model overrides the provider default.
	Model string
}

// GenerationResult is the outcome of one Generate call. Text is set only on
// success; Fallback is set only on failure.
type GenerationResult struct {
	Success   bool          `json:"success"`
	Text      string        `json:"response,omitempty"`
	Model     string        `json:"model,omitempty"`
	Fallback  string        `json:"fallback_response,omitempty"`
	ErrorKind agenterr.Kind `json:"error_type,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Reply returns the text to speak: the generated reply or the fallback.
func (r GenerationResult) Reply() string {
	if r.Success {
		return r.Text
	}
	return r.Fallback
}

// Responder adapts a Provider to the pipeline contract.
type Responder struct {
	provider Provider
	config   *Config
	logger   *slog.Logger
}

// NewResponder creates a Responder. A nil provider is never available.
func NewResponder(p Provider, opts ...Option) *Responder {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Responder{
		provider: p,
		config:   cfg,
		logger:   cfg.Logger.With("component", "llm.responder"),
	}
}

// Available reports whether generation can be attempted.
func (r *Responder) Available() bool {
	return r.provider != nil && r.provider.Available()
}

// Name returns the provider name, or "none".
func (r *Responder) Name() string {
	if r.provider == nil {
		return "none"
	}
	return r.provider.Name()
}

// Timeout returns the per-call timeout.
func (r *Responder) Timeout() time.Duration {
	return r.config.Timeout
}

// Generate produces a reply for req. It never returns an error or panics; on
// failure the result carries a contextual fallback reply.
func (r *Responder) Generate(ctx context.Context, req GenerateRequest) (out GenerationResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("generation panicked", "session_id", req.SessionID, "panic", fmt.Sprint(p))
			out = r.failed(req.Text, agenterr.KindLLM, agenterr.Summary(agenterr.KindLLM, capability))
		}
		out.Duration = time.Since(start)
	}()

	if !r.Available() {
		return r.failed(req.Text, agenterr.KindConfig, ErrNotConfigured.Error())
	}

	chat := r.BuildRequest(req)

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	resp, err := r.provider.Chat(ctx, chat)
	if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
		err = ErrEmptyResponse
	}
	if err != nil {
		kind := agenterr.Classify(err, agenterr.KindLLM)
		r.logger.Error("generation failed",
			"provider", r.provider.Name(),
			"session_id", req.SessionID,
			"kind", kind,
			"error", log.Clip(err.Error(), 200),
		)
		return r.failed(req.Text, kind, agenterr.Summary(kind, capability))
	}

	text := strings.TrimSpace(resp.Text)
	r.logger.Info("generation succeeded",
		"provider", r.provider.Name(),
		"session_id", req.SessionID,
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return GenerationResult{Success: true, Text: text, Model: resp.Model}
}

// BuildRequest assembles the provider request: the system instruction, at
// most HistoryLimit prior messages when requested, and the user text.
func (r *Responder) BuildRequest(req GenerateRequest) *ChatRequest {
	var msgs []Message
	if req.IncludeHistory {
		hist := req.History
		if n := len(hist); n > 0 && hist[n-1].Role == session.RoleUser && hist[n-1].Content == req.Text {
			hist = hist[:n-1]
		}
		if limit := r.config.HistoryLimit; limit > 0 && len(hist) > limit {
			hist = hist[len(hist)-limit:]
		}
		for _, m := range hist {
			msgs = append(msgs, Message{Role: Role(m.Role), Content: m.Content})
		}
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: req.Text})

	return &ChatRequest{
		System:   r.config.SystemPrompt,
		Messages: msgs,
		Model:    req.Model,
	}
}

// capability names generation in caller-visible messages.
const capability = "LLM generation"

func (r *Responder) failed(text string, kind agenterr.Kind, msg string) GenerationResult {
	return GenerationResult{
		Fallback:  fallback.Contextual(text),
		ErrorKind: kind,
		Error:     msg,
	}
}
