package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
)

// MaxTextLength is the longest text, in characters, sent to a provider.
const MaxTextLength = 5000

// SynthesisRequest is the input to one synthesis. An empty VoiceID, zero
// Speed or nil Pitch takes the configured default. Pitch 0 is a valid value.
type SynthesisRequest struct {
	Text      string
	VoiceID   string
	Speed     int
	Pitch     *int
	SessionID string
}

// SynthesisResult is the outcome of one Synthesize call. AudioURL is set only
// on success; EmergencyFallback only on failure.
type SynthesisResult struct {
	Success           bool          `json:"success"`
	AudioURL          string        `json:"audio_url,omitempty"`
	EmergencyFallback string        `json:"emergency_fallback,omitempty"`
	ErrorKind         agenterr.Kind `json:"error_type,omitempty"`
	Error             string        `json:"error,omitempty"`
	Duration          time.Duration `json:"-"`
}

// Synthesizer adapts a Provider to the pipeline contract.
type Synthesizer struct {
	provider Provider
	config   *Config
	logger   *slog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil provider is never available.
func NewSynthesizer(p Provider, opts ...Option) *Synthesizer {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Synthesizer{
		provider: p,
		config:   cfg,
		logger:   cfg.Logger.With("component", "tts.synthesizer"),
	}
}

// Available reports whether synthesis can be attempted.
func (s *Synthesizer) Available() bool {
	return s.provider != nil && s.provider.Available()
}

// Name returns the provider name, or "none".
func (s *Synthesizer) Name() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// Timeout returns the per-call timeout.
func (s *Synthesizer) Timeout() time.Duration {
	return s.config.Timeout
}

// DefaultVoice returns the configured default voice.
func (s *Synthesizer) DefaultVoice() string {
	return s.config.VoiceID
}

// Synthesize converts req.Text to a playable audio reference. It never
// returns an error or panics; on failure the result carries the text as an
// emergency fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (out SynthesisResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("synthesis panicked", "session_id", req.SessionID, "panic", fmt.Sprint(p))
			out = failed(req.Text, agenterr.KindTTS, agenterr.Summary(agenterr.KindTTS, capability))
		}
		out.Duration = time.Since(start)
	}()

	if !s.Available() {
		return failed(req.Text, agenterr.KindConfig, ErrNotConfigured.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return failed(req.Text, agenterr.KindInput, "text is required and cannot be empty")
	}
	if n := utf8.RuneCountInString(req.Text); n > MaxTextLength {
		s.logger.Warn("synthesis skipped", "session_id", req.SessionID, "chars", n, "error", ErrTextTooLong)
		return failed(req.Text, agenterr.KindInput, fmt.Sprintf("text too long for speech (max %d characters)", MaxTextLength))
	}

	preq := &Request{
		Text:    req.Text,
		VoiceID: req.VoiceID,
		Speed:   req.Speed,
		Pitch:   s.config.Pitch,
	}
	if preq.VoiceID == "" {
		preq.VoiceID = s.config.VoiceID
	}
	if preq.Speed == 0 {
		preq.Speed = s.config.Speed
	}
	if req.Pitch != nil {
		preq.Pitch = *req.Pitch
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	audio, err := s.provider.Synthesize(ctx, preq)
	if err == nil && audio.Reference() == "" {
		err = ErrNoAudio
	}
	if err != nil {
		kind := agenterr.Classify(err, agenterr.KindTTS)
		s.logger.Error("synthesis failed",
			"provider", s.provider.Name(),
			"session_id", req.SessionID,
			"kind", kind,
			"error", log.Clip(err.Error(), 200),
		)
		return failed(req.Text, kind, agenterr.Summary(kind, capability))
	}

	s.logger.Info("synthesis succeeded",
		"provider", s.provider.Name(),
		"session_id", req.SessionID,
		"chars", len(req.Text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return SynthesisResult{Success: true, AudioURL: audio.Reference()}
}

// capability names synthesis in caller-visible messages.
const capability = "TTS"

func failed(text string, kind agenterr.Kind, msg string) SynthesisResult {
	return SynthesisResult{
		EmergencyFallback: EmergencyFallback(text),
		ErrorKind:         kind,
		Error:             msg,
	}
}
