package main

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-voiceagent/internal/config"
	"github.com/teslashibe/go-voiceagent/pkg/llm"
	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
	"github.com/teslashibe/go-voiceagent/pkg/session"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
	"github.com/teslashibe/go-voiceagent/pkg/tts"
)

// services holds the capability wrappers built from configuration.
// A capability whose provider could not be created is left unavailable
// rather than failing startup.
type services struct {
	store       *session.Store
	transcriber *stt.Transcriber
	responder   *llm.Responder
	synthesizer *tts.Synthesizer
}

func buildServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) *services {
	return &services{
		store:       session.NewStore(),
		transcriber: newTranscriber(cfg, logger),
		responder:   newResponder(ctx, cfg, logger),
		synthesizer: newSynthesizer(cfg, logger),
	}
}

func (s *services) orchestrator(logger *slog.Logger, opts ...pipeline.Option) *pipeline.Orchestrator {
	opts = append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)
	return pipeline.New(s.store, s.transcriber, s.responder, s.synthesizer, opts...)
}

func newTranscriber(cfg *config.Config, logger *slog.Logger) *stt.Transcriber {
	opts := []stt.Option{
		stt.WithAPIKey(cfg.AssemblyAIKey),
		stt.WithTimeout(cfg.STTTimeout),
		stt.WithLogger(logger),
	}

	var rec stt.Recognizer
	aai, err := stt.NewAssemblyAI(opts...)
	if err != nil {
		logger.Warn("speech recognition disabled", "service", cfg.STTService, "error", err)
	} else {
		rec = aai
	}
	return stt.NewTranscriber(rec, opts...)
}

func newResponder(ctx context.Context, cfg *config.Config, logger *slog.Logger) *llm.Responder {
	opts := []llm.Option{
		llm.WithModel(cfg.LLMModel),
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithLogger(logger),
	}

	var (
		p   llm.Provider
		err error
	)
	switch cfg.LLMService {
	case "openai":
		p, err = llm.NewOpenAI(append(opts,
			llm.WithAPIKey(cfg.OpenAIKey),
			llm.WithBaseURL(cfg.OpenAIBaseURL),
		)...)
	default:
		var g *llm.Gemini
		g, err = llm.NewGemini(ctx, append(opts, llm.WithAPIKey(cfg.GeminiKey))...)
		if err == nil {
			p = g
		}
	}
	if err != nil {
		logger.Warn("reply generation disabled", "service", cfg.LLMService, "error", err)
		p = nil
	}
	return llm.NewResponder(p, opts...)
}

func newSynthesizer(cfg *config.Config, logger *slog.Logger) *tts.Synthesizer {
	opts := []tts.Option{
		tts.WithVoice(cfg.DefaultVoiceID),
		tts.WithSpeed(cfg.DefaultSpeechSpeed),
		tts.WithPitch(cfg.DefaultSpeechPitch),
		tts.WithTimeout(cfg.TTSTimeout),
		tts.WithLogger(logger),
	}

	var (
		p   tts.Provider
		err error
	)
	switch cfg.TTSService {
	case "elevenlabs":
		var e *tts.ElevenLabs
		e, err = tts.NewElevenLabs(append(opts, tts.WithAPIKey(cfg.ElevenLabsKey))...)
		if err == nil {
			p = e
		}
	case "openai":
		var o *tts.OpenAI
		o, err = tts.NewOpenAI(append(opts, tts.WithAPIKey(cfg.OpenAIKey))...)
		if err == nil {
			p = o
		}
	default:
		var m *tts.Murf
		m, err = tts.NewMurf(append(opts,
			tts.WithAPIKey(cfg.MurfKey),
			tts.WithBaseURL(cfg.MurfURL),
		)...)
		if err == nil {
			p = m
		}
	}
	if err != nil {
		logger.Warn("speech synthesis disabled", "service", cfg.TTSService, "error", err)
	}
	return tts.NewSynthesizer(p, opts...)
}
