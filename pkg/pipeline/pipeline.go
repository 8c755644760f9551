// Package pipeline runs one voice or text query end to end.
//
// A run validates the input, transcribes audio when present, records the
// user turn, generates a reply with recent history as context, records the
// assistant turn, and synthesizes speech. Transcription failure ends the run.
// Generation and synthesis failures are absorbed: the run still succeeds with
// fallback content and FallbackUsed set.
//
// Stages always execute in that order within a run. Many runs may share one
// session store concurrently.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/fallback"
	"github.com/teslashibe/go-voiceagent/pkg/llm"
	"github.com/teslashibe/go-voiceagent/pkg/session"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
	"github.com/teslashibe/go-voiceagent/pkg/tts"
	"github.com/teslashibe/go-voiceagent/pkg/validate"
)

// HistoryWindow is how many recent messages are offered to the responder.
const HistoryWindow = 10

// Transcriber is the speech recognition stage.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *stt.Audio) stt.Transcription
	Available() bool
}

// Responder is the reply generation stage.
type Responder interface {
	Generate(ctx context.Context, req llm.GenerateRequest) llm.GenerationResult
	Available() bool
}

// Synthesizer is the speech synthesis stage.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.SynthesisRequest) tts.SynthesisResult
	Available() bool
}

// Request is one query. Exactly one of Text or Audio must be set.
type Request struct {
	Text  string
	Audio *stt.Audio

	// SessionID selects the conversation. Empty starts a new one.
	SessionID string

	VoiceID string
	Speed   int
	Model   string

	// Pitch overrides the default voice pitch when set. Zero is valid.
	Pitch *int

	// IncludeHistory controls whether prior turns are sent as context.
	// Nil means true.
	IncludeHistory *bool
}

// Degradation records a stage that failed softly.
type Degradation struct {
	Stage     Stage         `json:"stage"`
	ErrorKind agenterr.Kind `json:"error_type"`
	Error     string        `json:"error"`
}

// Response is the assembled outcome of a run.
type Response struct {
	Success           bool              `json:"success"`
	Transcription     string            `json:"transcription,omitempty"`
	AssistantText     string            `json:"llm_response,omitempty"`
	AudioURL          string            `json:"audio_url,omitempty"`
	EmergencyFallback string            `json:"emergency_fallback,omitempty"`
	Confidence        float64           `json:"confidence,omitempty"`
	History           []session.Message `json:"chat_history"`
	SessionID         string            `json:"session_id,omitempty"`
	MessageCount      int               `json:"message_count"`
	FallbackUsed      bool              `json:"fallback_used"`
	Degradations      []Degradation     `json:"degradations,omitempty"`
	Error             string            `json:"error,omitempty"`
	ErrorKind         agenterr.Kind     `json:"error_type,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	Timings           Timings           `json:"timings"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver adds an event observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLatencyTracker records every finished run's timings in t.
func WithLatencyTracker(t *LatencyTracker) Option {
	return func(o *Orchestrator) { o.latency = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator sequences the stages of a run.
type Orchestrator struct {
	store       *session.Store
	transcriber Transcriber
	responder   Responder
	synthesizer Synthesizer

	observers []Observer
	latency   *LatencyTracker
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Orchestrator. All collaborators are required.
func New(store *session.Store, tr Transcriber, r Responder, s Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		transcriber: tr,
		responder:   r,
		synthesizer: s,
		latency:     NewLatencyTracker(100),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "pipeline.orchestrator")
	return o
}

// Store returns the session store.
func (o *Orchestrator) Store() *session.Store { return o.store }

// Latency returns the tracker of recent run timings.
func (o *Orchestrator) Latency() *LatencyTracker { return o.latency }

// Services reports which capabilities are usable.
func (o *Orchestrator) Services() map[string]bool {
	return map[string]bool{
		"stt": o.transcriber.Available(),
		"llm": o.responder.Available(),
		"tts": o.synthesizer.Available(),
	}
}

// Run executes one query. It never panics and never returns an error; hard
// failures are reported with Success false and an ErrorKind.
func (o *Orchestrator) Run(ctx context.Context, req Request) (resp Response) {
	start := o.now()
	resp.Timestamp = start
	resp.SessionID = req.SessionID

	text, err := o.validate(req)
	if err != nil {
		o.emit(Event{Type: EventStage, Stage: StageValidate, SessionID: req.SessionID, ErrorKind: agenterr.KindInput})
		return o.fail(resp, agenterr.KindInput, validationMessage(err), start)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	resp.SessionID = sessionID

	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("pipeline panicked",
				"session_id", sessionID,
				"panic", log.Clip(fmt.Sprint(p), 200),
				"stack", log.Clip(string(debug.Stack()), 2000),
			)
			resp = o.fail(Response{Timestamp: start, SessionID: sessionID}, agenterr.KindGeneral,
				"An unexpected error occurred while processing your request", start)
		}
	}()

	// Transcribe.
	if req.Audio != nil {
		tr := o.transcriber.Transcribe(ctx, req.Audio)
		resp.Timings.ASR = tr.Duration
		o.emit(Event{Type: EventStage, Stage: StageTranscribe, SessionID: sessionID, Success: tr.Success, ErrorKind: tr.ErrorKind, Duration: tr.Duration})
		if !tr.Success {
			o.logger.Warn("transcription failed", "session_id", sessionID, "kind", tr.ErrorKind, "error", log.Clip(tr.Error, 200))
			return o.fail(resp, tr.ErrorKind, tr.Error, start)
		}
		text = tr.Text
		resp.Transcription = tr.Text
		resp.Confidence = tr.Confidence
	}

	// Record the user turn before generating.
	if err := o.store.Append(sessionID, session.RoleUser, text); err != nil {
		panic(fmt.Sprintf("append user message: %v", err))
	}
	recent := o.store.Recent(sessionID, HistoryWindow)

	// Generate.
	includeHistory := req.IncludeHistory == nil || *req.IncludeHistory
	gen := o.responder.Generate(ctx, llm.GenerateRequest{
		Text:           text,
		SessionID:      sessionID,
		History:        recent,
		IncludeHistory: includeHistory,
		Model:          req.Model,
	})
	resp.Timings.LLM = gen.Duration
	o.emit(Event{Type: EventStage, Stage: StageGenerate, SessionID: sessionID, Success: gen.Success, ErrorKind: gen.ErrorKind, Duration: gen.Duration})

	reply := strings.TrimSpace(gen.Reply())
	if !gen.Success {
		o.degrade(&resp, StageGenerate, gen.ErrorKind, gen.Error)
	}
	if reply == "" {
		reply = fallback.Contextual(text)
		if gen.Success {
			o.degrade(&resp, StageGenerate, agenterr.KindLLM, llm.ErrEmptyResponse.Error())
		}
	}
	resp.AssistantText = reply

	// Record what was actually said.
	if err := o.store.Append(sessionID, session.RoleAssistant, reply); err != nil {
		panic(fmt.Sprintf("append assistant message: %v", err))
	}

	// Synthesize whatever reply we ended up with.
	syn := o.synthesizer.Synthesize(ctx, tts.SynthesisRequest{
		Text:      reply,
		VoiceID:   req.VoiceID,
		Speed:     req.Speed,
		Pitch:     req.Pitch,
		SessionID: sessionID,
	})
	resp.Timings.TTS = syn.Duration
	o.emit(Event{Type: EventStage, Stage: StageSynthesize, SessionID: sessionID, Success: syn.Success, ErrorKind: syn.ErrorKind, Duration: syn.Duration})
	if syn.Success {
		resp.AudioURL = syn.AudioURL
	} else {
		resp.EmergencyFallback = syn.EmergencyFallback
		o.degrade(&resp, StageSynthesize, syn.ErrorKind, syn.Error)
	}

	resp.Success = true
	resp.History = o.store.History(sessionID)
	resp.MessageCount = len(resp.History)
	return o.finish(resp, start)
}

func (o *Orchestrator) validate(req Request) (string, error) {
	if req.Audio != nil && strings.TrimSpace(req.Text) != "" {
		return "", agenterr.New(agenterr.KindInput, "provide either text or audio, not both")
	}
	if err := validate.SynthesisParams(req.Speed, req.Pitch); err != nil {
		return "", err
	}
	if req.Audio != nil {
		return "", validate.Audio(req.Audio)
	}
	return validate.Text(req.Text, validate.MaxQueryLength)
}

func (o *Orchestrator) degrade(resp *Response, stage Stage, kind agenterr.Kind, msg string) {
	resp.FallbackUsed = true
	resp.Degradations = append(resp.Degradations, Degradation{Stage: stage, ErrorKind: kind, Error: msg})
	o.logger.Warn("stage degraded to fallback",
		"stage", stage,
		"session_id", resp.SessionID,
		"kind", kind,
		"error", log.Clip(msg, 200),
	)
	o.emit(Event{Type: EventFallback, Stage: stage, SessionID: resp.SessionID, ErrorKind: kind, FallbackUsed: true})
}

func (o *Orchestrator) fail(resp Response, kind agenterr.Kind, msg string, start time.Time) Response {
	resp.Success = false
	resp.ErrorKind = kind
	resp.Error = msg
	resp.AssistantText = ""
	resp.AudioURL = ""
	if resp.SessionID != "" {
		resp.History = o.store.History(resp.SessionID)
		resp.MessageCount = len(resp.History)
	}
	return o.finish(resp, start)
}

func (o *Orchestrator) finish(resp Response, start time.Time) Response {
	if resp.History == nil {
		resp.History = []session.Message{}
	}
	resp.Timings.Total = o.now().Sub(start)
	if resp.Success && o.latency != nil {
		o.latency.Record(resp.Timings)
	}
	o.logger.Info("pipeline finished",
		"session_id", resp.SessionID,
		"success", resp.Success,
		"fallback_used", resp.FallbackUsed,
		"kind", resp.ErrorKind,
		"latency", resp.Timings.FormatLatency(),
	)
	o.emit(Event{
		Type:         EventCompleted,
		SessionID:    resp.SessionID,
		Success:      resp.Success,
		ErrorKind:    resp.ErrorKind,
		FallbackUsed: resp.FallbackUsed,
		Duration:     resp.Timings.Total,
	})
	return resp
}

func (o *Orchestrator) emit(e Event) {
	if len(o.observers) == 0 {
		return
	}
	e.Time = o.now()
	for _, obs := range o.observers {
		obs.Observe(e)
	}
}

func validationMessage(err error) string {
	if e, ok := err.(*agenterr.Error); ok {
		return e.Msg
	}
	return err.Error()
}
