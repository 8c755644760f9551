package pipeline

import (
	"time"

	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
)

// Stage names one step of a run.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageTranscribe Stage = "transcribe"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
)

// EventType classifies an Event.
type EventType string

const (
	// EventStage fires when a capability stage finishes, successfully or not.
	EventStage EventType = "stage"

	// EventFallback fires when a stage failure was papered over.
	EventFallback EventType = "fallback"

	// EventCompleted fires once per run with the final outcome.
	EventCompleted EventType = "completed"
)

// Event describes something that happened during a run.
type Event struct {
	Type         EventType     `json:"type"`
	SessionID    string        `json:"session_id,omitempty"`
	Stage        Stage         `json:"stage,omitempty"`
	Success      bool          `json:"success"`
	ErrorKind    agenterr.Kind `json:"error_type,omitempty"`
	FallbackUsed bool          `json:"fallback_used,omitempty"`
	Duration     time.Duration `json:"duration_ns,omitempty"`
	Time         time.Time     `json:"time"`
}

// Observer receives run events. Observe is called synchronously from the
// run's goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }
