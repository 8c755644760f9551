// Package agenterr defines the error taxonomy shared by every stage of the
// voice pipeline.
//
// A Kind tells the caller what class of thing went wrong; it is what ends up
// in the error_type field of API responses. Capability clients classify
// transport problems with Classify so timeouts and network failures look the
// same no matter which provider produced them.
package agenterr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind is a category of failure. Values match the wire format.
type Kind string

const (
	KindNone    Kind = ""
	KindInput   Kind = "input_error"
	KindConfig  Kind = "config_error"
	KindSTT     Kind = "stt_error"
	KindLLM     Kind = "llm_error"
	KindTTS     Kind = "tts_error"
	KindNetwork Kind = "network_error"
	KindTimeout Kind = "timeout_error"
	KindAPI     Kind = "api_error"
	KindGeneral Kind = "general_error"
)

// Error is a classified error carrying a user-safe message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New creates an Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates an Error around err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err, or KindGeneral when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

// StatusCoder is implemented by provider API errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// Classify maps err onto a Kind. Timeouts and transport failures win over the
// stage default; errors carrying an HTTP status become KindAPI; anything else
// is attributed to stage.
func Classify(err error, stage Kind) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return KindAPI
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || netErr != nil {
		return KindNetwork
	}
	return stage
}

var fallbackMessages = map[Kind]string{
	KindSTT:     "I'm having trouble hearing you right now. Please try speaking again clearly.",
	KindLLM:     "I'm having trouble connecting to my knowledge base. Let me try to help you anyway.",
	KindTTS:     "I can understand you, but I'm having trouble speaking right now.",
	KindAPI:     "I'm experiencing technical difficulties. Please try again later.",
	KindNetwork: "I'm having trouble connecting right now. Please check your connection and try again.",
	KindTimeout: "The request is taking too long. Please try again with a shorter message.",
	KindGeneral: "Something went wrong. Please try again.",
	KindConfig:  "Service configuration issue. Please contact support.",
	KindInput:   "There seems to be an issue with your input. Please check and try again.",
}

// FallbackMessage returns a user-facing suggestion for a failure of kind k.
func FallbackMessage(k Kind) string {
	if msg, ok := fallbackMessages[k]; ok {
		return msg
	}
	return fallbackMessages[KindGeneral]
}

// Summary returns a caller-safe description of a failure of kind k in the
// named capability. Underlying error text never appears in it.
func Summary(k Kind, capability string) string {
	switch k {
	case KindTimeout:
		return capability + " request timed out"
	case KindNetwork:
		return capability + " service unreachable"
	case KindAPI:
		return capability + " service returned an unusable response"
	case KindConfig:
		return capability + " service not configured"
	}
	return capability + " failed"
}
