package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrNoSpeech is returned when recognition produced no text.
	ErrNoSpeech = errors.New("No speech detected in audio")

	// ErrNotConfigured is returned when transcription is attempted without
	// a usable recognizer.
	ErrNotConfigured = errors.New("STT service not available - API key not configured")
)

// APIError represents an error response from a speech recognition API.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// HTTPStatus returns the HTTP status code of the failed call.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// TranscriptError is returned when the provider accepted the audio but
// reported that recognition itself failed.
type TranscriptError struct {
	Provider string
	Reason   string
}

// Error implements the error interface.
func (e *TranscriptError) Error() string {
	return fmt.Sprintf("Transcription service error: %s", e.Reason)
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
