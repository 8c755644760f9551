// Package validate rejects malformed caller input before any capability is
// called or any session is touched. Every check is pure.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
	"github.com/teslashibe/go-voiceagent/pkg/tts"
)

// Limits.
const (
	MaxQueryLength  = 10000
	MaxSpeechLength = tts.MaxTextLength
	MaxAudioBytes   = 16 * 1024 * 1024

	MinSpeed = 50
	MaxSpeed = 200
	MinPitch = 0
	MaxPitch = 100
)

// AllowedAudioExtensions is the set of accepted upload extensions.
var AllowedAudioExtensions = map[string]bool{
	"webm": true,
	"wav":  true,
	"mp3":  true,
	"m4a":  true,
	"ogg":  true,
}

// Text trims text and checks it is non-empty and at most maxLen characters.
// It returns the trimmed text.
func Text(text string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", agenterr.New(agenterr.KindInput, "text is required and cannot be empty")
	}
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return "", agenterr.New(agenterr.KindInput, fmt.Sprintf("text too long (max %d characters)", maxLen))
	}
	return trimmed, nil
}

// Audio checks that an upload is present, named, small enough, and of an
// accepted type.
func Audio(a *stt.Audio) error {
	if a == nil {
		return agenterr.New(agenterr.KindInput, "no audio file provided")
	}
	if strings.TrimSpace(a.Filename) == "" {
		return agenterr.New(agenterr.KindInput, "no audio file selected")
	}
	if a.Size() > MaxAudioBytes {
		return agenterr.New(agenterr.KindInput, fmt.Sprintf("audio file too large (max %d MiB)", MaxAudioBytes/(1024*1024)))
	}
	if ext := a.Extension(); !AllowedAudioExtensions[ext] {
		return agenterr.New(agenterr.KindInput, fmt.Sprintf("unsupported audio format %q (allowed: webm, wav, mp3, m4a, ogg)", ext))
	}
	return nil
}

// SynthesisParams checks voice speed and pitch. Speed 0 and a nil pitch mean
// "use the default" and are always accepted.
func SynthesisParams(speed int, pitch *int) error {
	if speed != 0 && (speed < MinSpeed || speed > MaxSpeed) {
		return agenterr.New(agenterr.KindInput, fmt.Sprintf("speed must be between %d and %d", MinSpeed, MaxSpeed))
	}
	if pitch != nil && (*pitch < MinPitch || *pitch > MaxPitch) {
		return agenterr.New(agenterr.KindInput, fmt.Sprintf("pitch must be between %d and %d", MinPitch, MaxPitch))
	}
	return nil
}
