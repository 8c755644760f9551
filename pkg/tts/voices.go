package tts

import "strings"

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
var ElevenLabsVoices = map[string]string{
	"charlotte": "XB0fDUnXU5powFXDhCwa", // British female, warm
	"aria":      "9BWtsMINqrJLrRacOk9x", // American female, expressive
	"sarah":     "EXAVITQu4vr4xnSDxMaL", // American female, soft
	"rachel":    "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"josh":      "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":      "pNInz6obpgDQGcFmaJgB", // American male, deep
}

// DefaultElevenLabsVoice is the default voice preset.
const DefaultElevenLabsVoice = "aria"

// ResolveElevenLabsVoice maps a requested voice onto an ElevenLabs voice ID.
// Preset names resolve through ElevenLabsVoices. Locale-style IDs such as
// "en-US-AriaNeural" resolve by their name part ("aria") when that is a
// preset, otherwise to fallback. Anything else is assumed to be a raw ID.
func ResolveElevenLabsVoice(voice, fallback string) string {
	if voice == "" {
		voice = fallback
	}
	if id, ok := ElevenLabsVoices[strings.ToLower(voice)]; ok {
		return id
	}
	if i := strings.LastIndex(voice, "-"); i >= 0 {
		name := strings.ToLower(strings.TrimSuffix(voice[i+1:], "Neural"))
		if id, ok := ElevenLabsVoices[name]; ok {
			return id
		}
		if voice != fallback {
			return ResolveElevenLabsVoice(fallback, DefaultElevenLabsVoice)
		}
		return ElevenLabsVoices[DefaultElevenLabsVoice]
	}
	return voice
}

// OpenAIVoices lists the built-in OpenAI voices.
var OpenAIVoices = map[string]bool{
	"alloy": true, "echo": true, "fable": true, "onyx": true, "nova": true, "shimmer": true,
}

// ResolveOpenAIVoice maps a requested voice onto an OpenAI voice name,
// using fallback for anything OpenAI does not know.
func ResolveOpenAIVoice(voice, fallback string) string {
	if v := strings.ToLower(voice); OpenAIVoices[v] {
		return v
	}
	return fallback
}
