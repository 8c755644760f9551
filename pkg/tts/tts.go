// Package tts provides text-to-speech for assistant replies.
//
// Backends (Murf, ElevenLabs, OpenAI) implement the Provider interface and
// return either a hosted audio URL or raw audio bytes. The Synthesizer turns
// either into a playable reference and, whenever synthesis fails, hands back
// an emergency fallback: the text itself as a data URI that a client-side
// speech engine can read aloud without another round trip.
//
// Example usage:
//
//	provider, _ := tts.NewMurf(
//	    tts.WithAPIKey(os.Getenv("MURF_API_KEY")),
//	    tts.WithBaseURL(os.Getenv("MURF_API_URL")),
//	)
//	synth := tts.NewSynthesizer(provider)
//
//	result := synth.Synthesize(ctx, tts.SynthesisRequest{Text: "Hello world"})
//	// result.AudioURL is playable, or result.EmergencyFallback is set
package tts

import (
	"context"
	"encoding/base64"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, req *Request) (*Audio, error)

	// Available reports whether the provider has usable credentials.
	Available() bool

	// Name identifies the backend in logs and health output.
	Name() string
}

// Request carries fully resolved synthesis parameters.
type Request struct {
	Text    string
	VoiceID string

	// Speed is the speaking rate on a 50-200 scale, 100 being normal.
	Speed int

	// Pitch is on a 0-100 scale. Zero is a real value, not a default.
	Pitch int
}

// Audio is what a provider produced. Exactly one of URL or Data is set.
type Audio struct {
	// URL is a hosted, playable audio file.
	URL string

	// Data holds encoded audio bytes.
	Data []byte

	// MIME describes Data, e.g. audio/mpeg.
	MIME string
}

// Reference returns a playable reference: the URL, or Data as a data URI.
func (a *Audio) Reference() string {
	if a == nil {
		return ""
	}
	if a.URL != "" {
		return a.URL
	}
	if len(a.Data) == 0 {
		return ""
	}
	mime := a.MIME
	if mime == "" {
		mime = "audio/mpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// EmergencyFallback encodes text as a data URI for client-side speech.
func EmergencyFallback(text string) string {
	return "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(text))
}
