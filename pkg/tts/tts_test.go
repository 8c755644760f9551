package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/tts"
)

func TestEmergencyFallback(t *testing.T) {
	ref := tts.EmergencyFallback("Hello wörld")
	require.True(t, strings.HasPrefix(ref, "data:text/plain;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, "data:text/plain;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "Hello wörld", string(decoded))
}

func TestAudioReference(t *testing.T) {
	assert.Equal(t, "https://x/a.mp3", (&tts.Audio{URL: "https://x/a.mp3", Data: []byte{1}}).Reference())
	assert.Equal(t, "data:audio/mpeg;base64,AQI=", (&tts.Audio{Data: []byte{1, 2}}).Reference())
	assert.Equal(t, "", (&tts.Audio{}).Reference())
	assert.Equal(t, "", (*tts.Audio)(nil).Reference())
}

func TestSynthesizeAppliesDefaults(t *testing.T) {
	mock := tts.NewMock()
	s := tts.NewSynthesizer(mock, tts.WithLogger(log.Discard()))

	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "Hi there"})

	require.True(t, got.Success)
	assert.Equal(t, "https://audio.test/reply.mp3", got.AudioURL)
	assert.Empty(t, got.EmergencyFallback)

	call := mock.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, tts.Request{Text: "Hi there", VoiceID: "en-US-AriaNeural", Speed: 95, Pitch: 45}, call.Request)
}

func TestSynthesizeKeepsZeroPitch(t *testing.T) {
	zero := 0

	mock := tts.NewMock()
	s := tts.NewSynthesizer(mock, tts.WithLogger(log.Discard()))
	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "low", Pitch: &zero})
	require.True(t, got.Success)
	assert.Equal(t, 0, mock.LastCall().Request.Pitch)

	mock = tts.NewMock()
	s = tts.NewSynthesizer(mock, tts.WithPitch(0), tts.WithLogger(log.Discard()))
	s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "low"})
	assert.Equal(t, 0, mock.LastCall().Request.Pitch)
}

func TestSynthesizeTextLengthLimit(t *testing.T) {
	mock := tts.NewMock()
	s := tts.NewSynthesizer(mock, tts.WithLogger(log.Discard()))

	long := strings.Repeat("é", tts.MaxTextLength+1)
	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: long})
	assert.False(t, got.Success)
	assert.Equal(t, agenterr.KindInput, got.ErrorKind)
	assert.Equal(t, tts.EmergencyFallback(long), got.EmergencyFallback)
	assert.Equal(t, 0, mock.CallCount("Synthesize"))

	got = s.Synthesize(context.Background(), tts.SynthesisRequest{Text: long[:len(long)-len("é")]})
	assert.True(t, got.Success)
	assert.Equal(t, 1, mock.CallCount("Synthesize"))
}

func TestSynthesizeHidesTransportDetail(t *testing.T) {
	dial := &url.Error{
		Op:  "Post",
		URL: "https://api.murf.ai/v1/speech/generate",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
	}
	s := tts.NewSynthesizer(tts.WithError(dial), tts.WithLogger(log.Discard()))

	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "speak"})
	assert.Equal(t, agenterr.KindNetwork, got.ErrorKind)
	assert.Equal(t, "TTS service unreachable", got.Error)
	assert.NotContains(t, got.Error, "murf.ai")
}

func TestSynthesizeFailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want agenterr.Kind
	}{
		{"api status", &tts.APIError{StatusCode: 500, Message: "down", Provider: "mock"}, agenterr.KindAPI},
		{"no audio", tts.WrapError("mock", tts.ErrNoAudio), agenterr.KindTTS},
		{"timeout", context.DeadlineExceeded, agenterr.KindTimeout},
		{"other", errors.New("weird"), agenterr.KindTTS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tts.NewSynthesizer(tts.WithError(tt.err), tts.WithLogger(log.Discard()))
			got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "speak"})

			assert.False(t, got.Success)
			assert.Empty(t, got.AudioURL)
			assert.Equal(t, tt.want, got.ErrorKind)
			assert.Equal(t, tts.EmergencyFallback("speak"), got.EmergencyFallback)
		})
	}
}

func TestSynthesizeNotConfigured(t *testing.T) {
	mock := tts.NewMock()
	mock.Unavailable = true
	s := tts.NewSynthesizer(mock, tts.WithLogger(log.Discard()))

	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "speak"})
	assert.Equal(t, agenterr.KindConfig, got.ErrorKind)
	assert.NotEmpty(t, got.EmergencyFallback)
	assert.Equal(t, 0, mock.CallCount("Synthesize"))
}

func TestSynthesizeEmptyAudioIsFailure(t *testing.T) {
	mock := &tts.Mock{SynthesizeFunc: func(ctx context.Context, req *tts.Request) (*tts.Audio, error) {
		return &tts.Audio{}, nil
	}}
	s := tts.NewSynthesizer(mock, tts.WithLogger(log.Discard()))

	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "speak"})
	assert.Equal(t, agenterr.KindTTS, got.ErrorKind)
}

func TestSynthesizeTimeout(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), time.Second)
	s := tts.NewSynthesizer(mock, tts.WithTimeout(10*time.Millisecond), tts.WithLogger(log.Discard()))

	got := s.Synthesize(context.Background(), tts.SynthesisRequest{Text: "speak"})
	assert.Equal(t, agenterr.KindTimeout, got.ErrorKind)
	assert.Equal(t, "TTS request timed out", got.Error)
}

func TestMurfSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "murf-key", r.Header.Get("api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "en-US-AriaNeural", body["voiceId"])
		assert.Equal(t, "Conversational", body["style"])
		assert.Equal(t, float64(120), body["rate"])
		assert.Equal(t, float64(0), body["pitch"])
		assert.Equal(t, float64(24000), body["sampleRate"])
		assert.Equal(t, "MP3", body["format"])
		assert.Equal(t, "GEN2", body["modelVersion"])

		w.Write([]byte(`{"audioFile":"https://murf.test/out.mp3"}`))
	}))
	defer srv.Close()

	m, err := tts.NewMurf(tts.WithAPIKey("murf-key"), tts.WithBaseURL(srv.URL), tts.WithLogger(log.Discard()))
	require.NoError(t, err)
	require.True(t, m.Available())

	audio, err := m.Synthesize(context.Background(), &tts.Request{Text: "hello", Speed: 120})
	require.NoError(t, err)
	assert.Equal(t, "https://murf.test/out.mp3", audio.URL)
}

func TestMurfErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   agenterr.Kind
	}{
		{"non-200", http.StatusForbidden, `{"error":"bad key"}`, agenterr.KindAPI},
		{"unparsable", http.StatusOK, `<html>`, agenterr.KindAPI},
		{"missing audio", http.StatusOK, `{"audioFile":""}`, agenterr.KindTTS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m, err := tts.NewMurf(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithLogger(log.Discard()))
			require.NoError(t, err)

			got := tts.NewSynthesizer(m, tts.WithLogger(log.Discard())).
				Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi"})
			assert.False(t, got.Success)
			assert.Equal(t, tt.want, got.ErrorKind)
			assert.NotEmpty(t, got.EmergencyFallback)
		})
	}
}

func TestMurfNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m, err := tts.NewMurf(tts.WithAPIKey("k"), tts.WithBaseURL(url), tts.WithLogger(log.Discard()))
	require.NoError(t, err)

	got := tts.NewSynthesizer(m, tts.WithLogger(log.Discard())).
		Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi"})
	assert.Equal(t, agenterr.KindNetwork, got.ErrorKind)
}

func TestMurfPlaceholders(t *testing.T) {
	m, err := tts.NewMurf(tts.WithAPIKey("your_murf_api_key_here"))
	require.NoError(t, err)
	assert.False(t, m.Available())

	m, err = tts.NewMurf(tts.WithAPIKey("real"), tts.WithBaseURL("your_murf_api_url_here"))
	require.NoError(t, err)
	assert.False(t, m.Available())
}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/9BWtsMINqrJLrRacOk9x", r.URL.Path)
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		w.Write([]byte{0xff, 0xfb})
	}))
	defer srv.Close()

	e, err := tts.NewElevenLabs(tts.WithAPIKey("el-key"), tts.WithBaseURL(srv.URL), tts.WithLogger(log.Discard()))
	require.NoError(t, err)

	audio, err := e.Synthesize(context.Background(), &tts.Request{Text: "hi", VoiceID: "en-US-AriaNeural"})
	require.NoError(t, err)
	assert.Equal(t, "data:audio/mpeg;base64,//s=", audio.Reference())
}

func TestOpenAISynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nova", body["voice"])
		assert.Equal(t, 0.95, body["speed"])
		w.Write([]byte{1, 2, 3})
	}))
	defer srv.Close()

	o, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithLogger(log.Discard()))
	require.NoError(t, err)

	audio, err := o.Synthesize(context.Background(), &tts.Request{Text: "hi", VoiceID: "Nova", Speed: 95})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, audio.Data)
}

func TestResolveElevenLabsVoice(t *testing.T) {
	assert.Equal(t, tts.ElevenLabsVoices["rachel"], tts.ResolveElevenLabsVoice("Rachel", "aria"))
	assert.Equal(t, tts.ElevenLabsVoices["aria"], tts.ResolveElevenLabsVoice("en-US-AriaNeural", "aria"))
	assert.Equal(t, tts.ElevenLabsVoices["josh"], tts.ResolveElevenLabsVoice("en-GB-UnknownNeural", "josh"))
	assert.Equal(t, "rawVoiceID123", tts.ResolveElevenLabsVoice("rawVoiceID123", "aria"))
	assert.Equal(t, tts.ElevenLabsVoices["aria"], tts.ResolveElevenLabsVoice("", "aria"))
}
