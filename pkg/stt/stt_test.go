package stt_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
)

func newTranscriber(t *testing.T, rec stt.Recognizer) (*stt.Transcriber, string) {
	t.Helper()
	dir := t.TempDir()
	return stt.NewTranscriber(rec, stt.WithTempDir(dir), stt.WithLogger(log.Discard())), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "transient audio file left behind")
}

func TestTranscribeSuccess(t *testing.T) {
	mock := stt.NewMock("  what time is it  ")
	tr, dir := newTranscriber(t, mock)

	got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "clip.WAV", Data: []byte("RIFF")})

	require.True(t, got.Success, got.Error)
	assert.Equal(t, "what time is it", got.Text)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.Equal(t, "en", got.Language)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []byte("RIFF"), calls[0].Data)
	assert.Equal(t, ".wav", filepath.Ext(calls[0].Path))
	assertDirEmpty(t, dir)
}

func TestTranscribeEmptyText(t *testing.T) {
	tr, dir := newTranscriber(t, stt.NewMock("   "))

	got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.webm", Data: []byte{1}})

	assert.False(t, got.Success)
	assert.Equal(t, agenterr.KindSTT, got.ErrorKind)
	assert.Equal(t, "No speech detected in audio", got.Error)
	assert.Empty(t, got.Text)
	assertDirEmpty(t, dir)
}

func TestTranscribeErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want agenterr.Kind
	}{
		{"remote status", &stt.TranscriptError{Provider: "mock", Reason: "bad audio"}, agenterr.KindSTT},
		{"api", &stt.APIError{StatusCode: http.StatusUnauthorized, Message: "nope"}, agenterr.KindAPI},
		{"timeout", context.DeadlineExceeded, agenterr.KindTimeout},
		{"other", errors.New("boom"), agenterr.KindSTT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, dir := newTranscriber(t, stt.WithError(tt.err))
			got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.mp3", Data: []byte{1}})
			assert.False(t, got.Success)
			assert.Equal(t, tt.want, got.ErrorKind)
			assert.NotEmpty(t, got.Error)
			assertDirEmpty(t, dir)
		})
	}
}

func TestTranscribeHidesTransportDetail(t *testing.T) {
	dial := &url.Error{
		Op:  "Post",
		URL: "https://api.assemblyai.com/v2/upload",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
	}
	tr, _ := newTranscriber(t, stt.WithError(dial))

	got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.wav", Data: []byte{1}})

	assert.False(t, got.Success)
	assert.Equal(t, agenterr.KindNetwork, got.ErrorKind)
	assert.Equal(t, "Transcription service unreachable", got.Error)
	assert.NotContains(t, got.Error, "assemblyai.com")
}

func TestTranscribeRemovesFileOnPanic(t *testing.T) {
	mock := &stt.Mock{RecognizeFunc: func(ctx context.Context, path string) (*stt.Result, error) {
		panic("recognizer exploded")
	}}
	tr, dir := newTranscriber(t, mock)

	var got stt.Transcription
	require.NotPanics(t, func() {
		got = tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.ogg", Data: []byte{1}})
	})
	assert.False(t, got.Success)
	assert.Equal(t, agenterr.KindSTT, got.ErrorKind)
	assertDirEmpty(t, dir)
}

func TestTranscribeNotConfigured(t *testing.T) {
	mock := stt.NewMock("hi")
	mock.Unavailable = true
	tr, _ := newTranscriber(t, mock)

	got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.ogg", Data: []byte{1}})
	assert.Equal(t, agenterr.KindConfig, got.ErrorKind)
	assert.Equal(t, 0, mock.CallCount("Recognize"))

	nilTr := stt.NewTranscriber(nil)
	assert.False(t, nilTr.Available())
	assert.Equal(t, agenterr.KindConfig, nilTr.Transcribe(context.Background(), &stt.Audio{Filename: "a.ogg", Data: []byte{1}}).ErrorKind)
}

func TestTranscribeHonorsTimeout(t *testing.T) {
	mock := &stt.Mock{RecognizeFunc: func(ctx context.Context, path string) (*stt.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	tr := stt.NewTranscriber(mock,
		stt.WithTempDir(t.TempDir()),
		stt.WithTimeout(20*time.Millisecond),
		stt.WithLogger(log.Discard()),
	)

	got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.ogg", Data: []byte{1}})
	assert.Equal(t, agenterr.KindTimeout, got.ErrorKind)
}

func TestConfidenceClamped(t *testing.T) {
	mock := &stt.Mock{RecognizeFunc: func(ctx context.Context, path string) (*stt.Result, error) {
		return &stt.Result{Text: "hi", Confidence: 1.7}, nil
	}}
	tr, _ := newTranscriber(t, mock)

	got := tr.Transcribe(context.Background(), &stt.Audio{Filename: "a.ogg", Data: []byte{1}})
	require.True(t, got.Success)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestAudioExtension(t *testing.T) {
	assert.Equal(t, "webm", (&stt.Audio{Filename: "Voice.WEBM"}).Extension())
	assert.Equal(t, "ogg", (&stt.Audio{Filename: "x.exe.ogg"}).Extension())
	assert.Equal(t, "recording", (&stt.Audio{Filename: "recording"}).Extension())
	assert.Equal(t, int64(3), (&stt.Audio{Data: []byte("abc")}).Size())
	assert.Equal(t, int64(9), (&stt.Audio{Data: []byte("abc"), DeclaredSize: 9}).Size())
}
