package stt_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.webm")
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))
	return path
}

func newAssemblyAI(t *testing.T, url string) *stt.AssemblyAI {
	t.Helper()
	a, err := stt.NewAssemblyAI(
		stt.WithAPIKey("test-key"),
		stt.WithBaseURL(url),
		stt.WithPollInterval(time.Millisecond),
		stt.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	return a
}

func TestAssemblyAIRecognize(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "audio-bytes", string(body))
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn/abc"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn/abc", req["audio_url"])
		assert.Equal(t, "en", req["language_code"])
		json.NewEncoder(w).Encode(map[string]string{"id": "t1", "status": "queued"})
	})
	mux.HandleFunc("GET /transcript/t1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(map[string]string{"id": "t1", "status": "processing"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "t1", "status": "completed", "text": "hello world", "confidence": 0.87,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := newAssemblyAI(t, srv.URL).Recognize(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.InDelta(t, 0.87, res.Confidence, 1e-9)
	assert.Equal(t, "en", res.Language)
	assert.Equal(t, int32(3), polls.Load())
}

func TestAssemblyAIRemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "u"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "t2", "status": "error", "error": "unsupported codec"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newAssemblyAI(t, srv.URL).Recognize(context.Background(), writeAudio(t))
	var te *stt.TranscriptError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "unsupported codec", te.Reason)
}

func TestAssemblyAIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := newAssemblyAI(t, srv.URL).Recognize(context.Background(), writeAudio(t))
	var apiErr *stt.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus())
	assert.Equal(t, "Invalid API key", apiErr.Message)
}

func TestAssemblyAIAvailable(t *testing.T) {
	_, err := stt.NewAssemblyAI()
	assert.ErrorIs(t, err, stt.ErrNoAPIKey)

	a, err := stt.NewAssemblyAI(stt.WithAPIKey("your_assemblyai_api_key_here"))
	require.NoError(t, err)
	assert.False(t, a.Available())
	assert.Equal(t, "assemblyai", a.Name())
}
