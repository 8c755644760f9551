package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/llm"
)

func TestOpenAIChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "system", body.Messages[0]["role"])
		assert.Equal(t, "assistant", body.Messages[1]["role"])
		assert.Equal(t, "user", body.Messages[2]["role"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"gpt-test","choices":[{"message":{"role":"assistant","content":" Sure. "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p, err := llm.NewOpenAI(
		llm.WithBaseURL(srv.URL+"/"),
		llm.WithAPIKey("sk-test"),
		llm.WithModel("gpt-test"),
		llm.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	assert.True(t, p.Available())

	resp, err := p.Chat(context.Background(), &llm.ChatRequest{
		System: "sys",
		Messages: []llm.Message{
			{Role: llm.RoleAssistant, Content: "earlier"},
			{Role: llm.RoleUser, Content: "now"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure.", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","code":"rate_limit"}}`))
	}))
	defer srv.Close()

	p, _ := llm.NewOpenAI(llm.WithBaseURL(srv.URL), llm.WithAPIKey("k"), llm.WithLogger(log.Discard()))
	_, err := p.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})

	var apiErr *llm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, "slow down", apiErr.Message)
	assert.Equal(t, agenterr.KindAPI, agenterr.Classify(err, agenterr.KindLLM))
}

func TestOpenAIAvailability(t *testing.T) {
	p, _ := llm.NewOpenAI()
	assert.False(t, p.Available())

	local, _ := llm.NewOpenAI(llm.WithBaseURL("http://localhost:11434/v1"))
	assert.True(t, local.Available())
}

func TestGeminiChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent"), r.URL.Path)

		var body struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 2)
		assert.Equal(t, "model", body.Contents[0].Role)
		assert.Equal(t, "user", body.Contents[1].Role)
		assert.Equal(t, "sys", body.SystemInstruction.Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello from Gemini"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := llm.NewGemini(context.Background(),
		llm.WithAPIKey("g-key"),
		llm.WithBaseURL(srv.URL),
		llm.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	assert.True(t, g.Available())

	resp, err := g.Chat(context.Background(), &llm.ChatRequest{
		System: "sys",
		Messages: []llm.Message{
			{Role: llm.RoleAssistant, Content: "earlier"},
			{Role: llm.RoleUser, Content: "now"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello from Gemini", resp.Text)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	g, err := llm.NewGemini(context.Background(), llm.WithAPIKey("bad"), llm.WithBaseURL(srv.URL), llm.WithLogger(log.Discard()))
	require.NoError(t, err)

	_, err = g.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})
	var apiErr *llm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestGeminiPlaceholderKey(t *testing.T) {
	_, err := llm.NewGemini(context.Background())
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)

	g, err := llm.NewGemini(context.Background(), llm.WithAPIKey("your_gemini_api_key_here"))
	require.NoError(t, err)
	assert.False(t, g.Available())
}
