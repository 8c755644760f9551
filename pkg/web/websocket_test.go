package web_test

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/hub"
	"github.com/teslashibe/go-voiceagent/pkg/llm"
	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
	"github.com/teslashibe/go-voiceagent/pkg/session"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
	"github.com/teslashibe/go-voiceagent/pkg/tts"
	"github.com/teslashibe/go-voiceagent/pkg/web"
)

// startServer serves s on a random local port and returns its address.
func startServer(t *testing.T, s *web.Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.App().Listener(ln)
	t.Cleanup(func() { s.App().Shutdown() })
	return ln.Addr().String()
}

func TestQueryWebsocket(t *testing.T) {
	f := newFixture(t, llm.NewMock("Hi over the socket"))
	addr := startServer(t, f.server)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/query", nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, ws.WriteJSON(map[string]any{"text": "Hello"}))
	var first map[string]any
	require.NoError(t, ws.ReadJSON(&first))
	assert.Equal(t, true, first["success"])
	assert.Equal(t, "Hi over the socket", first["llm_response"])

	// A follow-up without a session id continues the same conversation.
	require.NoError(t, ws.WriteJSON(map[string]any{"text": "And again"}))
	var second map[string]any
	require.NoError(t, ws.ReadJSON(&second))
	assert.Equal(t, first["session_id"], second["session_id"])
	assert.Equal(t, float64(4), second["message_count"])
}

func TestEventsWebsocket(t *testing.T) {
	ctx := t.Context()
	events := hub.New(log.Discard())
	go events.Run(ctx)

	store := session.NewStore()
	tr := stt.NewTranscriber(stt.NewMock("x"), stt.WithLogger(log.Discard()))
	syn := tts.NewSynthesizer(tts.NewMock(), tts.WithLogger(log.Discard()))
	orch := pipeline.New(store, tr,
		llm.NewResponder(llm.NewMock("ok"), llm.WithLogger(log.Discard())),
		syn,
		pipeline.WithObserver(events),
		pipeline.WithLogger(log.Discard()),
	)
	srv := web.NewServer(orch, tr, syn, web.WithEvents(events), web.WithLogger(log.Discard()))
	addr := startServer(t, srv)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/events", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return events.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post("http://"+addr+"/llm/query", "application/json", jsonBody(map[string]any{"text": "Hello"}))
	require.NoError(t, err)
	resp.Body.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var seen []string
	for {
		var e map[string]any
		require.NoError(t, ws.ReadJSON(&e))
		seen = append(seen, e["type"].(string))
		if e["type"] == string(pipeline.EventCompleted) {
			break
		}
	}
	assert.Equal(t, []string{"stage", "stage", "completed"}, seen)
}
