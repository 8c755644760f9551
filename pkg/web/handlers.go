package web

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/hub"
	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
	"github.com/teslashibe/go-voiceagent/pkg/session"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
	"github.com/teslashibe/go-voiceagent/pkg/tts"
	"github.com/teslashibe/go-voiceagent/pkg/validate"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Services    map[string]bool `json:"services"`
	MissingKeys []string        `json:"missing_keys"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	missing := s.missingKeys()
	if missing == nil {
		missing = []string{}
	}
	status := "healthy"
	if len(missing) > 0 {
		status = "degraded"
	}
	return c.JSON(HealthResponse{
		Status:      status,
		Version:     Version,
		Services:    s.orch.Services(),
		MissingKeys: missing,
		Timestamp:   time.Now(),
	})
}

// TTSRequest is the body of POST /api/tts.
type TTSRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	Speed   int    `json:"speed"`
	Pitch   *int   `json:"pitch"`
}

func (s *Server) handleTTS(c *fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, "Missing request body"))
	}
	var req TTSRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, "Invalid request data: "+message(err)))
	}

	text, err := validate.Text(req.Text, validate.MaxSpeechLength)
	if err == nil {
		err = validate.SynthesisParams(req.Speed, req.Pitch)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, "Invalid request data: "+message(err)))
	}

	res := s.tts.Synthesize(c.UserContext(), tts.SynthesisRequest{
		Text:    text,
		VoiceID: req.VoiceID,
		Speed:   req.Speed,
		Pitch:   req.Pitch,
	})
	return c.Status(statusFor(res.Success, res.ErrorKind)).JSON(res)
}

func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	audio, err := formAudio(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, "No audio file provided"))
	}
	if err := validate.Audio(audio); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, message(err)))
	}

	res := s.stt.Transcribe(c.UserContext(), audio)
	return c.Status(statusFor(res.Success, res.ErrorKind)).JSON(res)
}

// QueryRequest is the body of POST /llm/query and of /ws/query messages.
// Form submissions carry the same fields alongside an optional audio file.
type QueryRequest struct {
	Text           string `json:"text" form:"text"`
	SessionID      string `json:"session_id" form:"session_id"`
	VoiceID        string `json:"voice_id" form:"voice_id"`
	Model          string `json:"model" form:"model"`
	Speed          int    `json:"speed" form:"speed"`
	Pitch          *int   `json:"pitch" form:"pitch"`
	IncludeHistory *bool  `json:"include_history" form:"include_history"`
}

func (q QueryRequest) pipelineRequest() pipeline.Request {
	return pipeline.Request{
		Text:           q.Text,
		SessionID:      q.SessionID,
		VoiceID:        q.VoiceID,
		Speed:          q.Speed,
		Pitch:          q.Pitch,
		Model:          q.Model,
		IncludeHistory: q.IncludeHistory,
	}
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var q QueryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&q); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, "Invalid request data: "+message(err)))
		}
	}

	req := q.pipelineRequest()
	if audio, err := formAudio(c); err == nil {
		req.Audio = audio
	} else if strings.TrimSpace(q.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(agenterr.KindInput, "Missing 'text' field in request"))
	}

	resp := s.run(c.UserContext(), req)
	return c.Status(statusFor(resp.Success, resp.ErrorKind)).JSON(resp)
}

// HistoryResponse is returned by GET /api/chat/history/:session_id.
type HistoryResponse struct {
	Success      bool              `json:"success"`
	SessionID    string            `json:"session_id"`
	History      []session.Message `json:"history"`
	MessageCount int               `json:"message_count"`
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	id := c.Params("session_id")
	history := s.orch.Store().History(id)
	return c.JSON(HistoryResponse{
		Success:      true,
		SessionID:    id,
		History:      history,
		MessageCount: len(history),
	})
}

func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	id := c.Params("session_id")
	cleared := s.orch.Store().Clear(id)
	s.refreshSessionGauge()
	return c.JSON(fiber.Map{
		"success":    true,
		"session_id": id,
		"cleared":    cleared,
	})
}

func (s *Server) handleChatStats(c *fiber.Ctx) error {
	avg := s.orch.Latency().Average()
	return c.JSON(fiber.Map{
		"sessions":        s.orch.Store().Stats(),
		"runs_tracked":    s.orch.Latency().Count(),
		"average_latency": avg,
	})
}

// handleQueryWS runs one pipeline per inbound JSON message. Messages without
// a session id continue the connection's most recent session.
func (s *Server) handleQueryWS(c *websocket.Conn) {
	var current string
	for {
		var q QueryRequest
		if err := c.ReadJSON(&q); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("query socket closed", "error", log.Clip(err.Error(), 200))
			}
			return
		}
		if q.SessionID == "" {
			q.SessionID = current
		}

		resp := s.run(context.Background(), q.pipelineRequest())
		if resp.SessionID != "" {
			current = resp.SessionID
		}
		if err := c.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.events, c).Run()
}

func (s *Server) run(ctx context.Context, req pipeline.Request) pipeline.Response {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	resp := s.orch.Run(ctx, req)
	s.refreshSessionGauge()
	return resp
}

func (s *Server) refreshSessionGauge() {
	if s.metrics != nil {
		s.metrics.SetActiveSessions(s.orch.Store().Stats().TotalSessions)
	}
}

// formAudio reads the "audio" multipart file into memory.
func formAudio(c *fiber.Ctx) (*stt.Audio, error) {
	fh, err := c.FormFile("audio")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &stt.Audio{
		Filename:     fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Data:         data,
		DeclaredSize: fh.Size,
	}, nil
}

func message(err error) string {
	if e, ok := err.(*agenterr.Error); ok {
		return e.Msg
	}
	return err.Error()
}
