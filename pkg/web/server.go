// Package web exposes the voice agent over HTTP and websockets.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/hub"
	"github.com/teslashibe/go-voiceagent/pkg/metrics"
	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// ErrorResponse is the body of every failed request that did not reach a
// capability.
type ErrorResponse struct {
	Success        bool          `json:"success"`
	Error          string        `json:"error"`
	ErrorKind      agenterr.Kind `json:"error_type"`
	FallbackAction string        `json:"fallback_action,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Option configures a Server.
type Option func(*Server)

// WithDebug enables request logging.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithUploadFolder serves files under dir at /uploads.
func WithUploadFolder(dir string) Option {
	return func(s *Server) { s.uploadFolder = dir }
}

// WithBodyLimit caps request bodies in bytes.
func WithBodyLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.bodyLimit = n
		}
	}
}

// WithMissingKeys supplies the credential report used by /api/health.
func WithMissingKeys(fn func() []string) Option {
	return func(s *Server) { s.missingKeys = fn }
}

// WithEvents streams pipeline events to /ws/events subscribers.
func WithEvents(h *hub.Hub) Option {
	return func(s *Server) { s.events = h }
}

// WithMetrics records request metrics and serves gatherer at /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithQueryTimeout bounds a single pipeline run started over HTTP.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Server) { s.queryTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the HTTP front end.
type Server struct {
	app    *fiber.App
	orch   *pipeline.Orchestrator
	stt    pipeline.Transcriber
	tts    pipeline.Synthesizer
	events *hub.Hub

	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	debug        bool
	uploadFolder string
	bodyLimit    int
	queryTimeout time.Duration
	missingKeys  func() []string
	logger       *slog.Logger
}

// NewServer builds the app and registers every route. The transcriber and
// synthesizer back the single-capability endpoints and should be the same
// ones orch uses.
func NewServer(orch *pipeline.Orchestrator, tr pipeline.Transcriber, syn pipeline.Synthesizer, opts ...Option) *Server {
	s := &Server{
		orch:         orch,
		stt:          tr,
		tts:          syn,
		bodyLimit:    16 * 1024 * 1024,
		queryTimeout: 3 * time.Minute,
		missingKeys:  func() []string { return nil },
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web.server")

	app := fiber.New(fiber.Config{
		AppName:               "voiceagent",
		DisableStartupMessage: true,
		BodyLimit:             s.bodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,PUT,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("Permissions-Policy", "microphone=(self), camera=(self)")
		return c.Next()
	})
	if s.debug {
		app.Use(logger.New())
	}
	if s.metrics != nil {
		app.Use(s.observeRequest)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/tts", s.handleTTS)
	api.Post("/transcribe", s.handleTranscribe)
	api.Get("/chat/stats", s.handleChatStats)
	api.Get("/chat/history/:session_id", s.handleGetHistory)
	api.Delete("/chat/history/:session_id", s.handleClearHistory)

	app.Post("/llm/query", s.handleQuery)

	if s.gatherer != nil {
		h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		app.Get("/metrics", func(c *fiber.Ctx) error {
			h(c.Context())
			return nil
		})
	}

	if s.uploadFolder != "" {
		app.Static("/uploads", s.uploadFolder)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/query", websocket.New(s.handleQueryWS))
	if s.events != nil {
		app.Get("/ws/events", websocket.New(s.handleEventsWS))
	}

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) observeRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	s.metrics.ObserveRequest(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	kind := agenterr.KindGeneral
	msg := "An unexpected error occurred while processing your request"
	switch {
	case code == fiber.StatusRequestEntityTooLarge:
		kind, msg = agenterr.KindInput, "File too large"
	case code < fiber.StatusInternalServerError:
		kind, msg = agenterr.KindInput, fe.Message
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorBody(kind, msg))
}

func errorBody(kind agenterr.Kind, msg string) ErrorResponse {
	return ErrorResponse{
		Error:          msg,
		ErrorKind:      kind,
		FallbackAction: agenterr.FallbackMessage(kind),
		Timestamp:      time.Now(),
	}
}

// statusFor maps a capability outcome onto an HTTP status.
func statusFor(success bool, kind agenterr.Kind) int {
	switch {
	case success:
		return fiber.StatusOK
	case kind == agenterr.KindInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
