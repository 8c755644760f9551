package llm

import (
	"log/slog"
	"time"
)

// DefaultSystemPrompt frames the assistant for spoken replies.
const DefaultSystemPrompt = "You are a helpful AI voice assistant. Provide clear, concise, and helpful responses. " +
	"Keep your responses conversational and engaging, suitable for voice interaction."

// Config holds provider and responder configuration.
type Config struct {
	// Connection
	BaseURL string
	APIKey  string

	// Generation
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string

	// HistoryLimit caps how many prior messages are sent as context.
	HistoryLimit int

	// Timeout bounds one generation call.
	Timeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
// Examples: "https://api.openai.com/v1", "http://localhost:11434/v1"
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the default chat model.
func WithModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.Model = model
		}
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithSystemPrompt replaces the default system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) { c.SystemPrompt = prompt }
}

// WithHistoryLimit sets how many prior messages are included.
func WithHistoryLimit(n int) Option {
	return func(c *Config) { c.HistoryLimit = n }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxTokens:    1024,
		Temperature:  0.7,
		SystemPrompt: DefaultSystemPrompt,
		HistoryLimit: 10,
		Timeout:      30 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
