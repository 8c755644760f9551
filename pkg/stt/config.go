package stt

import (
	"log/slog"
	"time"
)

// Config holds speech-to-text configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Recognition
	Language     string
	PollInterval time.Duration

	// Timeout bounds one whole transcription, upload through final poll.
	Timeout time.Duration

	// TempDir is where uploads are spooled before recognition.
	// Empty means os.TempDir().
	TempDir string

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring STT components.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithLanguage sets the expected spoken language code.
func WithLanguage(code string) Option {
	return func(c *Config) { c.Language = code }
}

// WithPollInterval sets how often a pending transcript is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithTimeout sets the per-transcription timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithTempDir sets the spool directory for uploads.
func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language:     "en",
		PollInterval: time.Second,
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

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
