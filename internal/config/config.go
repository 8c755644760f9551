// Package config loads process configuration for go-voiceagent.
//
// Values come from the environment, optionally seeded from a .env file in the
// working directory. Configuration is read once at startup; the resulting
// Config is treated as immutable and handed to constructors.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Placeholder credentials shipped in sample env files. A key equal to one of
// these is treated as not configured.
const (
	PlaceholderAssemblyAIKey = "your_assemblyai_api_key_here"
	PlaceholderGeminiKey     = "your_gemini_api_key_here"
	PlaceholderMurfKey       = "your_murf_api_key_here"
	PlaceholderMurfURL       = "your_murf_api_url_here"
)

// Config holds all settings for the voice agent.
type Config struct {
	// Server
	Debug            bool
	Host             string
	Port             int
	UploadFolder     string
	MaxContentLength int

	// Logging
	LogLevel string

	// Credentials
	AssemblyAIKey string
	GeminiKey     string
	OpenAIKey     string
	OpenAIBaseURL string
	MurfKey       string
	MurfURL       string
	ElevenLabsKey string

	// Provider selection
	STTService string
	LLMService string
	TTSService string
	LLMModel   string

	// Voice defaults
	DefaultVoiceID     string
	DefaultSpeechSpeed int
	DefaultSpeechPitch int

	// Timeouts
	STTTimeout time.Duration
	LLMTimeout time.Duration
	TTSTimeout time.Duration
}

var defaults = map[string]any{
	"DEBUG":                true,
	"HOST":                 "localhost",
	"PORT":                 5000,
	"UPLOAD_FOLDER":        "uploads",
	"MAX_CONTENT_LENGTH":   16 * 1024 * 1024,
	"LOG_LEVEL":            "INFO",
	"OPENAI_BASE_URL":      "https://api.openai.com/v1",
	"STT_SERVICE":          "assemblyai",
	"LLM_SERVICE":          "gemini",
	"TTS_SERVICE":          "murf",
	"LLM_MODEL":            "",
	"DEFAULT_VOICE_ID":     "en-US-AriaNeural",
	"DEFAULT_SPEECH_SPEED": 95,
	"DEFAULT_SPEECH_PITCH": 45,
	"STT_TIMEOUT":          30,
	"LLM_TIMEOUT":          30,
	"TTS_TIMEOUT":          60,
}

// Load reads configuration from the environment and, when present, from
// envFile (pass "" to skip). Environment variables win over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		Debug:            v.GetBool("DEBUG"),
		Host:             v.GetString("HOST"),
		Port:             v.GetInt("PORT"),
		UploadFolder:     v.GetString("UPLOAD_FOLDER"),
		MaxContentLength: v.GetInt("MAX_CONTENT_LENGTH"),
		LogLevel:         strings.ToUpper(v.GetString("LOG_LEVEL")),

		AssemblyAIKey: unquote(v.GetString("ASSEMBLYAI_API_KEY")),
		GeminiKey:     unquote(v.GetString("GEMINI_API_KEY")),
		OpenAIKey:     unquote(v.GetString("OPENAI_API_KEY")),
		OpenAIBaseURL: unquote(v.GetString("OPENAI_BASE_URL")),
		MurfKey:       unquote(v.GetString("MURF_API_KEY")),
		MurfURL:       unquote(v.GetString("MURF_API_URL")),
		ElevenLabsKey: unquote(v.GetString("ELEVENLABS_API_KEY")),

		STTService: strings.ToLower(v.GetString("STT_SERVICE")),
		LLMService: strings.ToLower(v.GetString("LLM_SERVICE")),
		TTSService: strings.ToLower(v.GetString("TTS_SERVICE")),
		LLMModel:   v.GetString("LLM_MODEL"),

		DefaultVoiceID:     v.GetString("DEFAULT_VOICE_ID"),
		DefaultSpeechSpeed: v.GetInt("DEFAULT_SPEECH_SPEED"),
		DefaultSpeechPitch: v.GetInt("DEFAULT_SPEECH_PITCH"),

		STTTimeout: time.Duration(v.GetInt("STT_TIMEOUT")) * time.Second,
		LLMTimeout: time.Duration(v.GetInt("LLM_TIMEOUT")) * time.Second,
		TTSTimeout: time.Duration(v.GetInt("TTS_TIMEOUT")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would make the process unusable.
// Missing API keys are not errors; they only degrade the matching capability.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: PORT out of range: %d", c.Port))
	}
	if c.STTTimeout <= 0 || c.LLMTimeout <= 0 || c.TTSTimeout <= 0 {
		errs = append(errs, errors.New("config: timeouts must be positive"))
	}
	switch c.LLMService {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("config: unknown LLM_SERVICE %q", c.LLMService))
	}
	switch c.TTSService {
	case "murf", "elevenlabs", "openai":
	default:
		errs = append(errs, fmt.Errorf("config: unknown TTS_SERVICE %q", c.TTSService))
	}
	if c.STTService != "assemblyai" {
		errs = append(errs, fmt.Errorf("config: unknown STT_SERVICE %q", c.STTService))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIKeyStatus reports, for each credential the selected services need,
// whether it is configured.
func (c *Config) APIKeyStatus() map[string]bool {
	status := map[string]bool{
		"assemblyai": Configured(c.AssemblyAIKey, PlaceholderAssemblyAIKey),
	}
	switch c.LLMService {
	case "openai":
		status["openai"] = Configured(c.OpenAIKey, "")
	default:
		status["gemini"] = Configured(c.GeminiKey, PlaceholderGeminiKey)
	}
	switch c.TTSService {
	case "elevenlabs":
		status["elevenlabs"] = Configured(c.ElevenLabsKey, "")
	case "openai":
		status["openai"] = Configured(c.OpenAIKey, "")
	default:
		status["murf"] = Configured(c.MurfKey, PlaceholderMurfKey)
		// An empty URL selects the built-in Murf endpoint.
		status["murf_url"] = c.MurfURL != PlaceholderMurfURL
	}
	return status
}

// MissingKeys lists required credentials that are absent or still
// placeholders, sorted by name.
func (c *Config) MissingKeys() []string {
	var missing []string
	for k, ok := range c.APIKeyStatus() {
		if !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// ProductionReady reports whether every required credential is present.
func (c *Config) ProductionReady() bool {
	return len(c.MissingKeys()) == 0
}

// Configured reports whether value is set and differs from placeholder.
func Configured(value, placeholder string) bool {
	return value != "" && value != placeholder
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'"`)
}
