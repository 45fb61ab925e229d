package stt

import (
	"log/slog"
	"time"
)

// Config holds recognizer configuration.
type Config struct {
	APIKey   string
	Language string
	Model    string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Option is a functional option for configuring recognizers.
type Option func(*Config)

// WithAPIKey sets the API key. Without one, application default
// credentials are used.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithModel selects a recognition model, e.g. "command_and_search".
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout bounds a single recognition request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Language: "en-US",
		Model:    "command_and_search",
		Timeout:  10 * time.Second,
		Logger:   slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
