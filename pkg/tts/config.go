package tts

import (
	"log/slog"
	"math"
	"time"
)

// Speech rate bounds, in words per minute, mirroring the dashboard slider.
const (
	DefaultRate = 150
	MinRate     = 100
	MaxRate     = 200
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Voice configuration
	VoiceID  string
	ModelID  string
	Language string

	// Delivery
	Rate   int     // words per minute
	Volume float64 // 0.0-1.0
	Format string  // provider specific wire format, e.g. "opus" or "pcm"

	// OpusDecoder turns an Ogg Opus file into mono 48kHz PCM16. Kept out of
	// this package so only binaries that link libopus pay for it.
	OpusDecoder func([]byte) ([]int16, error)

	// Timeouts
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithVoice sets the voice name.
func WithVoice(voiceID string) Option {
	return func(c *Config) { c.VoiceID = voiceID }
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) { c.ModelID = modelID }
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithRate sets the speaking rate in words per minute.
func WithRate(wpm int) Option {
	return func(c *Config) { c.Rate = wpm }
}

// WithVolume sets the output volume, 0.0-1.0.
func WithVolume(v float64) Option {
	return func(c *Config) { c.Volume = v }
}

// WithFormat selects the wire format requested from the provider.
func WithFormat(format string) Option {
	return func(c *Config) { c.Format = format }
}

// WithOpusDecoder installs the decoder used for FormatOpus responses.
func WithOpusDecoder(decode func([]byte) ([]int16, error)) Option {
	return func(c *Config) { c.OpusDecoder = decode }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language:   "en-US",
		Rate:       DefaultRate,
		Volume:     1.0,
		Timeout:    15 * time.Second,
		MaxRetries: 1,
		RetryDelay: 200 * time.Millisecond,
		Logger:     slog.Default(),
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

// SpeakingRate maps words per minute onto the relative rate used by cloud
// providers, where 1.0 is normal speed (150 wpm).
func SpeakingRate(wpm int) float64 {
	if wpm <= 0 {
		wpm = DefaultRate
	}
	return clamp(float64(wpm)/DefaultRate, 0.25, 4.0)
}

// VolumeGainDB maps a linear volume onto decibels of gain.
func VolumeGainDB(volume float64) float64 {
	if volume <= 0 {
		return -96
	}
	return clamp(20*math.Log10(volume), -96, 16)
}

// ApplyGain scales samples by a linear volume in place.
func ApplyGain(samples []int16, volume float64) {
	if volume == 1 {
		return
	}
	for i, s := range samples {
		v := float64(s) * volume
		samples[i] = int16(clamp(v, math.MinInt16, math.MaxInt16))
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
