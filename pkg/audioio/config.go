// Package audioio provides microphone capture and blocking speaker playback.
//
// Backends:
//   - ALSA (Linux) through the arecord/aplay utilities
//   - Mock - CI/Testing without hardware
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects ALSA on Linux and the mock elsewhere.
	BackendAuto Backend = "auto"
	// BackendALSA shells out to arecord/aplay.
	BackendALSA Backend = "alsa"
	// BackendMock uses in-memory implementations for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the capture rate in Hz.
	// Default: 16000, what speech recognizers expect.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of capture channels.
	Channels int `yaml:"channels" json:"channels"`

	// BufferDuration is the size of each captured chunk.
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`

	// Device is the ALSA device name ("default", "plughw:1,0").
	// Empty means "default".
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 30 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per chunk.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a chunk in bytes (int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}

func (c *Config) device() string {
	if c.Device == "" {
		return "default"
	}
	return c.Device
}
