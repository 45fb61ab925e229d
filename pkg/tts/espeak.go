package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const providerEspeak = "espeak"

// espeakBinaries are tried in order.
var espeakBinaries = []string{"espeak-ng", "espeak"}

// Espeak implements Provider by running espeak-ng locally. It needs no
// network and is the last link of the default chain.
type Espeak struct {
	config *Config
	binary string
	logger *slog.Logger
}

// NewEspeak locates an espeak binary on PATH.
func NewEspeak(opts ...Option) (*Espeak, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = ""
	cfg.Apply(opts...)

	var binary string
	for _, name := range espeakBinaries {
		if path, err := exec.LookPath(name); err == nil {
			binary = path
			break
		}
	}
	if binary == "" {
		return nil, WrapError(providerEspeak, ErrProviderUnavailable)
	}

	return &Espeak{
		config: cfg,
		binary: binary,
		logger: cfg.Logger.With("component", "tts.espeak"),
	}, nil
}

// Synthesize renders text to WAV on stdout and decodes it.
func (e *Espeak) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerEspeak, ErrEmptyText)
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, espeakArgs(e.config, text)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, WrapError(providerEspeak, fmt.Errorf("%w: %s", err, msg))
	}

	samples, rate, channels, err := DecodeWAV(stdout.Bytes())
	if err != nil {
		return nil, WrapError(providerEspeak, err)
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio", "chars", len(text), "latency_ms", latency)

	return &AudioResult{
		Samples:    samples,
		SampleRate: rate,
		Channels:   channels,
		CharCount:  len(text),
		LatencyMs:  latency,
		Provider:   providerEspeak,
	}, nil
}

// Health checks that the binary answers --version.
func (e *Espeak) Health(ctx context.Context) error {
	return WrapError(providerEspeak, exec.CommandContext(ctx, e.binary, "--version").Run())
}

// Close is a no-op.
func (e *Espeak) Close() error {
	return nil
}

// espeakArgs maps the config onto espeak flags. Amplitude runs 0-200 with
// 100 as the default level.
func espeakArgs(cfg *Config, text string) []string {
	rate := cfg.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	amp := int(clamp(cfg.Volume*100, 0, 200))

	args := []string{"--stdout", "-s", strconv.Itoa(rate), "-a", strconv.Itoa(amp)}
	if cfg.VoiceID != "" {
		args = append(args, "-v", cfg.VoiceID)
	}
	return append(args, "--", text)
}

var _ Provider = (*Espeak)(nil)
