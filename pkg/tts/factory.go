package tts

import (
	"context"
	"fmt"
	"log/slog"
)

// Provider names accepted by New.
const (
	NameAuto   = "auto"
	NameGoogle = "google"
	NameOpenAI = "openai"
	NameEspeak = "espeak"
	NameMock   = "mock"
)

// Credentials carries per-provider secrets. Google falls back to
// application default credentials when GoogleAPIKey is empty and
// UseGoogleADC is set.
type Credentials struct {
	GoogleAPIKey string
	UseGoogleADC bool
	OpenAIAPIKey string
}

// New builds the provider named by name. "auto" chains every provider
// that can be constructed: Google, then OpenAI, then espeak.
func New(ctx context.Context, name string, creds Credentials, opts ...Option) (Provider, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	logger := cfg.Logger

	switch name {
	case NameGoogle:
		return NewGoogle(ctx, append(opts, WithAPIKey(creds.GoogleAPIKey))...)
	case NameOpenAI:
		return NewOpenAI(append(opts, WithAPIKey(creds.OpenAIAPIKey))...)
	case NameEspeak:
		return NewEspeak(opts...)
	case NameMock:
		return NewMock(), nil
	case NameAuto, "":
		return newAuto(ctx, logger, creds, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

func newAuto(ctx context.Context, logger *slog.Logger, creds Credentials, opts []Option) (Provider, error) {
	var providers []Provider

	if creds.GoogleAPIKey != "" || creds.UseGoogleADC {
		if p, err := NewGoogle(ctx, append(opts, WithAPIKey(creds.GoogleAPIKey))...); err == nil {
			providers = append(providers, p)
		} else {
			logger.Warn("google tts unavailable", "error", err)
		}
	}
	if creds.OpenAIAPIKey != "" {
		if p, err := NewOpenAI(append(opts, WithAPIKey(creds.OpenAIAPIKey))...); err == nil {
			providers = append(providers, p)
		} else {
			logger.Warn("openai tts unavailable", "error", err)
		}
	}
	if p, err := NewEspeak(opts...); err == nil {
		providers = append(providers, p)
	} else {
		logger.Debug("espeak unavailable", "error", err)
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewChainWithLogger(logger, providers...)
}
