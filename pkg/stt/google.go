package stt

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-blindaid/internal/gcloud"
	"github.com/teslashibe/go-blindaid/pkg/audioio"
	speech "google.golang.org/api/speech/v1"
)

const providerGoogle = "google"

// Google recognizes phrases with the Cloud Speech-to-Text v1 REST API.
type Google struct {
	config *Config
	svc    *speech.Service
	logger *slog.Logger
}

// NewGoogle creates a Google recognizer.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	clientOpts, err := gcloud.ClientOptions(ctx, cfg.APIKey)
	if err != nil {
		return nil, &ServiceError{Provider: providerGoogle, Err: err}
	}
	svc, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, &ServiceError{Provider: providerGoogle, Err: fmt.Errorf("create service: %w", err)}
	}

	return &Google{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Recognize sends the phrase as LINEAR16 and returns the top alternative.
func (g *Google) Recognize(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", ErrNoSpeech
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   int64(sampleRate),
			AudioChannelCount: 1,
			LanguageCode:      g.config.Language,
			Model:             g.config.Model,
			MaxAlternatives:   1,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audioio.PCMBytes(samples)),
		},
	}

	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", &ServiceError{Provider: providerGoogle, Err: err}
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoSpeech
	}

	text := normalize(strings.Join(parts, " "))
	g.logger.Debug("recognized", "text", text, "latency_ms", time.Since(start).Milliseconds())
	return text, nil
}

// Close releases resources.
func (g *Google) Close() error {
	return nil
}

var _ Recognizer = (*Google)(nil)
