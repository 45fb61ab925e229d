package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-blindaid/internal/gcloud"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

const (
	providerGoogle     = "google"
	googleSampleRate   = 24000
	googleDefaultVoice = "en-US-Standard-C"
)

// Google implements Provider for Google Cloud Text-to-Speech.
// Audio is requested as LINEAR16, which arrives wrapped in a WAV header.
type Google struct {
	config *Config
	svc    *texttospeech.Service
	logger *slog.Logger
}

// NewGoogle creates a Google Cloud TTS provider. An API key is used when
// set, application default credentials otherwise.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = googleDefaultVoice
	cfg.Apply(opts...)

	clientOpts, err := gcloud.ClientOptions(ctx, cfg.APIKey)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize converts text to PCM audio.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.Language,
			Name:         g.config.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: googleSampleRate,
			SpeakingRate:    SpeakingRate(g.config.Rate),
			VolumeGainDb:    VolumeGainDB(g.config.Volume),
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	if resp.AudioContent == "" {
		return nil, WrapError(providerGoogle, ErrNoAudio)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio content: %w", err))
	}
	samples, rate, channels, err := DecodeWAV(raw)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"samples", len(samples),
		"latency_ms", latency,
		"voice", g.config.VoiceID,
	)

	return &AudioResult{
		Samples:    samples,
		SampleRate: rate,
		Channels:   channels,
		CharCount:  len(text),
		LatencyMs:  latency,
		Provider:   providerGoogle,
	}, nil
}

// Health lists voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	_, err := g.svc.Voices.List().LanguageCode(g.config.Language).Context(ctx).Do()
	return WrapError(providerGoogle, err)
}

// Close releases resources.
func (g *Google) Close() error {
	return nil
}

var _ Provider = (*Google)(nil)
