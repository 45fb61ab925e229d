// Package tts provides a unified interface for text-to-speech providers.
//
// Providers return decoded PCM16 so the caller can hand the result straight
// to a speaker. Google Cloud Text-to-Speech is the primary backend, OpenAI
// the online fallback and espeak-ng the offline one. A Chain tries them in
// order.
//
// Example usage:
//
//	google, _ := tts.NewGoogle(ctx, tts.WithAPIKey(key), tts.WithRate(150))
//	espeak, _ := tts.NewEspeak(tts.WithRate(150))
//	chain, _ := tts.NewChain(google, espeak)
//	defer chain.Close()
//
//	result, _ := chain.Synthesize(ctx, "person 120 centimeters ahead")
//	// result.Samples holds mono PCM16 at result.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to decoded audio.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks that the provider can be used.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Samples holds interleaved PCM16.
	Samples []int16

	// SampleRate in Hz.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis round trip in milliseconds.
	LatencyMs int64

	// Provider names the backend that produced the audio.
	Provider string
}

// Duration returns the playback length.
func (r *AudioResult) Duration() time.Duration {
	if r == nil || r.SampleRate == 0 || r.Channels == 0 {
		return 0
	}
	frames := len(r.Samples) / r.Channels
	return time.Duration(frames) * time.Second / time.Duration(r.SampleRate)
}
