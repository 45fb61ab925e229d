package audioio

import "context"

// Player plays PCM16 audio through a speaker.
type Player interface {
	// Play blocks until the audio has finished playing or ctx is done.
	Play(ctx context.Context, samples []int16, sampleRate, channels int) error

	// Name returns the backend name.
	Name() string

	// Close releases resources.
	Close() error
}
