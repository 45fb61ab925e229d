package speech

import "errors"

var (
	// ErrThrottled is returned when a request arrives inside the cooldown.
	// The text is dropped, not queued.
	ErrThrottled = errors.New("speech: throttled")

	// ErrSynthesis wraps a text-to-speech backend failure.
	ErrSynthesis = errors.New("speech: synthesis backend failure")

	// ErrPlayback wraps a speaker failure.
	ErrPlayback = errors.New("speech: playback failure")
)
