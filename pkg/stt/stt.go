// Package stt turns short recorded phrases into text.
//
// Recognizers take a whole phrase of mono PCM16 and return its
// transcription lower-cased, ready for command matching.
package stt

import (
	"context"
	"strings"
)

// Recognizer transcribes one phrase.
type Recognizer interface {
	// Recognize returns the lower-cased transcription of samples.
	// Silence or unintelligible audio yields ErrNoSpeech.
	Recognize(ctx context.Context, samples []int16, sampleRate int) (string, error)

	// Close releases any resources held by the recognizer.
	Close() error
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
