package stt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpeech is returned when the audio contained nothing recognizable.
	ErrNoSpeech = errors.New("stt: no speech detected")

	// ErrUnavailable is returned when the recognition service cannot be reached.
	ErrUnavailable = errors.New("stt: recognition service unavailable")

	// ErrUnknownProvider is returned for an unrecognised provider name.
	ErrUnknownProvider = errors.New("stt: unknown provider")
)

// ServiceError wraps a transport or API failure. It matches ErrUnavailable.
type ServiceError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports ErrUnavailable.
func (e *ServiceError) Is(target error) bool {
	return target == ErrUnavailable
}
