package stt

import (
	"context"
	"fmt"
)

// Provider names accepted by New.
const (
	NameGoogle = "google"
	NameMock   = "mock"
)

// New builds the recognizer named by name.
func New(ctx context.Context, name string, opts ...Option) (Recognizer, error) {
	switch name {
	case NameGoogle, "":
		return NewGoogle(ctx, opts...)
	case NameMock:
		return NewMock(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
