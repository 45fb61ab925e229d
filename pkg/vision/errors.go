package vision

import "errors"

// Sentinel errors for camera and detector failures.
var (
	// ErrNoFrame is returned when the camera produced no frame this time.
	// It is transient; the next Read may succeed.
	ErrNoFrame = errors.New("vision: no frame available")

	// ErrCameraClosed is returned when the device is unavailable for good.
	ErrCameraClosed = errors.New("vision: camera closed")

	// ErrModelNotFound is returned when the detection model file is missing.
	ErrModelNotFound = errors.New("vision: model file not found")
)
