package calibration

import "errors"

var (
	// ErrAborted marks a session that ended with no samples.
	ErrAborted = errors.New("calibration: aborted without samples")

	// ErrNoObject is returned when a capture found nothing.
	ErrNoObject = errors.New("calibration: no object detected")

	// ErrNoCenteredObject is returned when no object is near the frame center.
	ErrNoCenteredObject = errors.New("calibration: no object near center")

	// ErrInvalidDistance is returned for a non-positive or non-numeric distance.
	ErrInvalidDistance = errors.New("calibration: distance must be a positive number")

	// ErrInvalidK is returned when committing or loading a constant that is
	// not a finite positive number.
	ErrInvalidK = errors.New("calibration: K must be positive")

	// ErrNoKeyInput is returned when the display cannot deliver the capture
	// and quit keys.
	ErrNoKeyInput = errors.New("calibration: display cannot receive key presses")
)
