package dashboard

import "errors"

var (
	// ErrAlreadyRunning is returned when starting a detection process while
	// one is alive.
	ErrAlreadyRunning = errors.New("dashboard: detection process already running")

	// ErrNotRunning is returned when stopping with no process alive.
	ErrNotRunning = errors.New("dashboard: detection process not running")

	// ErrNoPreview is returned when no preview source is configured.
	ErrNoPreview = errors.New("dashboard: preview unavailable")
)
