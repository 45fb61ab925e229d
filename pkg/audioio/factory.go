package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSource creates a microphone source with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := resolve(cfg.Backend)
	logger.Info("creating audio source",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer_ms", cfg.BufferDuration.Milliseconds(),
	)

	switch backend {
	case BackendMock:
		return NewMockSource(cfg), nil
	case BackendALSA:
		return newALSASource(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// NewPlayer creates a speaker player.
func NewPlayer(cfg Config, logger *slog.Logger) (Player, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend := resolve(cfg.Backend); backend {
	case BackendMock:
		return NewMockPlayer(), nil
	case BackendALSA:
		return newALSAPlayer(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func resolve(b Backend) Backend {
	if b == BackendAuto || b == "" {
		return detectBestBackend()
	}
	return b
}

// detectBestBackend returns the best available backend for the current platform.
func detectBestBackend() Backend {
	if runtime.GOOS == "linux" {
		return BackendALSA
	}
	return BackendMock
}

// AvailableBackends returns the list of backends available on this platform.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock}
	if runtime.GOOS == "linux" {
		backends = append(backends, BackendALSA)
	}
	return backends
}
