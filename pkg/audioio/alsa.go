package audioio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// ALSASource captures audio by streaming raw PCM from arecord.
type ALSASource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	streamCh chan AudioChunk
	cancel   context.CancelFunc

	chunksRead atomic.Int64
	overruns   atomic.Int64
}

func newALSASource(cfg Config, logger *slog.Logger) (*ALSASource, error) {
	if _, err := exec.LookPath("arecord"); err != nil {
		return nil, fmt.Errorf("alsa source: %w", err)
	}
	return &ALSASource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.alsa_source", "device", cfg.device()),
	}, nil
}

func arecordArgs(cfg Config) []string {
	return []string{
		"-q",
		"-D", cfg.device(),
		"-f", "S16_LE",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
		"-t", "raw",
	}
}

// Start launches arecord.
func (s *ALSASource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, "arecord", arecordArgs(s.cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start arecord: %w", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.running = true
	s.streamCh = make(chan AudioChunk, 32)

	go s.captureLoop(stdout, s.streamCh)

	s.logger.Info("ALSA audio source started",
		"sample_rate", s.cfg.SampleRate,
		"channels", s.cfg.Channels,
	)
	return nil
}

func (s *ALSASource) captureLoop(r io.Reader, ch chan<- AudioChunk) {
	defer close(ch)

	buf := make([]byte, s.cfg.BufferBytes())
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			s.logger.Debug("capture ended", "error", err)
			return
		}
		chunk := AudioChunk{}
		chunk.FromBytes(buf, s.cfg.SampleRate, s.cfg.Channels)
		select {
		case ch <- chunk:
			s.chunksRead.Add(1)
		default:
			s.overruns.Add(1)
			s.logger.Debug("buffer full, dropping chunk")
		}
	}
}

// Read returns the next captured chunk.
func (s *ALSASource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.streamCh
	s.mu.Unlock()

	if ch == nil {
		return AudioChunk{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stop kills arecord.
func (s *ALSASource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.cancel()
	_ = s.cmd.Wait()

	s.logger.Info("ALSA audio source stopped",
		"chunks", s.chunksRead.Load(),
		"overruns", s.overruns.Load(),
	)
	return nil
}

// Config returns the capture configuration.
func (s *ALSASource) Config() Config { return s.cfg }

// Name returns "alsa".
func (s *ALSASource) Name() string { return "alsa" }

// Close stops capture for good.
func (s *ALSASource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.Stop()
}

// ALSAPlayer plays audio by piping raw PCM into aplay.
type ALSAPlayer struct {
	device string
	logger *slog.Logger
}

func newALSAPlayer(cfg Config, logger *slog.Logger) (*ALSAPlayer, error) {
	if _, err := exec.LookPath("aplay"); err != nil {
		return nil, fmt.Errorf("alsa player: %w", err)
	}
	return &ALSAPlayer{
		device: cfg.device(),
		logger: logger.With("component", "audioio.alsa_player", "device", cfg.device()),
	}, nil
}

func aplayArgs(device string, sampleRate, channels int) []string {
	return []string{
		"-q",
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(sampleRate),
		"-c", strconv.Itoa(channels),
		"-t", "raw",
		"-",
	}
}

// Play runs aplay until the buffer has been played.
func (p *ALSAPlayer) Play(ctx context.Context, samples []int16, sampleRate, channels int) error {
	if len(samples) == 0 {
		return nil
	}
	if channels <= 0 {
		channels = 1
	}

	cmd := exec.CommandContext(ctx, "aplay", aplayArgs(p.device, sampleRate, channels)...)
	cmd.Stdin = bytes.NewReader(PCMBytes(samples))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("aplay: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	p.logger.Debug("played audio", "samples", len(samples), "sample_rate", sampleRate)
	return nil
}

// Name returns "alsa".
func (p *ALSAPlayer) Name() string { return "alsa" }

// Close is a no-op; each Play owns its own aplay process.
func (p *ALSAPlayer) Close() error { return nil }

var (
	_ Source = (*ALSASource)(nil)
	_ Player = (*ALSAPlayer)(nil)
)
