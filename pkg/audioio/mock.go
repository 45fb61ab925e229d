package audioio

import (
	"context"
	"io"
	"sync"
)

// MockSource is a scripted audio source for testing.
// Read returns queued chunks in order, then blocks until the source is
// stopped or the context ends.
type MockSource struct {
	cfg Config

	mu      sync.Mutex
	queue   []AudioChunk
	running bool
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewMockSource creates an idle mock source.
func NewMockSource(cfg Config) *MockSource {
	return &MockSource{
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Queue appends chunks to be returned by Read.
func (m *MockSource) Queue(chunks ...AudioChunk) {
	m.mu.Lock()
	m.queue = append(m.queue, chunks...)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// QueueLevel queues n chunks whose RMS is approximately level (0..1).
func (m *MockSource) QueueLevel(level float64, n int) {
	size := m.cfg.BufferSize() * m.cfg.Channels
	chunks := make([]AudioChunk, n)
	for i := range chunks {
		chunks[i] = ConstantChunk(level, size, m.cfg.SampleRate, m.cfg.Channels)
	}
	m.Queue(chunks...)
}

// ConstantChunk builds a square-wave chunk with the given RMS level.
func ConstantChunk(level float64, size, sampleRate, channels int) AudioChunk {
	v := int16(level * 32767)
	samples := make([]int16, size)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = v
		} else {
			samples[i] = -v
		}
	}
	return AudioChunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// Pending returns the number of queued chunks not yet read.
func (m *MockSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Start marks the source running.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Stop unblocks pending reads; they return io.EOF.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopped)
	return nil
}

// Read pops the next queued chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			chunk := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return chunk, nil
		}
		stopped := m.stopped
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return AudioChunk{}, ctx.Err()
		case <-stopped:
			return AudioChunk{}, io.EOF
		case <-m.wake:
		}
	}
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSource) Name() string { return "mock" }

// Close stops the source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Stop()
}

// Playback records one Play call.
type Playback struct {
	Samples    int
	SampleRate int
	Channels   int
}

// MockPlayer records playback without producing sound.
type MockPlayer struct {
	// PlayFunc, if set, replaces the default (record and return nil).
	PlayFunc func(ctx context.Context, samples []int16, sampleRate, channels int) error

	mu    sync.Mutex
	plays []Playback
}

// NewMockPlayer creates a mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records the call.
func (m *MockPlayer) Play(ctx context.Context, samples []int16, sampleRate, channels int) error {
	m.mu.Lock()
	m.plays = append(m.plays, Playback{Samples: len(samples), SampleRate: sampleRate, Channels: channels})
	m.mu.Unlock()

	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, samples, sampleRate, channels)
	}
	return nil
}

// Plays returns all recorded calls.
func (m *MockPlayer) Plays() []Playback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Playback, len(m.plays))
	copy(out, m.plays)
	return out
}

// Name returns "mock".
func (m *MockPlayer) Name() string { return "mock" }

// Close is a no-op.
func (m *MockPlayer) Close() error { return nil }

var (
	_ Source = (*MockSource)(nil)
	_ Player = (*MockPlayer)(nil)
)
