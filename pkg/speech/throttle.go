// Package speech speaks short announcements without flooding the user.
//
// A Throttle drops requests that arrive within the cooldown of the last
// completed utterance. Speaking blocks until playback has finished, and
// concurrent callers are serialized.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/teslashibe/go-blindaid/pkg/audioio"
	"github.com/teslashibe/go-blindaid/pkg/tts"
)

// Defaults.
const (
	DefaultCooldown = 2 * time.Second
	DefaultBuffer   = 300 * time.Millisecond
)

// Speaker is anything that can say a line of text.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Throttle is a cooldown-gated Speaker.
type Throttle struct {
	synth  tts.Provider
	player audioio.Player
	clock  clock.Clock
	logger *slog.Logger
	buffer time.Duration
	onDone func(text string, err error)

	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(t *Throttle) { t.clock = c }
}

// WithCooldown sets the minimum gap between utterances.
func WithCooldown(d time.Duration) Option {
	return func(t *Throttle) { t.cooldown = d }
}

// WithBuffer sets the pause after playback before the timestamp is taken.
func WithBuffer(d time.Duration) Option {
	return func(t *Throttle) { t.buffer = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Throttle) { t.logger = logger }
}

// WithObserver registers a callback run after every Speak with its outcome.
func WithObserver(fn func(text string, err error)) Option {
	return func(t *Throttle) { t.onDone = fn }
}

// NewThrottle creates a throttled speaker over a synthesizer and a player.
func NewThrottle(synth tts.Provider, player audioio.Player, opts ...Option) *Throttle {
	t := &Throttle{
		synth:    synth,
		player:   player,
		clock:    clock.New(),
		logger:   slog.Default(),
		buffer:   DefaultBuffer,
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "speech.throttle")
	return t
}

// Speak synthesizes and plays text unless the cooldown has not elapsed.
// The timestamp only moves forward on success.
func (t *Throttle) Speak(ctx context.Context, text string) error {
	err := t.speak(ctx, text)
	if t.onDone != nil {
		t.onDone(text, err)
	}
	return err
}

func (t *Throttle) speak(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.cooldown {
		t.logger.Debug("throttled", "text", text, "since_last", now.Sub(t.last))
		return ErrThrottled
	}

	result, err := t.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	if err := t.player.Play(ctx, result.Samples, result.SampleRate, result.Channels); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	t.logger.Info("speak", "text", text, "provider", result.Provider, "latency_ms", result.LatencyMs)

	if t.buffer > 0 {
		timer := t.clock.Timer(t.buffer)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	t.last = t.clock.Now()
	return nil
}

// SetCooldown changes the cooldown for subsequent requests.
func (t *Throttle) SetCooldown(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cooldown = d
}

// Cooldown returns the current cooldown.
func (t *Throttle) Cooldown() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooldown
}

// LastSpoken returns when the last utterance completed, zero if never.
func (t *Throttle) LastSpoken() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Say speaks text and logs instead of returning failures. Throttling is
// expected and only logged at debug.
func Say(ctx context.Context, sp Speaker, logger *slog.Logger, text string) {
	err := sp.Speak(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, ErrThrottled):
		logger.Debug("speech dropped", "text", text)
	default:
		logger.Warn("speech failed", "text", text, "error", err)
	}
}

var _ Speaker = (*Throttle)(nil)
