package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/teslashibe/go-blindaid/internal/log"
	"github.com/teslashibe/go-blindaid/pkg/audioio"
	"github.com/teslashibe/go-blindaid/pkg/tts"
)

func newTestThrottle(synth tts.Provider, player audioio.Player) (*Throttle, *clock.Mock) {
	mc := clock.NewMock()
	th := NewThrottle(synth, player,
		WithClock(mc),
		WithBuffer(0),
		WithLogger(log.Discard()),
	)
	return th, mc
}

func TestThrottleCooldown(t *testing.T) {
	synth := tts.NewMock()
	player := audioio.NewMockPlayer()
	th, mc := newTestThrottle(synth, player)
	ctx := context.Background()

	steps := []struct {
		advance time.Duration
		wantErr error
	}{
		{0, nil},
		{500 * time.Millisecond, ErrThrottled},
		{1400 * time.Millisecond, ErrThrottled},
		{100 * time.Millisecond, nil}, // exactly 2s after the first
		{0, ErrThrottled},
	}

	for i, s := range steps {
		mc.Add(s.advance)
		err := th.Speak(ctx, "person 120 centimeters ahead")
		if !errors.Is(err, s.wantErr) {
			t.Fatalf("step %d: expected %v, got %v", i, s.wantErr, err)
		}
	}

	if got := len(player.Plays()); got != 2 {
		t.Errorf("expected 2 playbacks, got %d", got)
	}
	if got := synth.CallCount("Synthesize"); got != 2 {
		t.Errorf("throttled requests must not reach the synthesizer, got %d calls", got)
	}
}

func TestThrottleFailureKeepsTimestamp(t *testing.T) {
	ctx := context.Background()

	t.Run("synthesis", func(t *testing.T) {
		backendErr := errors.New("quota exceeded")
		th, _ := newTestThrottle(tts.WithError(backendErr), audioio.NewMockPlayer())

		err := th.Speak(ctx, "hello")
		if !errors.Is(err, ErrSynthesis) || !errors.Is(err, backendErr) {
			t.Fatalf("expected wrapped ErrSynthesis, got %v", err)
		}
		if !th.LastSpoken().IsZero() {
			t.Error("timestamp must not move on failure")
		}
	})

	t.Run("playback then recovery", func(t *testing.T) {
		player := audioio.NewMockPlayer()
		var fail atomic.Bool
		fail.Store(true)
		player.PlayFunc = func(ctx context.Context, samples []int16, rate, ch int) error {
			if fail.Load() {
				return errors.New("device busy")
			}
			return nil
		}
		th, _ := newTestThrottle(tts.NewMock(), player)

		if err := th.Speak(ctx, "hello"); !errors.Is(err, ErrPlayback) {
			t.Fatalf("expected ErrPlayback, got %v", err)
		}
		fail.Store(false)
		if err := th.Speak(ctx, "hello"); err != nil {
			t.Fatalf("retry right after a failure should not be throttled: %v", err)
		}
	})
}

func TestThrottleSetCooldown(t *testing.T) {
	th, mc := newTestThrottle(tts.NewMock(), audioio.NewMockPlayer())
	ctx := context.Background()

	if th.Cooldown() != DefaultCooldown {
		t.Fatalf("expected default cooldown, got %v", th.Cooldown())
	}
	if err := th.Speak(ctx, "one"); err != nil {
		t.Fatal(err)
	}

	th.SetCooldown(5 * time.Second)
	mc.Add(3 * time.Second)
	if err := th.Speak(ctx, "two"); !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected throttled under 5s cooldown, got %v", err)
	}

	th.SetCooldown(time.Second)
	if err := th.Speak(ctx, "three"); err != nil {
		t.Fatalf("expected success under 1s cooldown, got %v", err)
	}
}

func TestThrottleSerializesCallers(t *testing.T) {
	player := audioio.NewMockPlayer()
	var inFlight, maxInFlight atomic.Int32
	player.PlayFunc = func(ctx context.Context, samples []int16, rate, ch int) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	th, _ := newTestThrottle(tts.NewMock(), player)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.Speak(context.Background(), "chair") == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 {
		t.Errorf("expected exactly one utterance, got %d", ok.Load())
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("expected playback to be serialized, saw %d concurrent", maxInFlight.Load())
	}
}

func TestThrottleBufferAfterPlayback(t *testing.T) {
	th := NewThrottle(tts.NewMock(), audioio.NewMockPlayer(),
		WithBuffer(30*time.Millisecond),
		WithLogger(log.Discard()),
	)

	start := time.Now()
	if err := th.Speak(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected the post-playback pause, returned after %v", elapsed)
	}
	if th.LastSpoken().Before(start.Add(30 * time.Millisecond)) {
		t.Error("timestamp should be taken after the pause")
	}
}

func TestThrottleObserver(t *testing.T) {
	var got []error
	mc := clock.NewMock()
	th := NewThrottle(tts.NewMock(), audioio.NewMockPlayer(),
		WithClock(mc), WithBuffer(0), WithLogger(log.Discard()),
		WithObserver(func(text string, err error) { got = append(got, err) }),
	)

	_ = th.Speak(context.Background(), "a")
	_ = th.Speak(context.Background(), "b")

	if len(got) != 2 || got[0] != nil || !errors.Is(got[1], ErrThrottled) {
		t.Errorf("unexpected observations %v", got)
	}
}

func TestSaySwallowsErrors(t *testing.T) {
	rec := &Recorder{Err: errors.New("speaker unplugged")}
	Say(context.Background(), rec, log.Discard(), "System ready")

	if !rec.Said("System ready") {
		t.Error("expected the line to be attempted")
	}
}
