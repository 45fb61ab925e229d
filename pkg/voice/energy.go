package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-blindaid/pkg/audioio"
)

// PhraseListener captures one spoken phrase at a time.
type PhraseListener interface {
	// AdjustForAmbientNoise samples background noise for d and sets the
	// speech threshold from it.
	AdjustForAmbientNoise(ctx context.Context, d time.Duration) error

	// Listen blocks until a phrase has been spoken and returns it as mono
	// PCM16 with its sample rate. limit caps the phrase length; zero means
	// no cap.
	Listen(ctx context.Context, limit time.Duration) ([]int16, int, error)
}

// EnergyConfig tunes the energy detector. Levels are normalized RMS, 0..1.
type EnergyConfig struct {
	// MinThreshold is the floor for the speech threshold.
	MinThreshold float64

	// AmbientFactor scales the measured ambient level into the threshold.
	AmbientFactor float64

	// Silence ends a phrase once this much quiet follows speech.
	Silence time.Duration

	// PreRoll keeps this much audio from before the onset.
	PreRoll time.Duration
}

// DefaultEnergyConfig returns the defaults.
func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		MinThreshold:  0.01,
		AmbientFactor: 1.5,
		Silence:       800 * time.Millisecond,
		PreRoll:       300 * time.Millisecond,
	}
}

// EnergyListener segments phrases from a microphone by loudness.
type EnergyListener struct {
	src    audioio.Source
	cfg    EnergyConfig
	logger *slog.Logger

	mu        sync.Mutex
	started   bool
	threshold float64
}

// NewEnergyListener wraps src. The source is started on first use.
func NewEnergyListener(src audioio.Source, cfg EnergyConfig, logger *slog.Logger) *EnergyListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnergyListener{
		src:       src,
		cfg:       cfg,
		logger:    logger.With("component", "voice.energy"),
		threshold: cfg.MinThreshold,
	}
}

func (l *EnergyListener) ensureStarted(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.src.Start(ctx); err != nil {
		return err
	}
	l.started = true
	return nil
}

// Threshold returns the current speech threshold.
func (l *EnergyListener) Threshold() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.threshold
}

// AdjustForAmbientNoise sets the threshold to max(MinThreshold,
// ambient*AmbientFactor).
func (l *EnergyListener) AdjustForAmbientNoise(ctx context.Context, d time.Duration) error {
	if err := l.ensureStarted(ctx); err != nil {
		return err
	}

	var total time.Duration
	var sum float64
	var n int
	for total < d {
		chunk, err := l.src.Read(ctx)
		if err != nil {
			return err
		}
		sum += chunk.RMS()
		n++
		total += chunk.Duration()
		if chunk.Duration() == 0 {
			break
		}
	}

	ambient := 0.0
	if n > 0 {
		ambient = sum / float64(n)
	}
	threshold := max(l.cfg.MinThreshold, ambient*l.cfg.AmbientFactor)

	l.mu.Lock()
	l.threshold = threshold
	l.mu.Unlock()

	l.logger.Info("ambient noise measured", "ambient_rms", ambient, "threshold", threshold)
	return nil
}

// Listen waits for energy above the threshold and records until Silence of
// quiet or the phrase limit.
func (l *EnergyListener) Listen(ctx context.Context, limit time.Duration) ([]int16, int, error) {
	if err := l.ensureStarted(ctx); err != nil {
		return nil, 0, err
	}
	threshold := l.Threshold()

	var (
		preroll  []audioio.AudioChunk
		preDur   time.Duration
		phrase   []int16
		rate     int
		speaking bool
		spoken   time.Duration
		quiet    time.Duration
	)

	for {
		chunk, err := l.src.Read(ctx)
		if err != nil {
			return nil, 0, err
		}
		rate = chunk.SampleRate
		d := chunk.Duration()
		loud := chunk.RMS() > threshold

		if !speaking {
			if !loud {
				preroll = append(preroll, chunk)
				preDur += d
				for len(preroll) > 1 && preDur > l.cfg.PreRoll {
					preDur -= preroll[0].Duration()
					preroll = preroll[1:]
				}
				continue
			}
			speaking = true
			for _, c := range preroll {
				phrase = append(phrase, audioio.Downmix(c.Samples, c.Channels)...)
			}
		}

		phrase = append(phrase, audioio.Downmix(chunk.Samples, chunk.Channels)...)
		spoken += d
		if loud {
			quiet = 0
		} else {
			quiet += d
		}

		if quiet >= l.cfg.Silence || (limit > 0 && spoken >= limit) {
			l.logger.Debug("phrase captured", "duration", spoken, "samples", len(phrase))
			return phrase, rate, nil
		}
	}
}

// Close stops the microphone.
func (l *EnergyListener) Close() error {
	return l.src.Close()
}

var _ PhraseListener = (*EnergyListener)(nil)
