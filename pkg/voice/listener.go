package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-blindaid/pkg/control"
	"github.com/teslashibe/go-blindaid/pkg/speech"
	"github.com/teslashibe/go-blindaid/pkg/stt"
)

// Spoken confirmations.
const (
	MsgActivated   = "Voice control activated"
	MsgStarted     = "Detection started"
	MsgStopped     = "Detection stopped"
	MsgCalibrating = "Calibration starting"
)

// Defaults.
const (
	DefaultPhraseLimit     = 4 * time.Second
	DefaultAmbientDuration = time.Second
	DefaultErrorDelay      = 100 * time.Millisecond
)

// Listener turns phrases into control signal changes.
type Listener struct {
	phrases    PhraseListener
	recognizer stt.Recognizer
	signal     *control.Signal
	speaker    speech.Speaker
	logger     *slog.Logger

	// PhraseLimit caps one utterance.
	PhraseLimit time.Duration

	// AmbientDuration is how long background noise is sampled at startup.
	AmbientDuration time.Duration

	// ErrorDelay is the pause after a failed listen.
	ErrorDelay time.Duration

	// OnCommand, when set, sees every transcription and what it parsed to.
	OnCommand func(cmd Command, text string)

	stopped atomic.Bool
	done    chan struct{}
}

// NewListener wires a listener.
func NewListener(phrases PhraseListener, recognizer stt.Recognizer, signal *control.Signal, speaker speech.Speaker, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		phrases:         phrases,
		recognizer:      recognizer,
		signal:          signal,
		speaker:         speaker,
		logger:          logger.With("component", "voice.listener"),
		PhraseLimit:     DefaultPhraseLimit,
		AmbientDuration: DefaultAmbientDuration,
		ErrorDelay:      DefaultErrorDelay,
		done:            make(chan struct{}),
	}
}

// Run listens until Stop is called, ctx ends or the microphone closes.
// The stop flag is checked between phrases; a listen in progress is not
// interrupted. Errors are logged and never returned.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.done)

	speech.Say(ctx, l.speaker, l.logger, MsgActivated)

	if err := l.phrases.AdjustForAmbientNoise(ctx, l.AmbientDuration); err != nil {
		l.logger.Warn("ambient noise calibration failed", "error", err)
	}

	for !l.stopped.Load() && ctx.Err() == nil {
		samples, rate, err := l.phrases.Listen(ctx, l.PhraseLimit)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				break
			}
			l.logger.Warn("listen failed", "error", err)
			sleepCtx(ctx, l.ErrorDelay)
			continue
		}

		text, err := l.recognizer.Recognize(ctx, samples, rate)
		switch {
		case err == nil:
		case errors.Is(err, stt.ErrNoSpeech):
			l.logger.Debug("no speech recognized")
			continue
		case errors.Is(err, stt.ErrUnavailable):
			l.logger.Warn("recognition unavailable", "error", err)
			continue
		default:
			l.logger.Warn("recognition failed", "error", err)
			continue
		}

		l.logger.Info("voice", "text", text)
		l.Handle(ctx, text)
	}

	l.logger.Info("voice listener stopped")
}

// Handle applies the command found in text, if any.
func (l *Listener) Handle(ctx context.Context, text string) Command {
	cmd := ParseCommand(text)
	if l.OnCommand != nil {
		l.OnCommand(cmd, text)
	}

	switch cmd {
	case CommandStart:
		l.signal.SetActive(true)
		speech.Say(ctx, l.speaker, l.logger, MsgStarted)
	case CommandStop:
		l.signal.SetActive(false)
		speech.Say(ctx, l.speaker, l.logger, MsgStopped)
	case CommandCalibrate:
		l.signal.RequestCalibration()
		speech.Say(ctx, l.speaker, l.logger, MsgCalibrating)
	}
	return cmd
}

// Stop asks Run to return after the current phrase.
func (l *Listener) Stop() {
	l.stopped.Store(true)
}

// Done is closed when Run has returned.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
