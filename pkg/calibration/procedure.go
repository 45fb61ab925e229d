package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/teslashibe/go-blindaid/pkg/speech"
	"github.com/teslashibe/go-blindaid/pkg/vision"
)

// Window title and on-screen prompt.
const (
	WindowTitle = "Calibration"
	Prompt      = "Calibration: Press C to capture, Q to quit"
)

// Spoken feedback.
const (
	MsgActivated     = "Calibration mode activated"
	MsgNoObject      = "No object detected"
	MsgMoveToCenter  = "Move object to center"
	MsgEnterDistance = "Enter distance in centimeters in the terminal"
	MsgCancelled     = "Calibration cancelled"
	MsgCompleted     = "Calibration completed"
	MsgNeedsWindow   = "Calibration needs the camera window"
)

// CenterTolerance is the fraction of frame width a reference object's
// center may stray from the frame center.
const CenterTolerance = 0.25

// Outcome tells how a session ended.
type Outcome int

const (
	Aborted Outcome = iota
	Committed
)

func (o Outcome) String() string {
	if o == Committed {
		return "committed"
	}
	return "aborted"
}

// Sample is one captured measurement.
type Sample struct {
	ID          string
	Label       string
	DistanceCM  float64
	PixelHeight int
	K           float64
}

// Result summarizes a finished session.
type Result struct {
	Outcome Outcome
	K       float64
	Samples []Sample
}

// Err returns ErrAborted for an aborted session, nil otherwise.
func (r Result) Err() error {
	if r.Outcome == Aborted {
		return ErrAborted
	}
	return nil
}

// Procedure runs an interactive calibration session.
type Procedure struct {
	Camera      vision.Camera
	Detector    vision.Detector
	Display     vision.Display
	Prompter    Prompter
	Speaker     speech.Speaker
	Calibration *Calibration
	Logger      *slog.Logger

	// RetryDelay is the pause after a transient frame failure.
	RetryDelay time.Duration
}

// Run loops over frames until the operator quits or ctx is done, then
// commits the mean of the collected samples. A session with no samples
// leaves the stored constant untouched. Without a display that takes key
// presses the session is refused with ErrNoKeyInput.
func (p *Procedure) Run(ctx context.Context) (Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "calibration")

	if !vision.AcceptsKeys(p.Display) {
		logger.Warn("calibration refused, no key input")
		speech.Say(ctx, p.Speaker, logger, MsgNeedsWindow)
		return Result{Outcome: Aborted}, ErrNoKeyInput
	}

	logger.Info("calibration mode")
	speech.Say(ctx, p.Speaker, logger, MsgActivated)
	defer p.Display.CloseWindow(WindowTitle)

	var samples []Sample
loop:
	for ctx.Err() == nil {
		frame, err := p.Camera.Read()
		if errors.Is(err, vision.ErrNoFrame) {
			sleepCtx(ctx, p.RetryDelay)
			continue
		}
		if err != nil {
			return Result{Outcome: Aborted, Samples: samples}, fmt.Errorf("calibration: %w", err)
		}

		if err := p.Display.Show(frame, vision.Overlay{Title: WindowTitle, Prompt: Prompt}); err != nil {
			logger.Warn("show frame", "error", err)
		}

		switch p.Display.Key() {
		case vision.KeyCapture:
			s, err := p.capture(ctx, logger, frame)
			if err != nil {
				logger.Info("capture skipped", "reason", err)
				continue
			}
			samples = append(samples, s)
			logger.Info("sample captured",
				"id", s.ID,
				"label", s.Label,
				"pixel_height", s.PixelHeight,
				"distance_cm", s.DistanceCM,
				"k", s.K,
			)
		case vision.KeyQuit:
			break loop
		}
	}

	// Finish on a fresh context so the closing line is still spoken after
	// cancellation.
	finishCtx := context.WithoutCancel(ctx)

	if len(samples) == 0 {
		speech.Say(finishCtx, p.Speaker, logger, MsgCancelled)
		logger.Info("calibration cancelled")
		return Result{Outcome: Aborted}, nil
	}

	k := Mean(samples)
	if err := p.Calibration.Commit(k); err != nil {
		return Result{Outcome: Aborted, Samples: samples}, fmt.Errorf("calibration: save: %w", err)
	}
	speech.Say(finishCtx, p.Speaker, logger, MsgCompleted)
	logger.Info("calibration saved", "k", k, "samples", len(samples))

	return Result{Outcome: Committed, K: k, Samples: samples}, nil
}

func (p *Procedure) capture(ctx context.Context, logger *slog.Logger, frame vision.Frame) (Sample, error) {
	boxes, err := p.Detector.Detect(frame)
	if err != nil {
		logger.Warn("detect failed", "error", err)
		return Sample{}, err
	}
	if len(boxes) == 0 {
		speech.Say(ctx, p.Speaker, logger, MsgNoObject)
		return Sample{}, ErrNoObject
	}

	ref, ok := SelectReference(boxes, frame.Width())
	if !ok {
		speech.Say(ctx, p.Speaker, logger, MsgMoveToCenter)
		return Sample{}, ErrNoCenteredObject
	}

	h := ref.Height()
	logger.Info("captured height", "pixel_height", h, "label", ref.Label)
	speech.Say(ctx, p.Speaker, logger, MsgEnterDistance)

	d, err := p.Prompter.PromptDistance(ctx)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		ID:          uuid.NewString(),
		Label:       ref.Label,
		DistanceCM:  d,
		PixelHeight: h,
		K:           d * float64(h),
	}, nil
}

// SelectReference picks the largest box whose center lies strictly within
// CenterTolerance of the frame width from the frame center. Boxes with no
// area never qualify. The first box wins a tie.
func SelectReference(boxes []vision.Box, frameWidth int) (vision.Box, bool) {
	limit := float64(frameWidth) * CenterTolerance
	centered := lo.Filter(boxes, func(b vision.Box, _ int) bool {
		return b.DistanceFromCenter(frameWidth) < limit && b.Area() > 0
	})
	if len(centered) == 0 {
		return vision.Box{}, false
	}
	return lo.MaxBy(centered, func(a, b vision.Box) bool {
		return a.Area() > b.Area()
	}), true
}

// Mean returns the average K of the samples, 0 for none.
func Mean(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return lo.SumBy(samples, func(s Sample) float64 { return s.K }) / float64(len(samples))
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
