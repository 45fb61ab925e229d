// Package assist runs the detection loop: read a frame, find the nearest
// obstacle, announce it when it is close, draw what was seen.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/teslashibe/go-blindaid/pkg/calibration"
	"github.com/teslashibe/go-blindaid/pkg/control"
	"github.com/teslashibe/go-blindaid/pkg/distance"
	"github.com/teslashibe/go-blindaid/pkg/metrics"
	"github.com/teslashibe/go-blindaid/pkg/speech"
	"github.com/teslashibe/go-blindaid/pkg/vision"
)

// Window title, overlay prompt and spoken lifecycle messages.
const (
	WindowTitle = "BlindAid"
	IdlePrompt  = "Say 'start detection' to begin"
	MsgReady    = "System ready"
	MsgShutdown = "System shutting down"
)

// Defaults.
const (
	DefaultAlert  = 500
	DefaultRetry  = 5 * time.Millisecond
	shutdownGrace = 10 * time.Second
)

// Config tunes the loop.
type Config struct {
	// AlertDistanceCM is the announce threshold, inclusive.
	AlertDistanceCM int

	// Zone is the center band used for left/ahead/right.
	Zone distance.Zone

	// CameraMaxFailures ends the loop after this many consecutive failed
	// reads. Zero retries forever.
	CameraMaxFailures int

	// FrameRetryDelay is the pause after a failed read.
	FrameRetryDelay time.Duration
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		AlertDistanceCM: DefaultAlert,
		Zone:            distance.DefaultZone,
		FrameRetryDelay: DefaultRetry,
	}
}

// Calibrator runs one calibration session.
type Calibrator interface {
	Run(ctx context.Context) (calibration.Result, error)
}

// Stopper is the voice listener as seen by the loop.
type Stopper interface {
	Stop()
}

// Deps are the collaborators the loop drives. Listener and Metrics are
// optional.
type Deps struct {
	Camera      vision.Camera
	Detector    vision.Detector
	Display     vision.Display
	Speaker     speech.Speaker
	Calibration *calibration.Calibration
	Calibrator  Calibrator
	Signal      *control.Signal
	Listener    Stopper
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// FrameReport describes what one processed frame produced.
type FrameReport struct {
	Active       bool
	Detections   []distance.Detection
	Nearest      *distance.Detection
	Position     distance.Position
	Announcement string
	Err          error
}

// Loop is the main detection loop.
type Loop struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	alert int
}

// New builds a loop.
func New(deps Deps, cfg Config) *Loop {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Zone.Valid() {
		cfg.Zone = distance.DefaultZone
	}
	return &Loop{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With("component", "assist.loop"),
		alert:  cfg.AlertDistanceCM,
	}
}

// SetAlertDistance changes the announce threshold for subsequent frames.
func (l *Loop) SetAlertDistance(cm int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alert = cm
}

// AlertDistance returns the announce threshold.
func (l *Loop) AlertDistance() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.alert
}

// Run loops until the quit key, ctx cancellation or a camera failure. On
// the way out it stops the listener, says goodbye and releases the camera
// and display.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown(ctx)

	speech.Say(ctx, l.deps.Speaker, l.logger, MsgReady)
	l.logger.Info("detection loop started",
		"alert_distance_cm", l.AlertDistance(),
		"calibrated", l.deps.Calibration.K() != nil,
	)

	failures := 0
	for ctx.Err() == nil {
		frame, err := l.deps.Camera.Read()
		if err != nil {
			l.count(func(m *metrics.Metrics) { m.FrameFailures.Add(1) })
			if errors.Is(err, vision.ErrCameraClosed) {
				return fmt.Errorf("camera: %w", err)
			}
			failures++
			if l.cfg.CameraMaxFailures > 0 && failures >= l.cfg.CameraMaxFailures {
				return fmt.Errorf("camera: %d consecutive read failures: %w", failures, err)
			}
			sleepCtx(ctx, l.cfg.FrameRetryDelay)
			continue
		}
		failures = 0
		l.count(func(m *metrics.Metrics) { m.FramesRead.Add(1) })

		if l.deps.Signal.TakeCalibration() {
			l.calibrate(ctx)
			continue
		}

		if l.deps.Display.Key() == vision.KeyQuit {
			l.logger.Info("quit requested")
			return nil
		}

		l.ProcessFrame(ctx, frame)
	}
	return nil
}

// ProcessFrame handles one frame: prompt when idle; otherwise detect,
// announce the nearest obstacle within range and draw every box.
func (l *Loop) ProcessFrame(ctx context.Context, frame vision.Frame) FrameReport {
	active := l.deps.Signal.Active()
	l.count(func(m *metrics.Metrics) { m.SetDetectionActive(active) })

	if !active {
		l.show(frame, vision.Overlay{Title: WindowTitle, Prompt: IdlePrompt})
		return FrameReport{}
	}

	start := time.Now()
	boxes, err := l.deps.Detector.Detect(frame)
	if err != nil {
		l.logger.Warn("detect failed", "error", err)
		l.count(func(m *metrics.Metrics) { m.DetectErrors.Add(1) })
		l.show(frame, vision.Overlay{Title: WindowTitle})
		return FrameReport{Active: true, Err: err}
	}
	l.count(func(m *metrics.Metrics) {
		m.FramesProcessed.Add(1)
		m.Detections.Add(uint64(len(boxes)))
		m.UpdateDetectLatency(time.Since(start))
	})

	dets := distance.Measure(boxes, l.deps.Calibration.K())
	report := FrameReport{Active: true, Detections: dets}

	if nearest, ok := distance.Nearest(dets); ok {
		report.Nearest = &nearest
		if nearest.DistanceCM <= l.AlertDistance() {
			report.Position = distance.Classify(nearest.CenterX, frame.Width(), l.cfg.Zone)
			report.Announcement = distance.Announcement(nearest, report.Position)
			l.count(func(m *metrics.Metrics) { m.Announcements.Add(1) })
			speech.Say(ctx, l.deps.Speaker, l.logger, report.Announcement)
		}
	}

	l.show(frame, vision.Overlay{
		Title: WindowTitle,
		Boxes: lo.Map(dets, func(d distance.Detection, _ int) vision.LabeledBox {
			return vision.LabeledBox{Box: d.Box, Caption: distance.Caption(d)}
		}),
	})
	return report
}

func (l *Loop) calibrate(ctx context.Context) {
	l.logger.Info("calibration requested")
	res, err := l.deps.Calibrator.Run(ctx)
	if errors.Is(err, calibration.ErrNoKeyInput) {
		l.logger.Warn("calibration unavailable without a camera window")
		l.count(func(m *metrics.Metrics) { m.CalibrationsAborted.Add(1) })
		return
	}
	if err != nil {
		l.logger.Error("calibration failed", "error", err)
		return
	}

	switch res.Outcome {
	case calibration.Committed:
		l.count(func(m *metrics.Metrics) {
			m.CalibrationsCommitted.Add(1)
			m.SetCalibrationK(l.deps.Calibration.K())
		})
	default:
		l.count(func(m *metrics.Metrics) { m.CalibrationsAborted.Add(1) })
	}
	l.logger.Info("calibration finished", "outcome", res.Outcome, "k", res.K, "samples", len(res.Samples))
}

func (l *Loop) show(frame vision.Frame, overlay vision.Overlay) {
	if err := l.deps.Display.Show(frame, overlay); err != nil {
		l.logger.Debug("show frame", "error", err)
	}
}

func (l *Loop) shutdown(ctx context.Context) {
	if l.deps.Listener != nil {
		l.deps.Listener.Stop()
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	speech.Say(sctx, l.deps.Speaker, l.logger, MsgShutdown)

	if err := l.deps.Camera.Close(); err != nil {
		l.logger.Warn("close camera", "error", err)
	}
	if err := l.deps.Display.Close(); err != nil {
		l.logger.Warn("close display", "error", err)
	}
	l.logger.Info("detection loop stopped")
}

func (l *Loop) count(fn func(*metrics.Metrics)) {
	if l.deps.Metrics != nil {
		fn(l.deps.Metrics)
	}
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
