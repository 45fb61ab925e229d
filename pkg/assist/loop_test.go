package assist

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-blindaid/internal/log"
	"github.com/teslashibe/go-blindaid/pkg/calibration"
	"github.com/teslashibe/go-blindaid/pkg/control"
	"github.com/teslashibe/go-blindaid/pkg/distance"
	"github.com/teslashibe/go-blindaid/pkg/metrics"
	"github.com/teslashibe/go-blindaid/pkg/speech"
	"github.com/teslashibe/go-blindaid/pkg/vision"
)

type fakeCalibrator struct {
	calls  atomic.Int32
	result calibration.Result
	err    error
	onRun  func()
}

func (f *fakeCalibrator) Run(ctx context.Context) (calibration.Result, error) {
	f.calls.Add(1)
	if f.onRun != nil {
		f.onRun()
	}
	return f.result, f.err
}

type fakeListener struct{ stopped atomic.Bool }

func (f *fakeListener) Stop() { f.stopped.Store(true) }

type harness struct {
	loop       *Loop
	camera     *vision.MockCamera
	detector   *vision.MockDetector
	display    *vision.Headless
	speaker    *speech.Recorder
	signal     *control.Signal
	calib      *calibration.Calibration
	calibrator *fakeCalibrator
	listener   *fakeListener
	metrics    *metrics.Metrics
}

func newHarness(t *testing.T, k *float64, boxes ...vision.Box) *harness {
	t.Helper()
	store := calibration.NewFileStore(filepath.Join(t.TempDir(), "calibration.json"))
	if k != nil {
		if err := store.Save(calibration.Record{K: k}); err != nil {
			t.Fatal(err)
		}
	}
	calib, err := calibration.Open(store)
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		camera:     vision.NewMockCamera(640, 480),
		detector:   &vision.MockDetector{Boxes: boxes},
		display:    vision.NewHeadless(),
		speaker:    &speech.Recorder{},
		signal:     control.New(),
		calib:      calib,
		calibrator: &fakeCalibrator{},
		listener:   &fakeListener{},
		metrics:    metrics.New(),
	}
	cfg := DefaultConfig()
	cfg.FrameRetryDelay = 0
	h.loop = New(Deps{
		Camera:      h.camera,
		Detector:    h.detector,
		Display:     h.display,
		Speaker:     h.speaker,
		Calibration: h.calib,
		Calibrator:  h.calibrator,
		Signal:      h.signal,
		Listener:    h.listener,
		Metrics:     h.metrics,
		Logger:      log.Discard(),
	}, cfg)
	return h
}

func ptr(v float64) *float64 { return &v }

// box returns a box of the given height centered at cx.
func box(label string, cx, height int) vision.Box {
	return vision.Box{X1: cx - 20, Y1: 50, X2: cx + 20, Y2: 50 + height, Label: label}
}

func TestProcessFrameInactiveShowsPrompt(t *testing.T) {
	h := newHarness(t, nil, box("person", 320, 300))

	report := h.loop.ProcessFrame(t.Context(), vision.Image{W: 640, H: 480})

	if report.Active {
		t.Error("report should be inactive")
	}
	if h.detector.Calls() != 0 {
		t.Errorf("detector ran %d times while idle", h.detector.Calls())
	}
	shown := h.display.Shown()
	if len(shown) != 1 || shown[0].Prompt != IdlePrompt || shown[0].Title != WindowTitle {
		t.Errorf("shown = %+v", shown)
	}
	if len(h.speaker.Lines()) != 0 {
		t.Errorf("spoke %v while idle", h.speaker.Lines())
	}
}

func TestProcessFrameAnnouncements(t *testing.T) {
	tests := []struct {
		name     string
		k        *float64
		alert    int
		boxes    []vision.Box
		wantSay  string
		wantDist int
	}{
		{
			name:     "uncalibrated far object stays quiet",
			alert:    500,
			boxes:    []vision.Box{box("person", 320, 100)},
			wantDist: 1188,
		},
		{
			name:     "uncalibrated close object ahead",
			alert:    500,
			boxes:    []vision.Box{box("person", 320, 300)},
			wantSay:  "person 398 centimeters ahead",
			wantDist: 398,
		},
		{
			name:     "threshold is inclusive",
			k:        ptr(60000),
			alert:    600,
			boxes:    []vision.Box{box("chair", 100, 99)},
			wantSay:  "chair 600 centimeters left",
			wantDist: 600,
		},
		{
			name:  "nearest of several wins",
			alert: 500,
			boxes: []vision.Box{
				box("chair", 320, 200),
				box("door", 600, 400),
			},
			wantSay:  "door 299 centimeters right",
			wantDist: 299,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.k, tt.boxes...)
			h.loop.SetAlertDistance(tt.alert)
			h.signal.SetActive(true)

			report := h.loop.ProcessFrame(t.Context(), vision.Image{W: 640, H: 480})

			if report.Nearest == nil {
				t.Fatal("no nearest detection")
			}
			if report.Nearest.DistanceCM != tt.wantDist {
				t.Errorf("distance = %d, want %d", report.Nearest.DistanceCM, tt.wantDist)
			}
			if report.Announcement != tt.wantSay {
				t.Errorf("announcement = %q, want %q", report.Announcement, tt.wantSay)
			}

			lines := h.speaker.Lines()
			if tt.wantSay == "" {
				if len(lines) != 0 {
					t.Errorf("spoke %v", lines)
				}
			} else if !slices.Equal(lines, []string{tt.wantSay}) {
				t.Errorf("spoke %v, want %q", lines, tt.wantSay)
			}

			shown := h.display.Shown()
			if len(shown) != 1 || len(shown[0].Boxes) != len(tt.boxes) {
				t.Fatalf("shown = %+v", shown)
			}
			for i, b := range shown[0].Boxes {
				if want := distance.Caption(report.Detections[i]); b.Caption != want {
					t.Errorf("caption[%d] = %q, want %q", i, b.Caption, want)
				}
			}
		})
	}
}

func TestProcessFrameDetectError(t *testing.T) {
	h := newHarness(t, nil)
	h.signal.SetActive(true)
	boom := errors.New("boom")
	h.detector.DetectFunc = func(vision.Frame) ([]vision.Box, error) { return nil, boom }

	report := h.loop.ProcessFrame(t.Context(), vision.Image{W: 640, H: 480})

	if !errors.Is(report.Err, boom) {
		t.Errorf("err = %v, want boom", report.Err)
	}
	if h.metrics.DetectErrors.Load() != 1 {
		t.Errorf("detect errors = %d", h.metrics.DetectErrors.Load())
	}
}

func TestRunQuitKey(t *testing.T) {
	h := newHarness(t, nil, box("person", 320, 300))
	h.signal.SetActive(true)
	h.display.Press(vision.KeyNone, vision.KeyNone, vision.KeyQuit)

	if err := h.loop.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := h.speaker.Lines()
	if len(lines) < 2 || lines[0] != MsgReady || lines[len(lines)-1] != MsgShutdown {
		t.Errorf("spoken = %v", lines)
	}
	if h.detector.Calls() != 2 {
		t.Errorf("detect calls = %d, want 2", h.detector.Calls())
	}
	if h.metrics.Announcements.Load() != 2 {
		t.Errorf("announcements = %d, want 2", h.metrics.Announcements.Load())
	}
	if !h.camera.Closed() || !h.display.Closed() {
		t.Error("camera and display should be closed")
	}
	if !h.listener.stopped.Load() {
		t.Error("listener not stopped")
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := h.loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !h.speaker.Said(MsgShutdown) {
		t.Errorf("spoken = %v", h.speaker.Lines())
	}
	if !h.camera.Closed() {
		t.Error("camera not closed")
	}
}

func TestRunCalibrationRequest(t *testing.T) {
	h := newHarness(t, nil)
	h.signal.RequestCalibration()
	h.calibrator.result = calibration.Result{Outcome: calibration.Committed, K: 40000}
	h.calibrator.onRun = func() {
		if err := h.calib.Commit(40000); err != nil {
			t.Error(err)
		}
	}
	// The quit key is only polled on the frame after calibration.
	h.display.Press(vision.KeyQuit)

	if err := h.loop.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.calibrator.calls.Load() != 1 {
		t.Errorf("calibrator calls = %d", h.calibrator.calls.Load())
	}
	if h.camera.Reads() != 2 {
		t.Errorf("reads = %d, want 2", h.camera.Reads())
	}
	if h.metrics.CalibrationsCommitted.Load() != 1 {
		t.Errorf("committed = %d", h.metrics.CalibrationsCommitted.Load())
	}
	if h.signal.Active() {
		t.Error("calibration must not activate detection")
	}
}

func TestRunHeadlessCalibrationReturns(t *testing.T) {
	h := newHarness(t, ptr(7000), box("bottle", 320, 200))
	display := vision.NewKeylessHeadless()
	prompter := calibration.NewScriptedPrompter("100")
	h.loop.deps.Display = display
	h.loop.deps.Calibrator = &calibration.Procedure{
		Camera:      h.camera,
		Detector:    h.detector,
		Display:     display,
		Prompter:    prompter,
		Speaker:     h.speaker,
		Calibration: h.calib,
		Logger:      log.Discard(),
	}
	// Frames keep coming until the refusal is heard, so a session that
	// waits for a key would spin until the guard deadline.
	h.camera.ReadFunc = func(int) (vision.Frame, error) {
		if h.speaker.Said(calibration.MsgNeedsWindow) {
			return nil, vision.ErrCameraClosed
		}
		return vision.Image{W: 640, H: 480}, nil
	}
	h.signal.RequestCalibration()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	err := h.loop.Run(ctx)
	if ctx.Err() != nil {
		t.Fatal("Run only returned on the context deadline")
	}
	if !errors.Is(err, vision.ErrCameraClosed) {
		t.Fatalf("err = %v, want ErrCameraClosed", err)
	}
	if h.camera.Reads() != 2 {
		t.Errorf("reads = %d, want 2", h.camera.Reads())
	}
	if prompter.Asked() != 0 {
		t.Errorf("prompter asked %d times", prompter.Asked())
	}
	if k := h.calib.K(); k == nil || *k != 7000 {
		t.Errorf("K = %v, want 7000", k)
	}
	if h.metrics.CalibrationsAborted.Load() != 1 {
		t.Errorf("aborted = %d", h.metrics.CalibrationsAborted.Load())
	}
}

func TestRunCameraFailures(t *testing.T) {
	t.Run("transient failures up to the limit", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loop.cfg.CameraMaxFailures = 3
		h.camera.ReadFunc = func(int) (vision.Frame, error) { return nil, vision.ErrNoFrame }

		err := h.loop.Run(t.Context())
		if !errors.Is(err, vision.ErrNoFrame) {
			t.Fatalf("err = %v, want ErrNoFrame", err)
		}
		if h.camera.Reads() != 3 {
			t.Errorf("reads = %d, want 3", h.camera.Reads())
		}
		if h.metrics.FrameFailures.Load() != 3 {
			t.Errorf("failures = %d", h.metrics.FrameFailures.Load())
		}
	})

	t.Run("recovers after a transient failure", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loop.cfg.CameraMaxFailures = 2
		h.camera.ReadFunc = func(n int) (vision.Frame, error) {
			if n%2 == 0 {
				return nil, vision.ErrNoFrame
			}
			return vision.Image{W: 640, H: 480}, nil
		}
		h.display.Press(vision.KeyNone, vision.KeyNone, vision.KeyQuit)

		if err := h.loop.Run(t.Context()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if h.camera.Reads() != 6 {
			t.Errorf("reads = %d, want 6", h.camera.Reads())
		}
	})

	t.Run("closed camera ends the loop", func(t *testing.T) {
		h := newHarness(t, nil)
		h.camera.ReadFunc = func(int) (vision.Frame, error) { return nil, vision.ErrCameraClosed }

		err := h.loop.Run(t.Context())
		if !errors.Is(err, vision.ErrCameraClosed) {
			t.Fatalf("err = %v, want ErrCameraClosed", err)
		}
		if !h.speaker.Said(MsgShutdown) {
			t.Error("shutdown not announced")
		}
	})
}

func TestSetAlertDistance(t *testing.T) {
	h := newHarness(t, nil, box("person", 320, 100))
	h.signal.SetActive(true)

	h.loop.ProcessFrame(t.Context(), vision.Image{W: 640, H: 480})
	h.loop.SetAlertDistance(1200)
	h.loop.ProcessFrame(t.Context(), vision.Image{W: 640, H: 480})

	want := []string{"person 1188 centimeters ahead"}
	if got := h.speaker.Lines(); !slices.Equal(got, want) {
		t.Errorf("spoken = %v, want %v", got, want)
	}
}
