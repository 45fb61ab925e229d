package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-blindaid/internal/log"
	"github.com/teslashibe/go-blindaid/pkg/assist"
	"github.com/teslashibe/go-blindaid/pkg/audioio"
	"github.com/teslashibe/go-blindaid/pkg/calibration"
	"github.com/teslashibe/go-blindaid/pkg/control"
	"github.com/teslashibe/go-blindaid/pkg/metrics"
	"github.com/teslashibe/go-blindaid/pkg/settings"
	"github.com/teslashibe/go-blindaid/pkg/speech"
	"github.com/teslashibe/go-blindaid/pkg/stt"
	"github.com/teslashibe/go-blindaid/pkg/tts"
	"github.com/teslashibe/go-blindaid/pkg/vision"
	"github.com/teslashibe/go-blindaid/pkg/vision/opencv"
	"github.com/teslashibe/go-blindaid/pkg/voice"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run obstacle detection with voice control",
	Long: `Open the webcam, the detection model, the speaker and the microphone and
run the detection loop until 'q' is pressed or the process is interrupted.

Detection starts idle. Say "start detection" to begin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetection(cmd.Context())
	},
}

func runDetection(ctx context.Context) error {
	st, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("settings %s: %w", settingsPath, err)
	}

	log.Init(logLevel(st))
	logger := log.L()
	logger.Info("starting blindaid",
		"settings", settingsPath,
		"alert_distance_cm", st.AlertDistanceCM,
		"cooldown_seconds", st.CooldownSeconds,
		"camera_index", st.CameraIndex,
	)

	m := metrics.New()

	calib, err := calibration.Open(calibration.NewFileStore(st.CalibrationFile))
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	m.SetCalibrationK(calib.K())

	// Vision
	camera, err := opencv.OpenCamera(st.CameraIndex)
	if err != nil {
		return err
	}
	detector, err := opencv.NewYOLO(yoloConfig(st), logger)
	if err != nil {
		camera.Close()
		return err
	}
	defer detector.Close()

	var display vision.Display = vision.NewKeylessHeadless()
	if st.ShowWindow {
		display = opencv.NewWindow()
	}

	// Speech out
	synth, err := tts.New(ctx, st.TTSProvider, ttsCredentials(), ttsOptions(st, logger)...)
	if err != nil {
		camera.Close()
		return fmt.Errorf("tts: %w", err)
	}
	defer synth.Close()

	audioCfg := audioio.DefaultConfig()
	player, err := audioio.NewPlayer(audioCfg, logger)
	if err != nil {
		camera.Close()
		return fmt.Errorf("speaker: %w", err)
	}
	defer player.Close()

	speaker := speech.NewThrottle(synth, player,
		speech.WithCooldown(st.Cooldown()),
		speech.WithLogger(logger),
		speech.WithObserver(func(_ string, err error) { m.ObserveSpeech(err) }),
	)

	// Control
	signal := control.New()
	signal.OnChange = func(s control.State) {
		logger.Info("control state", "state", s)
		m.SetDetectionActive(s == control.DetectionActive)
	}

	// Voice in. Without a microphone or recognizer the assistant still
	// runs, it just cannot be voice controlled.
	listener, closeVoice := startVoice(ctx, st, signal, speaker, m, logger)
	defer closeVoice()

	proc := &calibration.Procedure{
		Camera:      camera,
		Detector:    detector,
		Display:     display,
		Prompter:    calibration.NewTerminalPrompter(),
		Speaker:     speaker,
		Calibration: calib,
		Logger:      logger,
		RetryDelay:  frameRetryDelay,
	}

	deps := assist.Deps{
		Camera:      camera,
		Detector:    detector,
		Display:     display,
		Speaker:     speaker,
		Calibration: calib,
		Calibrator:  proc,
		Signal:      signal,
		Metrics:     m,
		Logger:      logger,
	}
	if listener != nil {
		deps.Listener = listener
	}
	loop := assist.New(deps, assistConfig(st))

	if st.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, st.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	go func() {
		err := settings.Watch(ctx, settingsPath, logger, func(s settings.Settings) {
			loop.SetAlertDistance(s.AlertDistanceCM)
			speaker.SetCooldown(s.Cooldown())
			logger.Info("settings reloaded",
				"alert_distance_cm", s.AlertDistanceCM,
				"cooldown_seconds", s.CooldownSeconds,
			)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("settings watch stopped", "error", err)
		}
	}()

	return loop.Run(ctx)
}

// startVoice builds the microphone, recognizer and listener and starts the
// listener. It returns a nil listener when any piece is unavailable.
func startVoice(ctx context.Context, st settings.Settings, signal *control.Signal, speaker speech.Speaker, m *metrics.Metrics, logger *slog.Logger) (*voice.Listener, func()) {
	recognizer, err := stt.New(ctx, st.STTProvider, sttOptions(st, logger)...)
	if err != nil {
		logger.Error("speech recognition unavailable, voice control disabled", "error", err)
		return nil, func() {}
	}

	source, err := audioio.NewSource(audioio.DefaultConfig(), logger)
	if err != nil {
		recognizer.Close()
		logger.Error("microphone unavailable, voice control disabled", "error", err)
		return nil, func() {}
	}

	phrases := voice.NewEnergyListener(source, voice.DefaultEnergyConfig(), logger)
	listener := voice.NewListener(phrases, recognizer, signal, speaker, logger)
	listener.PhraseLimit = st.PhraseTimeLimit()
	listener.OnCommand = func(cmd voice.Command, _ string) {
		m.ObserveCommand(cmd.String())
	}
	go listener.Run(ctx)

	return listener, func() {
		phrases.Close()
		recognizer.Close()
	}
}
