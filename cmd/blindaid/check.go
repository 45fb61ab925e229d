package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-blindaid/internal/log"
	"github.com/teslashibe/go-blindaid/pkg/audioio"
	"github.com/teslashibe/go-blindaid/pkg/calibration"
	"github.com/teslashibe/go-blindaid/pkg/distance"
	"github.com/teslashibe/go-blindaid/pkg/settings"
	"github.com/teslashibe/go-blindaid/pkg/stt"
	"github.com/teslashibe/go-blindaid/pkg/tts"
	"github.com/teslashibe/go-blindaid/pkg/vision"
	"github.com/teslashibe/go-blindaid/pkg/vision/opencv"
	"github.com/teslashibe/go-blindaid/pkg/voice"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Exercise one piece of hardware or one backend",
}

var checkSayCmd = &cobra.Command{
	Use:   "say [text]",
	Short: "Synthesize and play a sentence",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadChecked()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		logger := log.L()

		text := strings.Join(args, " ")
		if text == "" {
			text = "person 120 centimeters ahead"
		}

		synth, err := tts.New(ctx, st.TTSProvider, ttsCredentials(), ttsOptions(st, logger)...)
		if err != nil {
			return err
		}
		defer synth.Close()

		player, err := audioio.NewPlayer(audioio.DefaultConfig(), logger)
		if err != nil {
			return err
		}
		defer player.Close()

		res, err := synth.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples at %d Hz, %v, %d ms\n",
			res.Provider, len(res.Samples), res.SampleRate, res.Duration().Round(time.Millisecond), res.LatencyMs)
		return player.Play(ctx, res.Samples, res.SampleRate, res.Channels)
	},
}

var checkListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Transcribe phrases from the microphone until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadChecked()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		logger := log.L()
		out := cmd.OutOrStdout()

		recognizer, err := stt.New(ctx, st.STTProvider, sttOptions(st, logger)...)
		if err != nil {
			return err
		}
		defer recognizer.Close()

		source, err := audioio.NewSource(audioio.DefaultConfig(), logger)
		if err != nil {
			return err
		}
		phrases := voice.NewEnergyListener(source, voice.DefaultEnergyConfig(), logger)
		defer phrases.Close()

		if err := phrases.AdjustForAmbientNoise(ctx, voice.DefaultAmbientDuration); err != nil {
			return err
		}
		fmt.Fprintf(out, "threshold %.4f, speak now\n", phrases.Threshold())

		for ctx.Err() == nil {
			samples, rate, err := phrases.Listen(ctx, st.PhraseTimeLimit())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			text, err := recognizer.Recognize(ctx, samples, rate)
			switch {
			case errors.Is(err, stt.ErrNoSpeech):
				fmt.Fprintln(out, "(nothing recognized)")
			case err != nil:
				fmt.Fprintln(out, "error:", err)
			default:
				fmt.Fprintf(out, "%q -> %s\n", text, voice.ParseCommand(text))
			}
		}
		return nil
	},
}

var checkDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run the detector on one webcam frame and print distances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadChecked()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		calib, err := calibration.Open(calibration.NewFileStore(st.CalibrationFile))
		if err != nil {
			return err
		}
		camera, err := opencv.OpenCamera(st.CameraIndex)
		if err != nil {
			return err
		}
		defer camera.Close()
		detector, err := opencv.NewYOLO(yoloConfig(st), log.L())
		if err != nil {
			return err
		}
		defer detector.Close()

		frame, err := readFrame(cmd.Context(), camera)
		if err != nil {
			return err
		}
		boxes, err := detector.Detect(frame)
		if err != nil {
			return err
		}

		dets := distance.Measure(boxes, calib.K())
		fmt.Fprintf(out, "%d objects in %dx%d frame\n", len(dets), frame.Width(), frame.Height())
		for _, d := range dets {
			pos := distance.Classify(d.CenterX, frame.Width(), st.Zone())
			fmt.Fprintf(out, "  %-14s h=%-4d %5dcm  %s\n", d.Label, d.PixelHeight, d.DistanceCM, pos)
		}
		return nil
	},
}

func init() {
	checkCmd.AddCommand(checkSayCmd)
	checkCmd.AddCommand(checkListenCmd)
	checkCmd.AddCommand(checkDetectCmd)
	rootCmd.AddCommand(checkCmd)
}

func loadChecked() (settings.Settings, error) {
	st, err := settings.Load(settingsPath)
	if err != nil {
		return st, err
	}
	log.Init(logLevel(st))
	return st, st.Validate()
}

// readFrame retries past the empty frames cameras hand out right after
// opening.
func readFrame(ctx context.Context, camera vision.Camera) (vision.Frame, error) {
	var lastErr error
	for range 10 {
		frame, err := camera.Read()
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, vision.ErrNoFrame) {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(frameRetryDelay):
		}
	}
	return nil, lastErr
}
