package main

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-blindaid/internal/config"
	"github.com/teslashibe/go-blindaid/pkg/assist"
	"github.com/teslashibe/go-blindaid/pkg/settings"
	"github.com/teslashibe/go-blindaid/pkg/stt"
	"github.com/teslashibe/go-blindaid/pkg/tts"
	"github.com/teslashibe/go-blindaid/pkg/tts/oggopus"
	"github.com/teslashibe/go-blindaid/pkg/vision/opencv"
)

// frameRetryDelay paces retries after a failed camera read.
const frameRetryDelay = 50 * time.Millisecond

func logLevel(st settings.Settings) string {
	if debug {
		return "debug"
	}
	return st.LogLevel
}

func ttsCredentials() tts.Credentials {
	return tts.Credentials{
		GoogleAPIKey: config.GoogleAPIKey(),
		UseGoogleADC: config.GoogleCredentialsFile() != "",
		OpenAIAPIKey: config.OpenAIKey(),
	}
}

func ttsOptions(st settings.Settings, logger *slog.Logger) []tts.Option {
	return []tts.Option{
		tts.WithRate(st.TTSRate),
		tts.WithVolume(st.TTSVolume),
		tts.WithLanguage(st.Language),
		tts.WithOpusDecoder(oggopus.Decode),
		tts.WithLogger(logger),
	}
}

func sttOptions(st settings.Settings, logger *slog.Logger) []stt.Option {
	return []stt.Option{
		stt.WithAPIKey(config.GoogleAPIKey()),
		stt.WithLanguage(st.Language),
		stt.WithLogger(logger),
	}
}

func yoloConfig(st settings.Settings) opencv.YOLOConfig {
	cfg := opencv.DefaultYOLOConfig()
	cfg.ModelPath = st.ModelPath
	cfg.InputSize = st.ModelInputSize
	cfg.ConfidenceThresh = float32(st.ConfidenceThreshold)
	return cfg
}

func assistConfig(st settings.Settings) assist.Config {
	cfg := assist.DefaultConfig()
	cfg.AlertDistanceCM = st.AlertDistanceCM
	cfg.Zone = st.Zone()
	cfg.CameraMaxFailures = st.CameraMaxFailures
	cfg.FrameRetryDelay = frameRetryDelay
	return cfg
}
