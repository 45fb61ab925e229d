// Package settings loads, validates and watches the runtime options file
// shared by the dashboard and the detection process.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/teslashibe/go-blindaid/pkg/distance"
	"gopkg.in/yaml.v3"
)

// Settings is the recognized option set.
type Settings struct {
	// Speech delivery
	TTSRate         int     `json:"tts_rate" yaml:"tts_rate"`
	TTSVolume       float64 `json:"tts_volume" yaml:"tts_volume"`
	CooldownSeconds float64 `json:"cooldown_seconds" yaml:"cooldown_seconds"`
	TTSProvider     string  `json:"tts_provider" yaml:"tts_provider"`
	Language        string  `json:"language" yaml:"language"`

	// Detection
	AlertDistanceCM     int        `json:"alert_distance_cm" yaml:"alert_distance_cm"`
	CameraIndex         int        `json:"camera_index" yaml:"camera_index"`
	CameraMaxFailures   int        `json:"camera_max_failures" yaml:"camera_max_failures"`
	ModelPath           string     `json:"model_path" yaml:"model_path"`
	ModelInputSize      int        `json:"model_input_size" yaml:"model_input_size"`
	ConfidenceThreshold float64    `json:"confidence_threshold" yaml:"confidence_threshold"`
	CenterZone          [2]float64 `json:"center_zone" yaml:"center_zone"`
	CalibrationFile     string     `json:"calibration_file" yaml:"calibration_file"`
	ShowWindow          bool       `json:"show_window" yaml:"show_window"`

	// Voice commands
	STTProvider            string  `json:"stt_provider" yaml:"stt_provider"`
	PhraseTimeLimitSeconds float64 `json:"phrase_time_limit_seconds" yaml:"phrase_time_limit_seconds"`

	// Operations
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
}

// Accepted provider names.
var (
	TTSProviders = []string{"auto", "google", "openai", "espeak", "mock"}
	STTProviders = []string{"google", "mock"}
)

// Default returns the settings used when the file is missing or silent.
func Default() Settings {
	return Settings{
		TTSRate:                150,
		TTSVolume:              1.0,
		CooldownSeconds:        2.0,
		TTSProvider:            "auto",
		Language:               "en-US",
		AlertDistanceCM:        500,
		CameraIndex:            0,
		ModelPath:              "models/yolov10n.onnx",
		ModelInputSize:         640,
		ConfidenceThreshold:    0.5,
		CenterZone:             [2]float64{distance.DefaultZone.Left, distance.DefaultZone.Right},
		CalibrationFile:        "calibration.json",
		ShowWindow:             true,
		STTProvider:            "google",
		PhraseTimeLimitSeconds: 4,
		MetricsAddr:            ":9109",
		LogLevel:               "info",
	}
}

// Validate reports every out-of-range option.
func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.TTSRate >= 100 && s.TTSRate <= 200, "tts_rate must be 100-200, got %d", s.TTSRate)
	check(s.TTSVolume >= 0.1 && s.TTSVolume <= 1.0, "tts_volume must be 0.1-1.0, got %v", s.TTSVolume)
	check(s.AlertDistanceCM >= 50 && s.AlertDistanceCM <= 1000, "alert_distance_cm must be 50-1000, got %d", s.AlertDistanceCM)
	check(s.CooldownSeconds >= 1 && s.CooldownSeconds <= 5, "cooldown_seconds must be 1-5, got %v", s.CooldownSeconds)
	check(s.CameraIndex >= 0, "camera_index must not be negative, got %d", s.CameraIndex)
	check(s.CameraMaxFailures >= 0, "camera_max_failures must not be negative, got %d", s.CameraMaxFailures)
	check(s.ModelInputSize > 0 && s.ModelInputSize%32 == 0, "model_input_size must be a positive multiple of 32, got %d", s.ModelInputSize)
	check(s.ConfidenceThreshold > 0 && s.ConfidenceThreshold < 1, "confidence_threshold must be in (0, 1), got %v", s.ConfidenceThreshold)
	check(s.Zone().Valid(), "center_zone must satisfy 0 <= left < right <= 1, got %v", s.CenterZone)
	check(s.PhraseTimeLimitSeconds > 0, "phrase_time_limit_seconds must be positive, got %v", s.PhraseTimeLimitSeconds)
	check(slices.Contains(TTSProviders, s.TTSProvider), "tts_provider must be one of %v, got %q", TTSProviders, s.TTSProvider)
	check(slices.Contains(STTProviders, s.STTProvider), "stt_provider must be one of %v, got %q", STTProviders, s.STTProvider)
	check(s.ModelPath != "", "model_path is required")
	check(s.CalibrationFile != "", "calibration_file is required")

	return errors.Join(errs...)
}

// Cooldown returns the speech cooldown.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.CooldownSeconds * float64(time.Second))
}

// PhraseTimeLimit returns the maximum length of one voice command.
func (s Settings) PhraseTimeLimit() time.Duration {
	return time.Duration(s.PhraseTimeLimitSeconds * float64(time.Second))
}

// Zone returns the center band as a distance.Zone.
func (s Settings) Zone() distance.Zone {
	return distance.Zone{Left: s.CenterZone[0], Right: s.CenterZone[1]}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads path over the defaults. A missing file yields the defaults.
// The format follows the extension: .yaml/.yml for YAML, JSON otherwise.
// Files written by older dashboards use alert_distance and cooldown_time;
// those keys are honoured when the current ones are absent.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	if isYAML(path) {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", path, err)
		}
		return s, nil
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := applyLegacy(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func applyLegacy(data []byte, s *Settings) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["alert_distance"]; ok {
		if _, set := raw["alert_distance_cm"]; !set {
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("alert_distance: %w", err)
			}
			s.AlertDistanceCM = int(math.Round(f))
		}
	}
	if v, ok := raw["cooldown_time"]; ok {
		if _, set := raw["cooldown_seconds"]; !set {
			if err := json.Unmarshal(v, &s.CooldownSeconds); err != nil {
				return fmt.Errorf("cooldown_time: %w", err)
			}
		}
	}
	return nil
}

// Save writes s to path atomically, in the format chosen by extension.
func Save(path string, s Settings) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
