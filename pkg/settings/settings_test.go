package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-blindaid/internal/log"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if s.Cooldown() != 2*time.Second {
		t.Errorf("expected 2s cooldown, got %v", s.Cooldown())
	}
	if s.PhraseTimeLimit() != 4*time.Second {
		t.Errorf("expected 4s phrase limit, got %v", s.PhraseTimeLimit())
	}
	if z := s.Zone(); z.Left <= 0.33 || z.Right >= 0.67 {
		t.Errorf("expected middle third, got %+v", z)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"rate too slow", func(s *Settings) { s.TTSRate = 99 }, "tts_rate"},
		{"rate too fast", func(s *Settings) { s.TTSRate = 201 }, "tts_rate"},
		{"volume too low", func(s *Settings) { s.TTSVolume = 0.05 }, "tts_volume"},
		{"alert too near", func(s *Settings) { s.AlertDistanceCM = 49 }, "alert_distance_cm"},
		{"alert too far", func(s *Settings) { s.AlertDistanceCM = 1001 }, "alert_distance_cm"},
		{"cooldown too short", func(s *Settings) { s.CooldownSeconds = 0.5 }, "cooldown_seconds"},
		{"negative camera", func(s *Settings) { s.CameraIndex = -1 }, "camera_index"},
		{"inverted zone", func(s *Settings) { s.CenterZone = [2]float64{0.7, 0.3} }, "center_zone"},
		{"odd input size", func(s *Settings) { s.ModelInputSize = 500 }, "model_input_size"},
		{"unknown tts", func(s *Settings) { s.TTSProvider = "festival" }, "tts_provider"},
		{"unknown stt", func(s *Settings) { s.STTProvider = "whisper" }, "stt_provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected an error naming %s, got %v", tt.field, err)
			}
		})
	}

	t.Run("boundaries are inclusive", func(t *testing.T) {
		s := Default()
		s.TTSRate, s.TTSVolume, s.AlertDistanceCM, s.CooldownSeconds = 100, 0.1, 1000, 5
		if err := s.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("all problems are reported", func(t *testing.T) {
		s := Default()
		s.TTSRate = 0
		s.CooldownSeconds = 0
		msg := s.Validate().Error()
		if !strings.Contains(msg, "tts_rate") || !strings.Contains(msg, "cooldown_seconds") {
			t.Errorf("expected both fields, got %q", msg)
		}
	})
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "ui_config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if s != Default() {
		t.Errorf("expected defaults, got %+v", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"ui_config.json", "blindaid.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := Default()
			want.TTSRate = 180
			want.AlertDistanceCM = 250
			want.CooldownSeconds = 3.5
			want.CenterZone = [2]float64{0.25, 0.75}
			want.ShowWindow = false

			if err := Save(path, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != want {
				t.Errorf("got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_config.json")
	if err := os.WriteFile(path, []byte(`{"tts_rate": 120, "camera_index": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.TTSRate != 120 || s.CameraIndex != 1 {
		t.Errorf("file values not applied: %+v", s)
	}
	if s.AlertDistanceCM != 500 || s.ModelPath != "models/yolov10n.onnx" {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blindaid.yml")
	body := "alert_distance_cm: 300\ntts_provider: espeak\ncenter_zone: [0.4, 0.6]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.AlertDistanceCM != 300 || s.TTSProvider != "espeak" || s.CenterZone != [2]float64{0.4, 0.6} {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestLoadLegacyKeys(t *testing.T) {
	dir := t.TempDir()

	t.Run("old dashboard file", func(t *testing.T) {
		path := filepath.Join(dir, "old.json")
		body := `{"tts_rate": 150, "tts_volume": 1.0, "alert_distance": 350, "cooldown_time": 3.0, "camera_index": 0}`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		s, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if s.AlertDistanceCM != 350 || s.CooldownSeconds != 3.0 {
			t.Errorf("legacy keys ignored: %+v", s)
		}
	})

	t.Run("current keys win", func(t *testing.T) {
		path := filepath.Join(dir, "both.json")
		body := `{"alert_distance": 350, "alert_distance_cm": 700}`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		s, _ := Load(path)
		if s.AlertDistanceCM != 700 {
			t.Errorf("expected 700, got %d", s.AlertDistanceCM)
		}
	})
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_config.json")
	if err := os.WriteFile(path, []byte(`{"tts_rate": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ui_config.json")
	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Settings, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, log.Discard(), func(s Settings) { got <- s })
	}()

	want := Default()
	want.AlertDistanceCM = 200

	// The watcher may not be registered yet; keep saving until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case s := <-got:
			if s.AlertDistanceCM != 200 {
				t.Fatalf("expected reloaded alert distance 200, got %d", s.AlertDistanceCM)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			if err := Save(path, want); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatchSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ui_config.json")

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	called := make(chan struct{}, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		bad := Default()
		bad.TTSRate = 10
		_ = Save(path, bad)
	}()

	_ = Watch(ctx, path, log.Discard(), func(Settings) { called <- struct{}{} })

	select {
	case <-called:
		t.Error("invalid settings must not be delivered")
	default:
	}
}
