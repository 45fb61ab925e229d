package calibration

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestFileStoreMissingFileIsUncalibrated(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "calibration.json"))

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.IsSet() {
		t.Errorf("expected unset K, got %v", rec.Value())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calibration.json")
	s := NewFileStore(path)

	if err := s.Save(Record{K: ptr(30000)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !rec.IsSet() || rec.Value() != 30000 {
		t.Errorf("expected K=30000, got %+v", rec)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not survive a save")
	}
}

func TestFileStoreFormat(t *testing.T) {
	dir := t.TempDir()

	t.Run("null K is written explicitly", func(t *testing.T) {
		path := filepath.Join(dir, "null.json")
		if err := NewFileStore(path).Save(Record{}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), `"K": null`) {
			t.Errorf("unexpected file contents %s", data)
		}
	})

	t.Run("reads a hand-written file", func(t *testing.T) {
		path := filepath.Join(dir, "hand.json")
		if err := os.WriteFile(path, []byte(`{"K": 98765.5}`), 0o644); err != nil {
			t.Fatal(err)
		}
		rec, err := NewFileStore(path).Load()
		if err != nil || rec.Value() != 98765.5 {
			t.Errorf("got %+v, %v", rec, err)
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte(`{"K":`), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFileStore(path).Load(); err == nil {
			t.Error("expected parse error")
		}
	})
}

type failingStore struct {
	rec Record
	err error
}

func (f *failingStore) Load() (Record, error) { return f.rec, nil }
func (f *failingStore) Save(Record) error     { return f.err }

func TestCalibrationCommitAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	c, err := Open(NewFileStore(path))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.K() != nil {
		t.Fatal("expected uncalibrated")
	}

	if err := c.Commit(42000); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if k := c.K(); k == nil || *k != 42000 {
		t.Fatalf("expected K=42000, got %v", k)
	}

	reopened, err := Open(NewFileStore(path))
	if err != nil {
		t.Fatal(err)
	}
	if k := reopened.K(); k == nil || *k != 42000 {
		t.Errorf("commit should persist immediately, reloaded %v", k)
	}

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.K() != nil {
		t.Error("expected K cleared")
	}
	reopened, _ = Open(NewFileStore(path))
	if reopened.K() != nil {
		t.Error("reset should persist")
	}
}

func TestCalibrationKIsACopy(t *testing.T) {
	c, _ := Open(&failingStore{rec: Record{K: ptr(10)}})
	k := c.K()
	*k = 99
	if *c.K() != 10 {
		t.Error("callers must not be able to mutate the stored K")
	}
}

func TestCalibrationCommitRejects(t *testing.T) {
	saveErr := errors.New("disk full")
	c, _ := Open(&failingStore{rec: Record{K: ptr(10)}, err: saveErr})

	if err := c.Commit(-5); !errors.Is(err, ErrInvalidK) {
		t.Errorf("expected ErrInvalidK, got %v", err)
	}
	if err := c.Commit(500); !errors.Is(err, saveErr) {
		t.Errorf("expected save error, got %v", err)
	}
	if *c.K() != 10 {
		t.Error("failed save must leave memory unchanged")
	}
}

func TestFileStoreRejectsInvalidK(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative", `{"K": -5}`},
		{"zero", `{"K": 0}`},
		{"negative zero", `{"K": -0.0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "calibration.json")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewFileStore(path).Load(); !errors.Is(err, ErrInvalidK) {
				t.Errorf("expected ErrInvalidK, got %v", err)
			}
			if _, err := Open(NewFileStore(path)); !errors.Is(err, ErrInvalidK) {
				t.Errorf("Open should surface ErrInvalidK, got %v", err)
			}
		})
	}
}

func TestValidK(t *testing.T) {
	for _, k := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, 0} {
		if err := validK(k); !errors.Is(err, ErrInvalidK) {
			t.Errorf("validK(%v) = %v, want ErrInvalidK", k, err)
		}
	}
	if err := validK(30000); err != nil {
		t.Errorf("validK(30000) = %v", err)
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"150", 150, false},
		{" 72.5 ", 72.5, false},
		{"0", 0, true},
		{"-10", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistance(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDistance) {
					t.Errorf("expected ErrInvalidDistance, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("got %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}
