package audioio

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"
)

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}

	chunk := ConstantChunk(0.5, 480, 16000, 1)
	if got := chunk.RMS(); math.Abs(got-0.5) > 0.001 {
		t.Errorf("RMS = %v, want ~0.5", got)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out := PCMSamples(PCMBytes(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		from    int
		to      int
		wantLen int
	}{
		{"same rate", 480, 16000, 16000, 480},
		{"downsample 48k to 16k", 4800, 48000, 16000, 1600},
		{"upsample 16k to 24k", 1600, 16000, 24000, 2400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resample(make([]int16, tt.in), tt.from, tt.to)
			if len(out) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(out), tt.wantLen)
			}
		})
	}
}

func TestDownmix(t *testing.T) {
	out := Downmix([]int16{100, 300, -50, 50}, 2)
	if len(out) != 2 || out[0] != 200 || out[1] != 0 {
		t.Errorf("Downmix = %v", out)
	}
}

func TestChunkDuration(t *testing.T) {
	c := AudioChunk{Samples: make([]int16, 1600), SampleRate: 16000, Channels: 1}
	if c.Duration() != 100*time.Millisecond {
		t.Errorf("Duration = %v", c.Duration())
	}
}

func TestMockSourceReadsQueueThenBlocks(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg)
	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	src.QueueLevel(0.1, 2)
	for i := 0; i < 2; i++ {
		if _, err := src.Read(ctx); err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
	}

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := src.Read(tctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded on empty queue, got %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := src.Read(ctx)
		done <- err
	}()
	src.Stop()
	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF after Stop, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Stop")
	}
}

func TestMockPlayerRecords(t *testing.T) {
	p := NewMockPlayer()
	if err := p.Play(context.Background(), make([]int16, 100), 24000, 1); err != nil {
		t.Fatalf("Play: %v", err)
	}
	plays := p.Plays()
	if len(plays) != 1 || plays[0].Samples != 100 || plays[0].SampleRate != 24000 {
		t.Errorf("unexpected plays: %+v", plays)
	}
}

func TestArgs(t *testing.T) {
	cfg := DefaultConfig()
	args := arecordArgs(cfg)
	if args[2] != "default" {
		t.Errorf("expected default device, got %v", args)
	}
	pargs := aplayArgs("plughw:1,0", 22050, 1)
	if pargs[len(pargs)-1] != "-" {
		t.Errorf("aplay should read stdin: %v", pargs)
	}
}
