package calibration

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestTerminalPrompterReadsLinesFromPipe(t *testing.T) {
	var out strings.Builder
	p := &TerminalPrompter{Title: "Real distance (cm)", In: strings.NewReader("150\nabc\n"), Out: &out}

	d, err := p.PromptDistance(context.Background())
	if err != nil || d != 150 {
		t.Fatalf("got %v, %v; want 150", d, err)
	}
	if _, err := p.PromptDistance(context.Background()); !errors.Is(err, ErrInvalidDistance) {
		t.Errorf("expected ErrInvalidDistance, got %v", err)
	}
	if _, err := p.PromptDistance(context.Background()); !errors.Is(err, ErrAborted) {
		t.Errorf("expected ErrAborted at end of input, got %v", err)
	}
	if got := strings.Count(out.String(), "Real distance (cm): "); got != 3 {
		t.Errorf("prompt printed %d times, output %q", got, out.String())
	}
}

func TestTerminalPrompterCancelKeepsInput(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := &TerminalPrompter{Title: "d", In: r}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.PromptDistance(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	go func() { _, _ = io.WriteString(w, "80\n") }()
	d, err := p.PromptDistance(context.Background())
	if err != nil || d != 80 {
		t.Errorf("got %v, %v; want 80", d, err)
	}
}
