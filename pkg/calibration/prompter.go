package calibration

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Prompter asks the operator for the true distance to the reference object.
type Prompter interface {
	PromptDistance(ctx context.Context) (float64, error)
}

// ParseDistance parses a distance in centimeters. Only finite positive
// numbers are accepted.
func ParseDistance(s string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !(d > 0) || d > 1e6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDistance, s)
	}
	return d, nil
}

// TerminalPrompter reads the distance with an interactive terminal input.
// When In is not a terminal, as under the dashboard, it prints the title to
// Out and reads one line per prompt instead.
type TerminalPrompter struct {
	Title string
	In    io.Reader
	Out   io.Writer

	once  sync.Once
	lines chan string
}

// NewTerminalPrompter returns a prompter titled "Real distance (cm)" on
// the process's stdin and stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{Title: "Real distance (cm)", In: os.Stdin, Out: os.Stdout}
}

// PromptDistance blocks until a valid number is entered or the user aborts.
func (p *TerminalPrompter) PromptDistance(ctx context.Context) (float64, error) {
	if f, ok := p.In.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return p.promptForm(ctx)
	}
	return p.promptLine(ctx)
}

func (p *TerminalPrompter) promptForm(ctx context.Context) (float64, error) {
	var raw string
	input := huh.NewInput().
		Title(p.Title).
		Placeholder("e.g. 150").
		Value(&raw).
		Validate(func(s string) error {
			_, err := ParseDistance(s)
			return err
		})

	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, ErrAborted
		}
		return 0, err
	}
	return ParseDistance(raw)
}

// promptLine reads one line. A single reader goroutine outlives cancelled
// prompts so no input is lost between them.
func (p *TerminalPrompter) promptLine(ctx context.Context) (float64, error) {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			if p.In == nil {
				return
			}
			sc := bufio.NewScanner(p.In)
			for sc.Scan() {
				p.lines <- sc.Text()
			}
		}()
	})
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%s: ", p.Title)
	}
	select {
	case line, ok := <-p.lines:
		if !ok {
			return 0, ErrAborted
		}
		return ParseDistance(line)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ScriptedPrompter answers from a fixed list, then reports ErrAborted.
// Answers are parsed like terminal input.
type ScriptedPrompter struct {
	mu      sync.Mutex
	answers []string
	asked   int
}

// NewScriptedPrompter returns a prompter that replays answers in order.
func NewScriptedPrompter(answers ...string) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

// PromptDistance returns the next scripted answer.
func (p *ScriptedPrompter) PromptDistance(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p.answers) == 0 {
		return 0, ErrAborted
	}
	next := p.answers[0]
	p.answers = p.answers[1:]
	return ParseDistance(next)
}

// Asked returns how many times the prompter was consulted.
func (p *ScriptedPrompter) Asked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asked
}

var (
	_ Prompter = (*TerminalPrompter)(nil)
	_ Prompter = (*ScriptedPrompter)(nil)
)
