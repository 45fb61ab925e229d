package speech

import (
	"context"
	"sync"
)

// Recorder is a Speaker that remembers what it was asked to say.
// Err, when set, is returned from every call.
type Recorder struct {
	mu    sync.Mutex
	lines []string
	Err   error
}

// Speak records text.
func (r *Recorder) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
	return r.Err
}

// Lines returns everything spoken so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Said reports whether text was spoken at least once.
func (r *Recorder) Said(text string) bool {
	for _, l := range r.Lines() {
		if l == text {
			return true
		}
	}
	return false
}

var _ Speaker = (*Recorder)(nil)
