package vision

import "sync"

// Headless is a Display that draws nothing. Keys can be injected with Press,
// which is how tests drive the loop.
type Headless struct {
	mu      sync.Mutex
	keys    []Key
	shown   []Overlay
	closed  bool
	keyless bool
}

// NewHeadless creates an empty headless display that accepts injected keys.
func NewHeadless() *Headless {
	return &Headless{}
}

// NewKeylessHeadless creates a headless display with no key source at all,
// used when no window is shown. AcceptsKeys reports false.
func NewKeylessHeadless() *Headless {
	return &Headless{keyless: true}
}

// AcceptsKeys reports whether key presses can reach this display.
func (h *Headless) AcceptsKeys() bool {
	return !h.keyless
}

// Press queues key presses returned by subsequent Key calls, one per call.
// A keyless display ignores them.
func (h *Headless) Press(keys ...Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.keyless {
		return
	}
	h.keys = append(h.keys, keys...)
}

// Show records the overlay.
func (h *Headless) Show(_ Frame, overlay Overlay) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown = append(h.shown, overlay)
	return nil
}

// Key pops the next queued key.
func (h *Headless) Key() Key {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.keys) == 0 {
		return KeyNone
	}
	k := h.keys[0]
	h.keys = h.keys[1:]
	return k
}

// Shown returns a copy of every overlay presented so far.
func (h *Headless) Shown() []Overlay {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Overlay, len(h.shown))
	copy(out, h.shown)
	return out
}

// CloseWindow is a no-op.
func (h *Headless) CloseWindow(string) {}

// Close marks the display closed.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Closed reports whether Close was called.
func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

var (
	_ Display  = (*Headless)(nil)
	_ KeyInput = (*Headless)(nil)
)
