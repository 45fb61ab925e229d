package vision

import "sync"

// Image is a frame with only dimensions. Mocks hand these out.
type Image struct {
	W, H int
}

// Width implements Frame.
func (i Image) Width() int { return i.W }

// Height implements Frame.
func (i Image) Height() int { return i.H }

// MockCamera implements Camera for testing.
// ReadFunc, when set, overrides the default of returning Frame forever.
type MockCamera struct {
	Frame    Frame
	ReadFunc func(n int) (Frame, error)

	mu     sync.Mutex
	reads  int
	closed bool
}

// NewMockCamera returns a camera that always yields a w×h frame.
func NewMockCamera(w, h int) *MockCamera {
	return &MockCamera{Frame: Image{W: w, H: h}}
}

// Read returns the next frame.
func (m *MockCamera) Read() (Frame, error) {
	m.mu.Lock()
	n := m.reads
	m.reads++
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrCameraClosed
	}
	if m.ReadFunc != nil {
		return m.ReadFunc(n)
	}
	return m.Frame, nil
}

// Reads returns how many times Read was called.
func (m *MockCamera) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Close marks the camera closed.
func (m *MockCamera) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockCamera) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockDetector implements Detector for testing.
// It returns Boxes on every call unless DetectFunc is set.
type MockDetector struct {
	Boxes      []Box
	DetectFunc func(frame Frame) ([]Box, error)

	mu    sync.Mutex
	calls int
}

// Detect returns the configured boxes.
func (m *MockDetector) Detect(frame Frame) ([]Box, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.DetectFunc != nil {
		return m.DetectFunc(frame)
	}
	out := make([]Box, len(m.Boxes))
	copy(out, m.Boxes)
	return out, nil
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *MockDetector) Close() error { return nil }

var (
	_ Camera   = (*MockCamera)(nil)
	_ Detector = (*MockDetector)(nil)
)
