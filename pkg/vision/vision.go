// Package vision defines the camera, detector and display contracts the
// assistant runs on. Implementations backed by OpenCV live in the opencv
// subpackage so the core stays free of cgo.
package vision

import "math"

// Frame is a single captured image.
type Frame interface {
	// Width returns the frame width in pixels.
	Width() int

	// Height returns the frame height in pixels.
	Height() int
}

// Camera yields frames on demand.
type Camera interface {
	// Read returns the next frame. ErrNoFrame marks a transient failure
	// that the caller may retry; ErrCameraClosed is terminal.
	Read() (Frame, error)

	// Close releases the device.
	Close() error
}

// Box is one object reported by a detector, in frame pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
	ClassID        int
	Label          string
	Confidence     float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int {
	return max(b.X2-b.X1, 0)
}

// Height returns the vertical extent of the box. This is the apparent-size
// proxy used for distance estimation.
func (b Box) Height() int {
	return max(b.Y2-b.Y1, 0)
}

// Area returns the box area in square pixels.
func (b Box) Area() int {
	return b.Width() * b.Height()
}

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float64 {
	return float64(b.X1+b.X2) / 2
}

// DistanceFromCenter returns how far the box center is from the frame's
// horizontal center, in pixels.
func (b Box) DistanceFromCenter(frameWidth int) float64 {
	return math.Abs(b.CenterX() - float64(frameWidth)/2)
}

// Detector runs an object-detection model over a frame.
type Detector interface {
	// Detect returns the objects found in the frame, in model output order.
	Detect(frame Frame) ([]Box, error)

	// Close releases model resources.
	Close() error
}

// Key is a keyboard event read from the display.
type Key rune

// Keys the assistant reacts to.
const (
	KeyNone    Key = 0
	KeyQuit    Key = 'q'
	KeyCapture Key = 'c'
)

// LabeledBox is a box drawn on the overlay with its caption.
type LabeledBox struct {
	Box
	Caption string
}

// Overlay describes what to draw over a frame.
type Overlay struct {
	// Title names the window ("BlindAid", "Calibration").
	Title string

	// Prompt is a single line of text drawn at the top left.
	Prompt string

	// Boxes are drawn with their captions above them.
	Boxes []LabeledBox
}

// Display renders frames and reports key presses.
type Display interface {
	// Show draws the overlay on the frame and presents it.
	Show(frame Frame, overlay Overlay) error

	// Key polls for a key press without blocking. KeyNone means nothing
	// was pressed.
	Key() Key

	// CloseWindow closes a single named window.
	CloseWindow(title string)

	// Close closes all windows.
	Close() error
}

// KeyInput is implemented by displays that may have no way to receive key
// presses.
type KeyInput interface {
	AcceptsKeys() bool
}

// AcceptsKeys reports whether d can deliver key presses. Displays that do
// not implement KeyInput are assumed to.
func AcceptsKeys(d Display) bool {
	if ki, ok := d.(KeyInput); ok {
		return ki.AcceptsKeys()
	}
	return true
}
