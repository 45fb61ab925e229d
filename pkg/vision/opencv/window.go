package opencv

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-blindaid/pkg/vision"
)

var (
	boxColor    = color.RGBA{G: 255}
	promptColor = color.RGBA{R: 255, G: 255}
)

// Window renders overlays into HighGUI windows, one per overlay title.
type Window struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
	last    *gocv.Window
}

// NewWindow creates an empty window set. Windows open lazily on first Show.
func NewWindow() *Window {
	return &Window{windows: make(map[string]*gocv.Window)}
}

// Show draws the overlay onto the frame in place and presents it.
func (w *Window) Show(frame vision.Frame, overlay vision.Overlay) error {
	f, ok := frame.(*Frame)
	if !ok {
		return fmt.Errorf("window: unsupported frame type %T", frame)
	}

	for _, b := range overlay.Boxes {
		gocv.Rectangle(&f.Mat, image.Rect(b.X1, b.Y1, b.X2, b.Y2), boxColor, 2)
		if b.Caption != "" {
			gocv.PutText(&f.Mat, b.Caption, image.Pt(b.X1, b.Y1-8), gocv.FontHersheySimplex, 0.6, boxColor, 2)
		}
	}
	if overlay.Prompt != "" {
		gocv.PutText(&f.Mat, overlay.Prompt, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, promptColor, 2)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	title := overlay.Title
	if title == "" {
		title = "BlindAid"
	}
	win, ok := w.windows[title]
	if !ok {
		win = gocv.NewWindow(title)
		w.windows[title] = win
	}
	w.last = win
	win.IMShow(f.Mat)
	return nil
}

// Key polls HighGUI for one millisecond.
func (w *Window) Key() vision.Key {
	w.mu.Lock()
	win := w.last
	w.mu.Unlock()

	if win == nil {
		return vision.KeyNone
	}
	k := win.WaitKey(1)
	if k < 0 {
		return vision.KeyNone
	}
	return vision.Key(k & 0xFF)
}

// CloseWindow closes the window with the given title, if open.
func (w *Window) CloseWindow(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	win, ok := w.windows[title]
	if !ok {
		return
	}
	win.Close()
	delete(w.windows, title)
	if w.last == win {
		w.last = nil
	}
}

// Close closes every window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for title, win := range w.windows {
		win.Close()
		delete(w.windows, title)
	}
	w.last = nil
	return nil
}

var _ vision.Display = (*Window)(nil)
