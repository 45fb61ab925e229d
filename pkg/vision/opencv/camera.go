// Package opencv implements the vision contracts with gocv: webcam capture,
// ONNX object detection through the OpenCV DNN module, and a HighGUI
// window for the overlay.
package opencv

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-blindaid/pkg/vision"
)

// Frame is a vision.Frame backed by a gocv.Mat.
type Frame struct {
	Mat gocv.Mat
}

// Width implements vision.Frame.
func (f *Frame) Width() int { return f.Mat.Cols() }

// Height implements vision.Frame.
func (f *Frame) Height() int { return f.Mat.Rows() }

// Camera reads frames from a local capture device.
// The returned Frame reuses one buffer and is valid until the next Read.
type Camera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	buf    gocv.Mat
	index  int
	closed bool
}

// OpenCamera opens the capture device with the given index.
func OpenCamera(index int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: %w", index, vision.ErrCameraClosed)
	}
	return &Camera{
		cap:   vc,
		buf:   gocv.NewMat(),
		index: index,
	}, nil
}

// Read grabs the next frame.
func (c *Camera) Read() (vision.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, vision.ErrCameraClosed
	}
	if ok := c.cap.Read(&c.buf); !ok || c.buf.Empty() {
		return nil, vision.ErrNoFrame
	}
	return &Frame{Mat: c.buf}, nil
}

// Index returns the device index.
func (c *Camera) Index() int {
	return c.index
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.buf.Close()
	return c.cap.Close()
}

// EncodeJPEG encodes a frame for the dashboard preview.
func EncodeJPEG(frame vision.Frame) ([]byte, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("encode jpeg: unsupported frame type %T", frame)
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.Mat)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Snapshot opens the camera, grabs one frame and returns it as JPEG.
// It is used by the dashboard preview while the detector is not running.
func Snapshot(index int) ([]byte, error) {
	cam, err := OpenCamera(index)
	if err != nil {
		return nil, err
	}
	defer cam.Close()

	// The first frames after open are often empty.
	var lastErr error
	for i := 0; i < 10; i++ {
		frame, err := cam.Read()
		if err != nil {
			lastErr = err
			continue
		}
		return EncodeJPEG(frame)
	}
	return nil, lastErr
}

var _ vision.Camera = (*Camera)(nil)
