package opencv

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-blindaid/pkg/vision"
)

// YOLOConfig holds YOLO detector configuration.
type YOLOConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputSize        int
	Labels           []string
}

// DefaultYOLOConfig returns production defaults for YOLOv10n exported to ONNX.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov10n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputSize:        640,
		Labels:           COCOClasses,
	}
}

// YOLO runs a YOLO ONNX model through the OpenCV DNN module.
// Both the YOLOv8 layout [1, 4+classes, anchors] and the end-to-end
// YOLOv10 layout [1, N, 6] are understood.
type YOLO struct {
	net    gocv.Net
	config YOLOConfig
	logger *slog.Logger
	mu     sync.Mutex
}

// NewYOLO loads the model.
func NewYOLO(cfg YOLOConfig, logger *slog.Logger) (*YOLO, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", vision.ErrModelNotFound, cfg.ModelPath)
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = COCOClasses
	}
	if logger == nil {
		logger = slog.Default()
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLO{
		net:    net,
		config: cfg,
		logger: logger.With("component", "vision.yolo"),
	}, nil
}

// Detect finds objects in the frame.
func (d *YOLO) Detect(frame vision.Frame) ([]vision.Box, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("yolo: unsupported frame type %T", frame)
	}
	if f.Mat.Empty() {
		return nil, vision.ErrNoFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := image.Pt(d.config.InputSize, d.config.InputSize)
	blob := gocv.BlobFromImage(f.Mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	scaleX := float32(f.Mat.Cols()) / float32(d.config.InputSize)
	scaleY := float32(f.Mat.Rows()) / float32(d.config.InputSize)

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("yolo: read output: %w", err)
	}

	dims := output.Size()
	var boxes []vision.Box
	if len(dims) == 3 && dims[2] == 6 {
		boxes = d.parseEndToEnd(data, dims[1], scaleX, scaleY)
	} else if len(dims) == 3 {
		boxes = d.parseAnchors(data, dims[1], dims[2], scaleX, scaleY)
	} else {
		return nil, fmt.Errorf("yolo: unexpected output shape %v", dims)
	}

	if len(boxes) > 0 {
		d.logger.Debug("objects detected", "count", len(boxes))
	}
	return boxes, nil
}

// parseEndToEnd reads YOLOv10 rows of (x1, y1, x2, y2, score, class).
func (d *YOLO) parseEndToEnd(data []float32, rows int, scaleX, scaleY float32) []vision.Box {
	var boxes []vision.Box
	for i := 0; i < rows; i++ {
		row := data[i*6 : i*6+6]
		score := row[4]
		if score < d.config.ConfidenceThresh {
			continue
		}
		classID := int(row[5])
		boxes = append(boxes, vision.Box{
			X1:         int(row[0] * scaleX),
			Y1:         int(row[1] * scaleY),
			X2:         int(row[2] * scaleX),
			Y2:         int(row[3] * scaleY),
			ClassID:    classID,
			Label:      d.label(classID),
			Confidence: float64(score),
		})
	}
	return boxes
}

// parseAnchors reads the YOLOv8 layout: channels = 4 bbox + class scores,
// laid out channel-major across all anchors. NMS is applied afterwards.
func (d *YOLO) parseAnchors(data []float32, channels, anchors int, scaleX, scaleY float32) []vision.Box {
	var rects []image.Rectangle
	var confidences []float32
	var classIDs []int

	for i := 0; i < anchors; i++ {
		maxScore := float32(0)
		maxClass := 0
		for c := 4; c < channels; c++ {
			if score := data[c*anchors+i]; score > maxScore {
				maxScore = score
				maxClass = c - 4
			}
		}
		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		rects = append(rects, image.Rect(
			int((cx-w/2)*scaleX),
			int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX),
			int((cy+h/2)*scaleY),
		))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClass)
	}

	if len(rects) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(rects, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)
	boxes := make([]vision.Box, 0, len(indices))
	for _, idx := range indices {
		r := rects[idx]
		boxes = append(boxes, vision.Box{
			X1:         r.Min.X,
			Y1:         r.Min.Y,
			X2:         r.Max.X,
			Y2:         r.Max.Y,
			ClassID:    classIDs[idx],
			Label:      d.label(classIDs[idx]),
			Confidence: float64(confidences[idx]),
		})
	}
	return boxes
}

func (d *YOLO) label(classID int) string {
	if classID >= 0 && classID < len(d.config.Labels) {
		return d.config.Labels[classID]
	}
	return fmt.Sprintf("object %d", classID)
}

// Close releases the network.
func (d *YOLO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// COCOClasses contains the 80 COCO class names in model order.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

var _ vision.Detector = (*YOLO)(nil)
