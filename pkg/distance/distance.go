// Package distance turns detector boxes into distances with a single-constant
// pinhole model: an object's apparent height is inversely proportional to
// its distance, so distance ≈ K / pixelHeight.
package distance

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/teslashibe/go-blindaid/pkg/vision"
)

// K0 is the fallback scale used until a calibration has been committed.
// It puts a 100px tall object at roughly 12 metres.
const K0 = 120000.0

// Estimate returns the distance in whole centimetres for an object whose
// bounding box is pixelHeight tall. A nil k falls back to K0. The +1 keeps
// zero-height boxes finite. Negative heights are treated as zero.
func Estimate(pixelHeight int, k *float64) int {
	scale := K0
	if k != nil {
		scale = *k
	}
	if pixelHeight < 0 {
		pixelHeight = 0
	}
	return int(scale / float64(pixelHeight+1))
}

// Position is where an object sits horizontally in the frame.
type Position string

const (
	Left  Position = "left"
	Ahead Position = "ahead"
	Right Position = "right"
)

// Zone is the center band, as fractions of frame width.
type Zone struct {
	Left  float64
	Right float64
}

// DefaultZone is the middle third of the frame.
var DefaultZone = Zone{Left: 1.0 / 3.0, Right: 2.0 / 3.0}

// Valid reports whether the band is ordered and inside the frame.
func (z Zone) Valid() bool {
	return z.Left >= 0 && z.Right <= 1 && z.Left < z.Right
}

// Classify places an object center relative to the center band.
func Classify(centerX float64, frameWidth int, zone Zone) Position {
	w := float64(frameWidth)
	switch {
	case centerX < w*zone.Left:
		return Left
	case centerX > w*zone.Right:
		return Right
	default:
		return Ahead
	}
}

// Detection is one measured object in the current frame. It is never
// persisted and is discarded after the frame is rendered.
type Detection struct {
	Box         vision.Box
	Label       string
	PixelHeight int
	CenterX     float64
	DistanceCM  int
}

// Measure computes pixel height, center and distance for every box, keeping
// model output order.
func Measure(boxes []vision.Box, k *float64) []Detection {
	return lo.Map(boxes, func(b vision.Box, _ int) Detection {
		h := b.Height()
		return Detection{
			Box:         b,
			Label:       b.Label,
			PixelHeight: h,
			CenterX:     b.CenterX(),
			DistanceCM:  Estimate(h, k),
		}
	})
}

// Nearest returns the detection with the smallest distance. Ties go to the
// first one in model output order.
func Nearest(dets []Detection) (Detection, bool) {
	if len(dets) == 0 {
		return Detection{}, false
	}
	return lo.MinBy(dets, func(a, b Detection) bool {
		return a.DistanceCM < b.DistanceCM
	}), true
}

// Announcement is the spoken message for a nearby object.
func Announcement(d Detection, pos Position) string {
	return fmt.Sprintf("%s %d centimeters %s", d.Label, d.DistanceCM, pos)
}

// Caption is the overlay label drawn above a box.
func Caption(d Detection) string {
	return fmt.Sprintf("%s  %dcm", d.Label, d.DistanceCM)
}
