package distance

import (
	"testing"

	"github.com/teslashibe/go-blindaid/pkg/vision"
)

func ptr(f float64) *float64 { return &f }

func TestEstimateUncalibrated(t *testing.T) {
	for _, h := range []int{0, 1, 10, 99, 100, 480, 1079} {
		want := int(K0) / (h + 1)
		if got := Estimate(h, nil); got != want {
			t.Errorf("Estimate(%d, nil) = %d, want %d", h, got, want)
		}
	}
}

func TestEstimateCalibrated(t *testing.T) {
	tests := []struct {
		name string
		h    int
		k    float64
		want int
	}{
		{"zero height", 0, 30000, 30000},
		{"truncates", 100, 30000, 297},
		{"fractional K", 49, 12345.6, 246},
		{"tall box", 999, 50000, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.h, ptr(tt.k)); got != tt.want {
				t.Errorf("Estimate(%d, %v) = %d, want %d", tt.h, tt.k, got, tt.want)
			}
		})
	}
}

func TestEstimateNegativeHeight(t *testing.T) {
	if got := Estimate(-5, nil); got != int(K0) {
		t.Errorf("Estimate(-5) = %d, want %d", got, int(K0))
	}
}

func TestClassify(t *testing.T) {
	const w = 600
	tests := []struct {
		cx   float64
		want Position
	}{
		{0, Left},
		{199.9, Left},
		{200.5, Ahead},
		{300, Ahead},
		{399.5, Ahead},
		{400.1, Right},
		{599, Right},
	}
	for _, tt := range tests {
		if got := Classify(tt.cx, w, DefaultZone); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.cx, got, tt.want)
		}
	}
}

func TestZoneValid(t *testing.T) {
	if !DefaultZone.Valid() {
		t.Error("default zone should be valid")
	}
	if (Zone{Left: 0.7, Right: 0.3}).Valid() {
		t.Error("inverted zone should be invalid")
	}
}

func TestNearest(t *testing.T) {
	dets := []Detection{
		{Label: "chair", DistanceCM: 300},
		{Label: "person", DistanceCM: 150},
		{Label: "door", DistanceCM: 450},
	}
	got, ok := Nearest(dets)
	if !ok {
		t.Fatal("expected a nearest detection")
	}
	if got.DistanceCM != 150 || got.Label != "person" {
		t.Errorf("Nearest = %+v, want person at 150", got)
	}
}

func TestNearestTieKeepsFirst(t *testing.T) {
	dets := []Detection{
		{Label: "a", DistanceCM: 200},
		{Label: "b", DistanceCM: 100},
		{Label: "c", DistanceCM: 100},
	}
	got, _ := Nearest(dets)
	if got.Label != "b" {
		t.Errorf("tie should resolve to first in order, got %s", got.Label)
	}
}

func TestNearestEmpty(t *testing.T) {
	if _, ok := Nearest(nil); ok {
		t.Error("expected no nearest for empty input")
	}
}

func TestMeasure(t *testing.T) {
	boxes := []vision.Box{
		{X1: 100, Y1: 50, X2: 200, Y2: 150, Label: "person"},
		{X1: 0, Y1: 0, X2: 10, Y2: 0, Label: "flat"},
	}
	dets := Measure(boxes, nil)
	if len(dets) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(dets))
	}
	if dets[0].PixelHeight != 100 || dets[0].CenterX != 150 || dets[0].DistanceCM != int(K0)/101 {
		t.Errorf("unexpected measurement: %+v", dets[0])
	}
	if dets[1].DistanceCM != int(K0) {
		t.Errorf("zero-height box should use h+1 = 1, got %d", dets[1].DistanceCM)
	}
}

func TestAnnouncement(t *testing.T) {
	d := Detection{Label: "person", DistanceCM: 120}
	if got := Announcement(d, Ahead); got != "person 120 centimeters ahead" {
		t.Errorf("Announcement = %q", got)
	}
	if got := Caption(d); got != "person  120cm" {
		t.Errorf("Caption = %q", got)
	}
}
