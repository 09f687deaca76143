// Package detection locates receipt regions and vendor logos with an
// object-detection model. Its output is stored next to parsed receipts and
// never changes the text extraction rules.
package detection

import (
	"math"
	"sort"
)

// Box is an axis-aligned bounding box in source image pixels
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one object found in a receipt image
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detector defines the interface for object detection over receipt images
type Detector interface {
	// Detect returns the objects found in an image/PDF, best first
	Detect(imageData []byte, contentType string) ([]Detection, error)
	// Close releases the model
	Close() error
}

func (b Box) area() float64 {
	return math.Max(b.Width, 0) * math.Max(b.Height, 0)
}

// iou returns the intersection over union of two boxes
func iou(a, b Box) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.Width, b.X+b.Width)
	y2 := math.Min(a.Y+a.Height, b.Y+b.Height)
	inter := math.Max(x2-x1, 0) * math.Max(y2-y1, 0)
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nonMaxSuppression keeps the most confident detection among overlapping
// boxes of the same label. The result is sorted by confidence.
func nonMaxSuppression(dets []Detection, threshold float64) []Detection {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Label == d.Label && iou(k.Box, d.Box) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}
