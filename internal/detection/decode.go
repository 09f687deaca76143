package detection

import "fmt"

// outputLayout describes a YOLO-style output tensor of shape
// [1, 4+classes, boxes]: box centre, size, then one score per class.
type outputLayout struct {
	attrs int
	boxes int
}

// decodeOutput turns raw model output into detections scaled back to the
// source image. Boxes below minConfidence are dropped.
func decodeOutput(data []float32, layout outputLayout, labels []string, minConfidence float32, scaleX, scaleY float64) ([]Detection, error) {
	if layout.attrs < 5 {
		return nil, fmt.Errorf("output has %d attributes, need at least 5", layout.attrs)
	}
	if len(data) != layout.attrs*layout.boxes {
		return nil, fmt.Errorf("output has %d values, expected %d", len(data), layout.attrs*layout.boxes)
	}

	at := func(attr, box int) float32 {
		return data[attr*layout.boxes+box]
	}

	var dets []Detection
	for i := 0; i < layout.boxes; i++ {
		bestClass := -1
		var bestScore float32
		for c := 4; c < layout.attrs; c++ {
			if s := at(c, i); s > bestScore {
				bestScore = s
				bestClass = c - 4
			}
		}
		if bestClass < 0 || bestScore < minConfidence {
			continue
		}

		cx, cy, w, h := float64(at(0, i)), float64(at(1, i)), float64(at(2, i)), float64(at(3, i))
		dets = append(dets, Detection{
			Label:      labelFor(labels, bestClass),
			Confidence: float64(bestScore),
			Box: Box{
				X:      (cx - w/2) * scaleX,
				Y:      (cy - h/2) * scaleY,
				Width:  w * scaleX,
				Height: h * scaleY,
			},
		})
	}
	return dets, nil
}

func labelFor(labels []string, class int) string {
	if class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf("class_%d", class)
}
