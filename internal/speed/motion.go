package speed

import "speedgate/internal/config"

// Point is a motion centroid in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MotionDetector finds the centroid of changed pixels between consecutive
// frames. It keeps the last frame it saw and is not safe for concurrent use.
type MotionDetector struct {
	threshold int
	minPixels int
	stride    int

	previous    Frame
	hasPrevious bool
}

func NewMotionDetector(cal config.Calibration) *MotionDetector {
	stride := cal.SampleStride
	if stride < 1 {
		stride = 1
	}
	return &MotionDetector{
		threshold: cal.MotionThreshold,
		minPixels: cal.MinMotionPixels,
		stride:    stride,
	}
}

// Detect compares current against the previously seen frame and returns the
// centroid of active pixels. The second result is false when there is no
// previous frame to compare with or too few pixels changed.
// current always becomes the new previous frame.
func (d *MotionDetector) Detect(current Frame) (Point, bool) {
	previous, ok := d.previous, d.hasPrevious
	d.previous, d.hasPrevious = current, true

	// Pierwsza klatka albo zmiana rozdzielczości - nie ma z czym porównać
	if !ok || !previous.sameSize(current) {
		return Point{}, false
	}

	width := current.Width
	pixels := current.Width * current.Height
	cur, prev := current.Pix, previous.Pix

	var sumX, sumY, count int
	for p := 0; p < pixels; p += d.stride {
		i := p * BytesPerPixel
		diff := absDiff(cur[i], prev[i]) + absDiff(cur[i+1], prev[i+1]) + absDiff(cur[i+2], prev[i+2])
		if diff > d.threshold {
			sumX += p % width
			sumY += p / width
			count++
		}
	}

	if count < d.minPixels {
		return Point{}, false
	}

	return Point{
		X: float64(sumX) / float64(count),
		Y: float64(sumY) / float64(count),
	}, true
}

// HasPrevious reports whether a frame is retained for differencing.
func (d *MotionDetector) HasPrevious() bool {
	return d.hasPrevious
}

// Reset drops the retained frame; the next Detect is a cold start.
func (d *MotionDetector) Reset() {
	d.previous = Frame{}
	d.hasPrevious = false
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
