// Package detector provides hand detection interfaces and types for gesture interaction.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point is a 2D position in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Hand is one detected hand: 21 landmarks in pixel coordinates plus the
// detector's confidence for the detection.
type Hand struct {
	Points     [NumLandmarks]Point `json:"points"`
	Handedness string              `json:"handedness"` // "Left" or "Right"
	Score      float64             `json:"score"`
	complete   bool
}

// NewHand builds a hand from exactly NumLandmarks points. A shorter or longer
// slice produces an invalid hand, which callers treat as absent.
func NewHand(points []Point, handedness string, score float64) Hand {
	h := Hand{Handedness: handedness, Score: score}
	if len(points) != NumLandmarks {
		return h
	}
	copy(h.Points[:], points)
	h.complete = true
	return h
}

// FromNormalized de-normalizes model output in [0,1] into pixel coordinates
// for a frame of the given size.
func FromNormalized(points []Point, handedness string, score float64, width, height int) Hand {
	scaled := make([]Point, len(points))
	for i, p := range points {
		scaled[i] = Point{X: p.X * float64(width), Y: p.Y * float64(height)}
	}
	return NewHand(scaled, handedness, score)
}

// Valid reports whether the hand carries a full landmark set.
func (h Hand) Valid() bool {
	return h.complete
}

// Centroid returns the mean landmark position.
func (h Hand) Centroid() Point {
	var sx, sy float64
	for _, p := range h.Points {
		sx += p.X
		sy += p.Y
	}
	return Point{X: sx / NumLandmarks, Y: sy / NumLandmarks}
}

// Bounds returns the bounding box of all landmarks as min and max corners.
func (h Hand) Bounds() (Point, Point) {
	lo := h.Points[0]
	hi := h.Points[0]
	for _, p := range h.Points[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Translate returns a copy of the hand moved by (dx, dy).
func (h Hand) Translate(dx, dy float64) Hand {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// WithPoints returns a copy of the hand holding the given landmark positions.
// It keeps the hand's validity.
func (h Hand) WithPoints(points [NumLandmarks]Point) Hand {
	h.Points = points
	return h
}
