// Package interaction implements the grab, drag and drop state machine that
// every game variant is built on.
package interaction

import "math"

// Point is a position in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the centre of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// CenteredAt returns r moved so its centre is c.
func (r Rect) CenteredAt(c Point) Rect {
	r.X = c.X - r.W/2
	r.Y = c.Y - r.H/2
	return r
}

// Nearest returns the index of the point closest to p among those accepted
// by eligible, with its distance. Equal distances resolve to the lowest
// index. It returns -1 when nothing is eligible.
func Nearest(points []Point, p Point, eligible func(i int) bool) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, q := range points {
		if eligible != nil && !eligible(i) {
			continue
		}
		if d := q.Distance(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
