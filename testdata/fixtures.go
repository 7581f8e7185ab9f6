// Package testdata builds synthetic camera frames for tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Common frame colours.
var (
	Black = color.RGBA{0, 0, 0, 255}
	Red   = color.RGBA{220, 20, 20, 255}
	Green = color.RGBA{20, 200, 40, 255}
	Blue  = color.RGBA{20, 40, 220, 255}
)

func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

// SolidFrame returns a BGR frame filled with c. The caller closes it.
func SolidFrame(width, height int, c color.RGBA) *gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(scalar(c), height, width, gocv.MatTypeCV8UC3)
	return &m
}

// BlankFrame returns a black BGR frame.
func BlankFrame(width, height int) *gocv.Mat {
	return SolidFrame(width, height, Black)
}

// PatchFrame returns a black frame with a filled square of colour c and
// half-size r centred on (x, y).
func PatchFrame(width, height, x, y, r int, c color.RGBA) *gocv.Mat {
	m := BlankFrame(width, height)
	rect := image.Rect(x-r, y-r, x+r, y+r).Intersect(image.Rect(0, 0, width, height))
	gocv.Rectangle(m, rect, c, -1)
	return m
}

// Sequence returns n copies of frame. Only the copies must be closed.
func Sequence(frame *gocv.Mat, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		c := frame.Clone()
		frames[i] = &c
	}
	return frames
}

// CloseAll closes every non-nil frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
