package capture

import (
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// BlackThreshold is the mean grey level under which a frame counts as black.
const BlackThreshold = 8.0

// IsBlack reports whether the frame is missing, empty or too dark to use.
func IsBlack(frame *gocv.Mat) bool {
	if frame == nil || frame.Empty() {
		return true
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	return gray.Mean().Val1 < BlackThreshold
}

// FilterOptions configures frame preprocessing.
type FilterOptions struct {
	// Mirror flips frames horizontally so the view behaves like a mirror.
	Mirror bool
	// Blend is the weight of the current frame when mixing it with the
	// previous one to hide rolling-shutter flicker. 0 or 1 disables blending.
	Blend float64
}

// DefaultFilterOptions mirrors frames and blends at 0.8.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{Mirror: true, Blend: 0.8}
}

// FrameFilter applies anti-shutter blending and mirroring to a stream of frames.
type FrameFilter struct {
	opts    FilterOptions
	prev    gocv.Mat
	hasPrev bool
	mu      sync.Mutex
}

// NewFrameFilter creates a FrameFilter with the given options.
func NewFrameFilter(opts FilterOptions) *FrameFilter {
	return &FrameFilter{
		opts: opts,
		prev: gocv.NewMat(),
	}
}

// Apply modifies frame in place. Blending uses the previous blended frame
// and is skipped whenever the frame geometry changes.
func (f *FrameFilter) Apply(frame *gocv.Mat) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if frame == nil || frame.Empty() {
		return
	}

	if f.opts.Blend > 0 && f.opts.Blend < 1 {
		if f.hasPrev && sameGeometry(frame, &f.prev) {
			gocv.AddWeighted(*frame, f.opts.Blend, f.prev, 1-f.opts.Blend, 0, frame)
		}
		frame.CopyTo(&f.prev)
		f.hasPrev = true
	}

	if f.opts.Mirror {
		gocv.Flip(*frame, frame, 1)
	}
}

// Reset forgets the previous frame.
func (f *FrameFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasPrev = false
}

// Close releases resources held by the filter.
func (f *FrameFilter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasPrev = false
	return f.prev.Close()
}

func sameGeometry(a, b *gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols() && a.Type() == b.Type()
}

// HSV is a colour in OpenCV ranges: H in [0,180), S and V in [0,255].
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// SampleHSV returns the average colour of the square of the given radius
// centred on (x, y), clipped to the frame. Hue is averaged on the circle so
// that reds straddling 0/180 stay red. It reports false when the square lies
// entirely outside the frame.
func SampleHSV(frame *gocv.Mat, x, y, radius int) (HSV, bool) {
	if frame == nil || frame.Empty() || frame.Channels() != 3 {
		return HSV{}, false
	}

	rect := image.Rect(x-radius, y-radius, x+radius+1, y+radius+1).
		Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return HSV{}, false
	}

	region := frame.Region(rect)
	defer region.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(region, &hsv, gocv.ColorBGRToHSV)

	var sinSum, cosSum, sSum, vSum float64
	n := 0
	for r := 0; r < hsv.Rows(); r++ {
		for c := 0; c < hsv.Cols(); c++ {
			px := hsv.GetVecbAt(r, c)
			angle := float64(px[0]) * 2 * math.Pi / 180
			sinSum += math.Sin(angle)
			cosSum += math.Cos(angle)
			sSum += float64(px[1])
			vSum += float64(px[2])
			n++
		}
	}
	if n == 0 {
		return HSV{}, false
	}

	hue := math.Atan2(sinSum, cosSum) * 180 / (2 * math.Pi)
	if hue < 0 {
		hue += 180
	}
	return HSV{H: hue, S: sSum / float64(n), V: vSum / float64(n)}, true
}
