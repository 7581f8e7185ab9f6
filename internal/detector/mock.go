package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []Hand
	sequence [][]Hand
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence scripts one result per Detect call. Once the script runs out,
// Detect reports no hands.
func (m *MockDetector) SetSequence(frames [][]Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
	m.hands = nil
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if len(m.sequence) == 0 {
			return nil, nil
		}
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Pose fixtures below describe a right hand seen through a mirrored webcam,
// wrist at the origin, fingers pointing up (negative Y) and the thumb to the
// right. Use Translate to place them in a frame.

var fingerBases = [5]Point{
	{X: 45, Y: -35},  // thumb MCP
	{X: 20, Y: -80},  // index MCP
	{X: 0, Y: -85},   // middle MCP
	{X: -20, Y: -80}, // ring MCP
	{X: -40, Y: -70}, // pinky MCP
}

// Pose builds a hand with the given fingers (thumb first) extended, centred
// with its wrist at (x, y).
func Pose(extended [5]bool, x, y float64) Hand {
	var pts [NumLandmarks]Point
	pts[Wrist] = Point{X: 0, Y: 0}
	pts[ThumbCMC] = Point{X: 25, Y: -20}
	pts[ThumbMCP] = fingerBases[0]
	if extended[0] {
		pts[ThumbIP] = Point{X: 65, Y: -50}
		pts[ThumbTip] = Point{X: 85, Y: -60}
	} else {
		pts[ThumbIP] = Point{X: 50, Y: -50}
		pts[ThumbTip] = Point{X: 35, Y: -30}
	}

	for f := 1; f < 5; f++ {
		base := fingerBases[f]
		mcp := IndexMCP + (f-1)*4
		pts[mcp] = base
		if extended[f] {
			pts[mcp+1] = Point{X: base.X, Y: base.Y - 35}
			pts[mcp+2] = Point{X: base.X, Y: base.Y - 60}
			pts[mcp+3] = Point{X: base.X, Y: base.Y - 80}
		} else {
			pts[mcp+1] = Point{X: base.X, Y: base.Y - 20}
			pts[mcp+2] = Point{X: base.X, Y: base.Y - 5}
			pts[mcp+3] = Point{X: base.X, Y: base.Y + 5}
		}
	}

	h := NewHand(pts[:], "Right", 0.95)
	return h.Translate(x, y)
}

// OpenPalm returns an open hand with every finger extended.
func OpenPalm(x, y float64) Hand {
	return Pose([5]bool{true, true, true, true, true}, x, y)
}

// Fist returns a closed fist.
func Fist(x, y float64) Hand {
	return Pose([5]bool{}, x, y)
}

// Pointing returns a hand with only the index finger extended.
func Pointing(x, y float64) Hand {
	return Pose([5]bool{false, true, false, false, false}, x, y)
}

// FingersUp returns a hand with the first n fingers (thumb first) extended.
func FingersUp(n int, x, y float64) Hand {
	var ext [5]bool
	for i := 0; i < n && i < 5; i++ {
		ext[i] = true
	}
	return Pose(ext, x, y)
}

// Pinch returns an OK-sign hand: thumb tip and index tip touching, the other
// three fingers extended.
func Pinch(x, y float64) Hand {
	h := Pose([5]bool{true, false, true, true, true}, 0, 0)
	h.Points[IndexPIP] = Point{X: 35, Y: -110}
	h.Points[IndexDIP] = Point{X: 55, Y: -95}
	h.Points[IndexTip] = Point{X: 62, Y: -70}
	h.Points[ThumbTip] = Point{X: 70, Y: -66}
	return h.Translate(x, y)
}

// PointerOffset is the index fingertip position relative to the wrist for
// Pointing and OpenPalm poses.
var PointerOffset = Point{X: 20, Y: -160}

// PinchOffset is the index fingertip position relative to the wrist for the
// Pinch pose.
var PinchOffset = Point{X: 62, Y: -70}
