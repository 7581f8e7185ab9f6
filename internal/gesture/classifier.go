package gesture

import (
	"math"

	"github.com/ayusman/kaiplay/internal/detector"
)

// Finger indices into State.Fingers.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
)

var (
	fingerTips = [5]int{detector.ThumbTip, detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	fingerPIPs = [5]int{detector.ThumbIP, detector.IndexPIP, detector.MiddlePIP, detector.RingPIP, detector.PinkyPIP}
	fingerMCPs = [5]int{detector.ThumbMCP, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}
)

// State is the debounced gesture state of one hand.
type State struct {
	Fingers    [5]bool `json:"fingers"`
	Pinch      bool    `json:"pinch"`
	Fist       bool    `json:"fist"`
	Pointing   bool    `json:"pointing"`
	Grab       bool    `json:"grab"`
	Confidence float64 `json:"confidence"`
}

// Count returns the number of extended fingers.
func (s State) Count() int {
	n := 0
	for _, up := range s.Fingers {
		if up {
			n++
		}
	}
	return n
}

// RawFingers applies the per-finger extension test to a single frame. The
// thumb is extended when its tip lies right of its IP joint (mirrored right
// hand). Other fingers are extended when tip, PIP and MCP are stacked upward.
func RawFingers(h detector.Hand) [5]bool {
	var out [5]bool
	p := h.Points
	out[Thumb] = p[fingerTips[Thumb]].X > p[fingerPIPs[Thumb]].X
	for f := Index; f <= Pinky; f++ {
		tip, pip, mcp := p[fingerTips[f]], p[fingerPIPs[f]], p[fingerMCPs[f]]
		out[f] = tip.Y < pip.Y && pip.Y < mcp.Y
	}
	return out
}

// Compactness is min(width, height) / max(width, height) of the landmark
// bounding box.
func Compactness(h detector.Hand) float64 {
	lo, hi := h.Bounds()
	w, ht := hi.X-lo.X, hi.Y-lo.Y
	longest := math.Max(w, ht)
	if longest <= 0 {
		return 0
	}
	return math.Min(w, ht) / longest
}

// debounce reports a boolean only after the raw signal has disagreed with
// the reported value for need consecutive frames.
type debounce struct {
	state bool
	run   int
	need  int
}

func (d *debounce) update(raw bool) bool {
	if raw == d.state {
		d.run = 0
		return d.state
	}
	d.run++
	if d.run >= d.need {
		d.state = raw
		d.run = 0
	}
	return d.state
}

func (d *debounce) reset() {
	d.state = false
	d.run = 0
}

// Classifier derives gesture state for one tracked hand. It is stateful and
// must see that hand's frames in order.
type Classifier struct {
	config   Config
	history  [][5]bool
	reported [5]bool
	voted    bool
	pinch    debounce
	fist     debounce
	pointing debounce
}

// NewClassifier creates a Classifier. Zero thresholds take DefaultConfig values.
func NewClassifier(config Config) *Classifier {
	def := DefaultConfig()
	if config.VoteHistory < 1 {
		config.VoteHistory = def.VoteHistory
	}
	if config.StableFrames < 1 {
		config.StableFrames = 1
	}
	if config.PinchRatio <= 0 {
		config.PinchRatio = def.PinchRatio
	}
	if config.BaseConfidence <= 0 {
		config.BaseConfidence = def.BaseConfidence
	}
	c := &Classifier{config: config}
	c.pinch.need = config.StableFrames
	c.fist.need = config.StableFrames
	c.pointing.need = config.StableFrames
	return c
}

// Classify returns the gesture state for a smoothed hand in a frame of the
// given size.
func (c *Classifier) Classify(h detector.Hand, width, height int) State {
	fingers := c.vote(RawFingers(h))

	allDown := fingers == [5]bool{}
	rawFist := allDown && Compactness(h) > c.config.FistCompactness
	rawPointing := fingers == [5]bool{Index: true}
	rawPinch := h.Points[detector.ThumbTip].Distance(h.Points[detector.IndexTip]) < c.pinchThreshold(width, height)

	s := State{
		Fingers:    fingers,
		Pinch:      c.pinch.update(rawPinch),
		Fist:       c.fist.update(rawFist),
		Pointing:   c.pointing.update(rawPointing),
		Confidence: c.confidence(h, width, height),
	}
	switch c.config.Policy {
	case PolicyFist:
		s.Grab = s.Fist
	default:
		s.Grab = s.Pinch
	}
	return s
}

// vote pushes a raw finger vector and returns the majority across the
// history, with half a vote in favour of the previously reported state.
func (c *Classifier) vote(raw [5]bool) [5]bool {
	if len(c.history) == c.config.VoteHistory {
		copy(c.history, c.history[1:])
		c.history = c.history[:len(c.history)-1]
	}
	c.history = append(c.history, raw)

	if !c.voted || len(c.history) < 2 {
		c.reported = raw
		c.voted = true
		return raw
	}

	var out [5]bool
	for f := range out {
		var up, down float64
		for _, past := range c.history {
			if past[f] {
				up++
			} else {
				down++
			}
		}
		if c.reported[f] {
			up += 0.5
		} else {
			down += 0.5
		}
		out[f] = up > down
	}
	c.reported = out
	return out
}

func (c *Classifier) pinchThreshold(width, height int) float64 {
	if c.config.PinchPixels > 0 {
		return c.config.PinchPixels
	}
	return float64(min(width, height)) * c.config.PinchRatio
}

func (c *Classifier) confidence(h detector.Hand, width, height int) float64 {
	base := c.config.BaseConfidence
	if h.Score > 0 {
		base = h.Score
	}
	if width > 0 && height > 0 {
		centre := h.Centroid()
		nx, ny := centre.X/float64(width), centre.Y/float64(height)
		m := c.config.EdgeMargin
		if nx < m || nx > 1-m || ny < m || ny > 1-m {
			base -= c.config.EdgePenalty
		}
	}
	return math.Max(0, math.Min(1, base))
}

// Reset clears history and debounced state, for when the hand is lost.
func (c *Classifier) Reset() {
	c.history = c.history[:0]
	c.reported = [5]bool{}
	c.voted = false
	c.pinch.reset()
	c.fist.reset()
	c.pointing.reset()
}
