package gesture

import (
	"math"

	"github.com/ayusman/kaiplay/internal/detector"
)

// Observation is what one tracked hand looks like in the current frame.
type Observation struct {
	// Present is true when the hand was detected in this frame.
	Present bool `json:"present"`
	// Stale is true when the hand was not detected but its last known
	// position is still held.
	Stale   bool           `json:"stale"`
	Hand    detector.Hand  `json:"-"`
	Gesture State          `json:"gesture"`
	Pointer detector.Point `json:"pointer"`
}

// Tracked reports whether the observation carries a usable hand.
func (o Observation) Tracked() bool {
	return o.Present || o.Stale
}

// Tracker smooths and classifies a single hand slot.
type Tracker struct {
	smoother   *Smoother
	classifier *Classifier
	last       State
}

// NewTracker creates a Tracker with the given configuration.
func NewTracker(config Config) *Tracker {
	def := DefaultConfig()
	if config.SmoothingWindow < 1 {
		config.SmoothingWindow = def.SmoothingWindow
	}
	if config.AbsentFrames < 1 {
		config.AbsentFrames = def.AbsentFrames
	}
	return &Tracker{
		smoother:   NewSmoother(config.SmoothingWindow, config.AbsentFrames),
		classifier: NewClassifier(config),
	}
}

// Observe feeds one frame. A nil or invalid hand counts as absent.
func (t *Tracker) Observe(h *detector.Hand, width, height int) Observation {
	if h != nil {
		if smoothed, ok := t.smoother.Push(*h); ok {
			t.last = t.classifier.Classify(smoothed, width, height)
			return Observation{
				Present: true,
				Hand:    smoothed,
				Gesture: t.last,
				Pointer: smoothed.Points[detector.IndexTip],
			}
		}
	} else {
		t.smoother.Miss()
	}

	last, ok := t.smoother.Last()
	if !ok {
		t.classifier.Reset()
		t.last = State{}
		return Observation{}
	}
	return Observation{
		Stale:   true,
		Hand:    last,
		Gesture: t.last,
		Pointer: last.Points[detector.IndexTip],
	}
}

// Centroid returns the centroid of the last tracked hand.
func (t *Tracker) Centroid() (detector.Point, bool) {
	last, ok := t.smoother.Last()
	if !ok {
		return detector.Point{}, false
	}
	return last.Centroid(), true
}

// Reset forgets the tracked hand.
func (t *Tracker) Reset() {
	t.smoother.Reset()
	t.classifier.Reset()
	t.last = State{}
}

// Pool tracks a fixed number of hand slots and keeps each physical hand in
// the same slot across frames by nearest centroid.
type Pool struct {
	trackers []*Tracker
}

// NewPool creates a pool of n trackers.
func NewPool(n int, config Config) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{trackers: make([]*Tracker, n)}
	for i := range p.trackers {
		p.trackers[i] = NewTracker(config)
	}
	return p
}

// Observe assigns detected hands to slots and returns one observation per
// slot. Extra hands beyond the slot count are ignored.
func (p *Pool) Observe(hands []detector.Hand, width, height int) []Observation {
	assigned := make([]*detector.Hand, len(p.trackers))
	taken := make([]bool, len(p.trackers))

	for i := range hands {
		h := &hands[i]
		if !h.Valid() {
			continue
		}
		c := h.Centroid()
		best, bestDist := -1, math.Inf(1)
		for slot, t := range p.trackers {
			if taken[slot] {
				continue
			}
			d := math.Inf(1)
			if prev, ok := t.Centroid(); ok {
				d = prev.Distance(c)
			}
			if best < 0 || d < bestDist {
				best, bestDist = slot, d
			}
		}
		if best < 0 {
			break
		}
		taken[best] = true
		assigned[best] = h
	}

	out := make([]Observation, len(p.trackers))
	for slot, t := range p.trackers {
		out[slot] = t.Observe(assigned[slot], width, height)
	}
	return out
}

// Reset forgets every slot.
func (p *Pool) Reset() {
	for _, t := range p.trackers {
		t.Reset()
	}
}
