package gesture

import "github.com/ayusman/kaiplay/internal/detector"

// Smoother averages the last few raw hands with linearly increasing weights
// so the newest frame counts most.
type Smoother struct {
	window       int
	absentFrames int
	history      []detector.Hand
	last         detector.Hand
	misses       int
}

// NewSmoother creates a smoother over window frames that forgets its hand
// after absentFrames consecutive misses.
func NewSmoother(window, absentFrames int) *Smoother {
	if window < 1 {
		window = 1
	}
	if absentFrames < 1 {
		absentFrames = 1
	}
	return &Smoother{
		window:       window,
		absentFrames: absentFrames,
		history:      make([]detector.Hand, 0, window),
	}
}

// Push adds a raw hand and returns the smoothed hand. An invalid hand counts
// as a miss and Push reports false.
func (s *Smoother) Push(h detector.Hand) (detector.Hand, bool) {
	if !h.Valid() {
		s.Miss()
		return detector.Hand{}, false
	}

	s.misses = 0
	if len(s.history) == s.window {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.window-1]
	}
	s.history = append(s.history, h)

	if len(s.history) < 2 {
		s.last = h
		return h, true
	}

	n := float64(len(s.history))
	var total float64
	var sum [detector.NumLandmarks]detector.Point
	for j, past := range s.history {
		w := float64(j+1) / n
		total += w
		for i, p := range past.Points {
			sum[i].X += p.X * w
			sum[i].Y += p.Y * w
		}
	}
	for i := range sum {
		sum[i].X /= total
		sum[i].Y /= total
	}

	s.last = h.WithPoints(sum)
	return s.last, true
}

// Miss records a frame without a hand. History survives short gaps and is
// dropped once the gap reaches the absence limit.
func (s *Smoother) Miss() {
	s.misses++
	if s.misses >= s.absentFrames {
		s.history = s.history[:0]
		s.last = detector.Hand{}
	}
}

// Last returns the most recent smoothed hand while one is still tracked.
func (s *Smoother) Last() (detector.Hand, bool) {
	return s.last, s.Present()
}

// Present reports whether a hand is tracked, including during a short gap.
func (s *Smoother) Present() bool {
	return len(s.history) > 0 && s.misses < s.absentFrames
}

// Misses returns the number of consecutive frames without a hand.
func (s *Smoother) Misses() int {
	return s.misses
}

// Reset forgets all history.
func (s *Smoother) Reset() {
	s.history = s.history[:0]
	s.last = detector.Hand{}
	s.misses = 0
}
