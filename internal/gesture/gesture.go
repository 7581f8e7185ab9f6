// Package gesture turns noisy per-frame hand landmarks into smoothed hands
// and debounced gesture states.
package gesture

import (
	"fmt"
	"strings"
)

// Policy selects which gesture vocabulary drives grabbing.
type Policy int

const (
	// PolicyPinch grabs on a thumb/index pinch.
	PolicyPinch Policy = iota
	// PolicyFist grabs on a closed fist and releases on an open hand.
	PolicyFist
)

func (p Policy) String() string {
	switch p {
	case PolicyPinch:
		return "pinch"
	case PolicyFist:
		return "fist"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "pinch" or "fist".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pinch", "":
		return PolicyPinch, nil
	case "fist":
		return PolicyFist, nil
	default:
		return PolicyPinch, fmt.Errorf("unknown gesture policy %q", s)
	}
}

// Config holds the smoothing and classification thresholds. All values are
// fixed at construction.
type Config struct {
	// SmoothingWindow is the number of raw frames averaged by the smoother.
	SmoothingWindow int
	// AbsentFrames is how many consecutive misses keep the last hand alive.
	AbsentFrames int
	// VoteHistory is the number of raw finger vectors in the stability vote.
	VoteHistory int
	// StableFrames is how many consecutive frames a pinch, fist or pointing
	// signal must agree before it is reported.
	StableFrames int

	// PinchPixels is an absolute pinch threshold. When zero the threshold is
	// PinchRatio times the shorter frame side.
	PinchPixels float64
	PinchRatio  float64

	FistCompactness float64

	BaseConfidence float64
	EdgePenalty    float64
	// EdgeMargin is the border band, as a fraction of the frame, in which
	// confidence is reduced.
	EdgeMargin float64

	Policy Policy
}

// DefaultConfig returns the thresholds used by the games.
func DefaultConfig() Config {
	return Config{
		SmoothingWindow: 3,
		AbsentFrames:    5,
		VoteHistory:     2,
		StableFrames:    2,
		PinchRatio:      0.07,
		FistCompactness: 0.15,
		BaseConfidence:  0.8,
		EdgePenalty:     0.3,
		EdgeMargin:      0.1,
		Policy:          PolicyPinch,
	}
}
