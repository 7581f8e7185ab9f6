package detector

import "gocv.io/x/gocv"

// Detector finds hands in camera frames.
type Detector interface {
	// Detect returns the hands in frame in pixel coordinates. No hands is an
	// empty result, not an error.
	Detect(frame *gocv.Mat) ([]Hand, error)
	Close() error
}

// Config tunes hand detection.
type Config struct {
	// At most MaxHands hands are reported per frame.
	MaxHands int
	// Hands scored below MinConfidence are dropped.
	MinConfidence float64
	// MinTrackingConf is passed to the tracker; below it the model
	// re-detects instead of tracking.
	MinTrackingConf float64
	// Script is the MediaPipe service script. Empty means search the usual
	// install locations.
	Script string
}

// DefaultConfig returns the detection thresholds used by the games.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.6,
		MinTrackingConf: 0.7,
	}
}
