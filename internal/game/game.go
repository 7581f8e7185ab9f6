// Package game implements the gesture-driven game variants on top of the
// interaction engine.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
	"github.com/ayusman/kaiplay/internal/wordbank"
)

// ErrUnknownGame is returned by New for an unregistered name.
var ErrUnknownGame = errors.New("unknown game")

// ShowHandHint is shown while no hand is tracked.
const ShowHandHint = "Show your hand"

// ColorSampler reads the average colour around a pixel of the current frame.
type ColorSampler interface {
	SampleHSV(x, y int) (capture.HSV, bool)
}

// SamplerFunc adapts a function to ColorSampler.
type SamplerFunc func(x, y int) (capture.HSV, bool)

func (f SamplerFunc) SampleHSV(x, y int) (capture.HSV, bool) { return f(x, y) }

// Frame is everything a game sees of one processed camera frame.
type Frame struct {
	At      time.Time
	Width   int
	Height  int
	Hands   []gesture.Observation
	Sampler ColorSampler
}

// Primary returns the first hand detected this frame, falling back to the
// first hand still held from an earlier frame.
func (f Frame) Primary() (gesture.Observation, bool) {
	for _, h := range f.Hands {
		if h.Present {
			return h, true
		}
	}
	for _, h := range f.Hands {
		if h.Stale {
			return h, true
		}
	}
	return gesture.Observation{}, false
}

// Snapshot is the read-only game state shown by the shell.
type Snapshot struct {
	Game      string        `json:"game"`
	Score     int           `json:"score"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Complete  bool          `json:"complete"`
	Prompt    string        `json:"prompt,omitempty"`
	Hint      string        `json:"hint,omitempty"`
	Phase     string        `json:"phase,omitempty"`
	Level     int           `json:"level,omitempty"`
	Started   time.Time     `json:"started"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Game is one playable variant. A game is driven by a single loop and is
// not safe for concurrent use.
type Game interface {
	Name() string
	// Policy is the grab gesture the game expects the trackers to report.
	Policy() gesture.Policy
	// Setup starts a new round for a frame of the given size.
	Setup(width, height int, at time.Time)
	Update(f Frame)
	Snapshot(now time.Time) Snapshot
	Overlay() []Shape
	// Events drains pending feedback events.
	Events() []interaction.Event
}

// Config holds per-variant tuning.
type Config struct {
	WordMatch   WordMatchConfig
	Fingers     FingerConfig
	Colors      ColorConfig
	Elimination EliminationConfig
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		WordMatch:   DefaultWordMatchConfig(),
		Fingers:     DefaultFingerConfig(),
		Colors:      DefaultColorConfig(),
		Elimination: DefaultEliminationConfig(),
	}
}

// Deps are the collaborators a game is built with.
type Deps struct {
	Words  []wordbank.Entry
	Rand   *rand.Rand
	Config Config
}

func (d Deps) rng() *rand.Rand {
	if d.Rand != nil {
		return d.Rand
	}
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6b6169))
}

// Names of the built-in games.
const (
	NameWordMatch   = "wordmatch"
	NameFingers     = "fingers"
	NameColors      = "colors"
	NameElimination = "elimination"
)

var registry = map[string]func(Deps) Game{
	NameWordMatch:   func(d Deps) Game { return NewWordMatch(d.Config.WordMatch, d.Words, d.rng()) },
	NameFingers:     func(d Deps) Game { return NewFingerCount(d.Config.Fingers, d.rng()) },
	NameColors:      func(d Deps) Game { return NewColorPoint(d.Config.Colors, d.rng()) },
	NameElimination: func(d Deps) Game { return NewElimination(d.Config.Elimination, d.rng()) },
}

// New builds the named game.
func New(name string, deps Deps) (Game, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
	return build(deps), nil
}

// Names returns the registered game names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Titles maps game names to menu titles.
var Titles = map[string]string{
	NameWordMatch:   "Word Match",
	NameFingers:     "Finger Counting",
	NameColors:      "Colour Pointing",
	NameElimination: "Mosquito Catch",
}

func pointOf(o gesture.Observation) interaction.Point {
	return interaction.Point(o.Pointer)
}
