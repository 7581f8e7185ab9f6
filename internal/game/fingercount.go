package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
)

// FingerConfig tunes the finger counting game.
type FingerConfig struct {
	// StableFrames is how long the right count must be held.
	StableFrames int
	Reward       int
	// Milestone is the score step at which the next level unlocks.
	Milestone int
	// Goal is the number of correct answers that ends the round.
	Goal int
	// Levels are inclusive target ranges, easiest first.
	Levels [][2]int
}

// DefaultFingerConfig returns the standard progression.
func DefaultFingerConfig() FingerConfig {
	return FingerConfig{
		StableFrames: 10,
		Reward:       10,
		Milestone:    30,
		Goal:         10,
		Levels:       [][2]int{{1, 3}, {1, 5}, {1, 7}, {1, 10}},
	}
}

// tamilNumbers names 1 to 10.
var tamilNumbers = [...]string{"", "ஒன்று", "இரண்டு", "மூன்று", "நான்கு", "ஐந்து", "ஆறு", "ஏழு", "எட்டு", "ஒன்பது", "பத்து"}

// NumberWord returns the Tamil word for n, or the digits outside 1 to 10.
func NumberWord(n int) string {
	if n >= 1 && n < len(tamilNumbers) {
		return tamilNumbers[n]
	}
	return fmt.Sprint(n)
}

// FingerCount asks for a number and awards points when that many fingers
// are held up across both hands.
type FingerCount struct {
	config   FingerConfig
	rng      *rand.Rand
	streak   *interaction.Streak
	feedback interaction.Feedback
	target   int
	count    int
	score    int
	awards   int
	level    int
	hint     string
	started  time.Time
	finished time.Time
	hasSetup bool
}

// NewFingerCount creates the game.
func NewFingerCount(config FingerConfig, rng *rand.Rand) *FingerCount {
	def := DefaultFingerConfig()
	if len(config.Levels) == 0 {
		config.Levels = def.Levels
	}
	if config.Goal <= 0 {
		config.Goal = def.Goal
	}
	if config.Milestone <= 0 {
		config.Milestone = def.Milestone
	}
	if config.Reward <= 0 {
		config.Reward = def.Reward
	}
	return &FingerCount{
		config: config,
		rng:    rng,
		streak: interaction.NewStreak(config.StableFrames),
	}
}

func (g *FingerCount) Name() string           { return NameFingers }
func (g *FingerCount) Policy() gesture.Policy { return gesture.PolicyPinch }

func (g *FingerCount) Setup(width, height int, at time.Time) {
	g.score = 0
	g.awards = 0
	g.level = 0
	g.count = 0
	g.target = 0
	g.hint = ""
	g.started = at
	g.finished = time.Time{}
	g.streak.Reset()
	g.feedback.Drain()
	g.hasSetup = true
	g.nextTarget(at)
}

// Target returns the number currently asked for.
func (g *FingerCount) Target() int { return g.target }

// Level returns the zero-based difficulty level.
func (g *FingerCount) Level() int { return g.level }

func (g *FingerCount) complete() bool { return g.awards >= g.config.Goal }

func (g *FingerCount) nextTarget(at time.Time) {
	lo, hi := g.config.Levels[g.level][0], g.config.Levels[g.level][1]
	n := hi - lo + 1
	next := lo + g.rng.IntN(n)
	if n > 1 && next == g.target {
		next = lo + (next-lo+1+g.rng.IntN(n-1))%n
	}
	g.target = next
	g.streak.Reset()
	g.feedback.Push(interaction.Event{Kind: interaction.EventPrompt, Source: -1, Dest: -1, Label: NumberWord(g.target), Score: g.score, At: at})
}

func (g *FingerCount) Update(f Frame) {
	if !g.hasSetup {
		g.Setup(f.Width, f.Height, f.At)
	}
	if g.complete() {
		return
	}

	tracked := false
	count := 0
	for _, h := range f.Hands {
		if !h.Tracked() {
			continue
		}
		tracked = true
		count += h.Gesture.Count()
	}
	g.count = count
	if tracked {
		g.hint = ""
	} else {
		g.hint = ShowHandHint
	}

	if !g.streak.Observe(tracked && count == g.target) {
		return
	}

	g.score += g.config.Reward
	g.awards++
	g.feedback.Push(interaction.Event{Kind: interaction.EventAwarded, Source: -1, Dest: -1, Label: NumberWord(g.target), Score: g.score, At: f.At})

	if g.complete() {
		g.finished = f.At
		g.feedback.Push(interaction.Event{Kind: interaction.EventRoundComplete, Source: -1, Dest: -1, Score: g.score, Elapsed: f.At.Sub(g.started), At: f.At})
		return
	}

	if lvl := min(g.score/g.config.Milestone, len(g.config.Levels)-1); lvl > g.level {
		g.level = lvl
		g.feedback.Push(interaction.Event{Kind: interaction.EventLevelUp, Source: -1, Dest: -1, Label: fmt.Sprintf("1-%d", g.config.Levels[lvl][1]), Score: g.score, At: f.At})
	}
	g.nextTarget(f.At)
}

func (g *FingerCount) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Game:      NameFingers,
		Score:     g.score,
		Completed: g.awards,
		Total:     g.config.Goal,
		Complete:  g.complete(),
		Hint:      g.hint,
		Level:     g.level + 1,
		Started:   g.started,
	}
	if !s.Complete && g.target > 0 {
		s.Prompt = fmt.Sprintf("Show %d (%s)", g.target, NumberWord(g.target))
	}
	switch {
	case !g.finished.IsZero():
		s.Elapsed = g.finished.Sub(g.started)
	case g.hasSetup:
		s.Elapsed = now.Sub(g.started)
	}
	return s
}

func (g *FingerCount) Overlay() []Shape {
	shapes := []Shape{
		textShape(fmt.Sprintf("Score: %d", g.score), interaction.Point{X: 20, Y: 40}, White, 0.8),
		textShape(fmt.Sprintf("Level %d", g.level+1), interaction.Point{X: 20, Y: 75}, Grey, 0.6),
	}
	if g.complete() {
		return append(shapes, textShape("Well done!", interaction.Point{X: 240, Y: 110}, Green, 1.2))
	}
	c := White
	if g.count == g.target {
		c = Green
	}
	shapes = append(shapes,
		textShape(fmt.Sprintf("Show %d", g.target), interaction.Point{X: 240, Y: 60}, Yellow, 1.2),
		textShape(fmt.Sprintf("Fingers: %d", g.count), interaction.Point{X: 240, Y: 110}, c, 0.9),
	)
	if run, need := g.streak.Run(), g.streak.Need(); g.count == g.target && run > 0 && need > 1 {
		shapes = append(shapes, rectShape(interaction.Rect{X: 240, Y: 125, W: 200 * float64(min(run, need)) / float64(need), H: 8}, Green, -1))
	}
	if g.hint != "" {
		shapes = append(shapes, textShape(g.hint, interaction.Point{X: 20, Y: 110}, Yellow, 0.7))
	}
	return shapes
}

func (g *FingerCount) Events() []interaction.Event {
	return g.feedback.Drain()
}
