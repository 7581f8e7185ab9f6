package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
)

// ColorRange is a named HSV band in OpenCV ranges. When HueLo > HueHi the
// band wraps through 0, as red does.
type ColorRange struct {
	Name   string  `json:"name"`
	Native string  `json:"native"`
	HueLo  float64 `json:"hue_lo"`
	HueHi  float64 `json:"hue_hi"`
	SatMin float64 `json:"sat_min"`
	ValMin float64 `json:"val_min"`
}

// Contains reports whether c falls inside the range.
func (r ColorRange) Contains(c capture.HSV) bool {
	if c.S < r.SatMin || c.V < r.ValMin {
		return false
	}
	if r.HueLo <= r.HueHi {
		return c.H >= r.HueLo && c.H <= r.HueHi
	}
	return c.H >= r.HueLo || c.H <= r.HueHi
}

// DefaultColors are the colours asked for by default.
func DefaultColors() []ColorRange {
	return []ColorRange{
		{Name: "red", Native: "சிவப்பு", HueLo: 170, HueHi: 10, SatMin: 100, ValMin: 80},
		{Name: "yellow", Native: "மஞ்சள்", HueLo: 20, HueHi: 35, SatMin: 100, ValMin: 100},
		{Name: "green", Native: "பச்சை", HueLo: 40, HueHi: 85, SatMin: 80, ValMin: 60},
		{Name: "blue", Native: "நீலம்", HueLo: 95, HueHi: 130, SatMin: 80, ValMin: 60},
	}
}

// ColorConfig tunes the colour pointing game.
type ColorConfig struct {
	Colors       []ColorRange
	StableFrames int
	// SampleRadius is the half-size of the square sampled under the fingertip.
	SampleRadius int
	Reward       int
	Goal         int
}

// DefaultColorConfig returns the standard colour game.
func DefaultColorConfig() ColorConfig {
	return ColorConfig{
		Colors:       DefaultColors(),
		StableFrames: 8,
		SampleRadius: 5,
		Reward:       10,
		Goal:         5,
	}
}

// ColorPoint asks for a colour and awards points when the fingertip rests
// on something of that colour.
type ColorPoint struct {
	config   ColorConfig
	rng      *rand.Rand
	streak   *interaction.Streak
	feedback interaction.Feedback
	prompt   int
	sample   capture.HSV
	sampled  bool
	pointer  *interaction.Point
	score    int
	awards   int
	hint     string
	started  time.Time
	finished time.Time
	hasSetup bool
}

// NewColorPoint creates the game.
func NewColorPoint(config ColorConfig, rng *rand.Rand) *ColorPoint {
	def := DefaultColorConfig()
	if len(config.Colors) == 0 {
		config.Colors = def.Colors
	}
	if config.SampleRadius <= 0 {
		config.SampleRadius = def.SampleRadius
	}
	if config.Reward <= 0 {
		config.Reward = def.Reward
	}
	if config.Goal <= 0 {
		config.Goal = def.Goal
	}
	return &ColorPoint{
		config: config,
		rng:    rng,
		streak: interaction.NewStreak(config.StableFrames),
		prompt: -1,
	}
}

func (g *ColorPoint) Name() string           { return NameColors }
func (g *ColorPoint) Policy() gesture.Policy { return gesture.PolicyPinch }

func (g *ColorPoint) Setup(width, height int, at time.Time) {
	g.score = 0
	g.awards = 0
	g.prompt = -1
	g.pointer = nil
	g.sampled = false
	g.hint = ""
	g.started = at
	g.finished = time.Time{}
	g.feedback.Drain()
	g.hasSetup = true
	g.nextPrompt(at)
}

// Prompt returns the colour currently asked for.
func (g *ColorPoint) Prompt() ColorRange { return g.config.Colors[g.prompt] }

func (g *ColorPoint) complete() bool { return g.awards >= g.config.Goal }

func (g *ColorPoint) nextPrompt(at time.Time) {
	n := len(g.config.Colors)
	next := g.rng.IntN(n)
	if n > 1 && next == g.prompt {
		next = (next + 1 + g.rng.IntN(n-1)) % n
	}
	g.prompt = next
	g.streak.Reset()
	c := g.config.Colors[next]
	g.feedback.Push(interaction.Event{Kind: interaction.EventPrompt, Source: -1, Dest: -1, Label: c.Native, Score: g.score, At: at})
}

func (g *ColorPoint) Update(f Frame) {
	if !g.hasSetup {
		g.Setup(f.Width, f.Height, f.At)
	}
	if g.complete() {
		return
	}

	g.sampled = false
	obs, ok := f.Primary()
	if !ok || !obs.Present {
		g.pointer = nil
		if !ok {
			g.hint = ShowHandHint
		}
		g.streak.Observe(false)
		return
	}
	g.hint = ""
	p := pointOf(obs)
	g.pointer = &p

	if f.Sampler != nil {
		g.sample, g.sampled = f.Sampler.SampleHSV(int(p.X), int(p.Y))
	}
	hit := g.sampled && g.Prompt().Contains(g.sample)
	if !g.streak.Observe(hit) {
		return
	}

	g.score += g.config.Reward
	g.awards++
	g.feedback.Push(interaction.Event{Kind: interaction.EventAwarded, Source: -1, Dest: -1, Label: g.Prompt().Native, Score: g.score, At: f.At})
	if g.complete() {
		g.finished = f.At
		g.feedback.Push(interaction.Event{Kind: interaction.EventRoundComplete, Source: -1, Dest: -1, Score: g.score, Elapsed: f.At.Sub(g.started), At: f.At})
		return
	}
	g.nextPrompt(f.At)
}

func (g *ColorPoint) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Game:      NameColors,
		Score:     g.score,
		Completed: g.awards,
		Total:     g.config.Goal,
		Complete:  g.complete(),
		Hint:      g.hint,
		Started:   g.started,
	}
	if !s.Complete && g.prompt >= 0 {
		c := g.Prompt()
		s.Prompt = fmt.Sprintf("Point at something %s (%s)", c.Name, c.Native)
	}
	switch {
	case !g.finished.IsZero():
		s.Elapsed = g.finished.Sub(g.started)
	case g.hasSetup:
		s.Elapsed = now.Sub(g.started)
	}
	return s
}

func (g *ColorPoint) Overlay() []Shape {
	shapes := []Shape{textShape(fmt.Sprintf("Score: %d", g.score), interaction.Point{X: 20, Y: 40}, White, 0.8)}
	if g.complete() {
		return append(shapes, textShape("Well done!", interaction.Point{X: 240, Y: 110}, Green, 1.2))
	}
	if g.prompt >= 0 {
		shapes = append(shapes, textShape("Find: "+g.Prompt().Name, interaction.Point{X: 240, Y: 60}, Yellow, 1.1))
	}
	if g.pointer != nil {
		c := White
		if g.sampled && g.Prompt().Contains(g.sample) {
			c = Green
		}
		shapes = append(shapes, circleShape(*g.pointer, float64(g.config.SampleRadius)+6, c, 2))
	}
	if g.hint != "" {
		shapes = append(shapes, textShape(g.hint, interaction.Point{X: 20, Y: 80}, Yellow, 0.7))
	}
	return shapes
}

func (g *ColorPoint) Events() []interaction.Event {
	return g.feedback.Drain()
}
