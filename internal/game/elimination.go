package game

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
)

// EliminationConfig tunes the elimination game.
type EliminationConfig struct {
	Count int
	// Radius is the drawn size of an entity.
	Radius float64
	// HitRadius is how close the fingertip must be to catch an entity.
	HitRadius float64
	// MaxStep bounds the random walk per axis per frame.
	MaxStep float64
	Reward  int
}

// DefaultEliminationConfig returns the standard elimination game.
func DefaultEliminationConfig() EliminationConfig {
	return EliminationConfig{
		Count:     8,
		Radius:    18,
		HitRadius: 45,
		MaxStep:   6,
		Reward:    10,
	}
}

// Entity is a moving target.
type Entity struct {
	Index int               `json:"index"`
	Pos   interaction.Point `json:"pos"`
	Alive bool              `json:"alive"`
}

// Elimination spawns wandering entities that are caught with a pinch.
type Elimination struct {
	config   EliminationConfig
	rng      *rand.Rand
	feedback interaction.Feedback
	edge     interaction.Edge
	entities []Entity
	width    float64
	height   float64
	pointer  *interaction.Point
	pinching bool
	score    int
	caught   int
	hint     string
	started  time.Time
	finished time.Time
	hasSetup bool
}

// NewElimination creates the game.
func NewElimination(config EliminationConfig, rng *rand.Rand) *Elimination {
	def := DefaultEliminationConfig()
	if config.Count <= 0 {
		config.Count = def.Count
	}
	if config.Radius <= 0 {
		config.Radius = def.Radius
	}
	if config.HitRadius <= 0 {
		config.HitRadius = def.HitRadius
	}
	if config.MaxStep < 0 {
		config.MaxStep = 0
	}
	if config.Reward <= 0 {
		config.Reward = def.Reward
	}
	return &Elimination{config: config, rng: rng}
}

func (g *Elimination) Name() string           { return NameElimination }
func (g *Elimination) Policy() gesture.Policy { return gesture.PolicyPinch }

func (g *Elimination) Setup(width, height int, at time.Time) {
	g.width, g.height = float64(width), float64(height)
	g.entities = make([]Entity, g.config.Count)
	for i := range g.entities {
		g.entities[i] = Entity{
			Index: i,
			Pos:   g.clamp(interaction.Point{X: g.uniform(0, g.width), Y: g.uniform(0, g.height)}),
			Alive: true,
		}
	}
	g.edge = interaction.Edge{}
	g.pointer = nil
	g.score = 0
	g.caught = 0
	g.hint = ""
	g.started = at
	g.finished = time.Time{}
	g.feedback.Drain()
	g.hasSetup = true
}

// Entities returns the current entities.
func (g *Elimination) Entities() []Entity { return g.entities }

func (g *Elimination) complete() bool { return g.caught == len(g.entities) }

func (g *Elimination) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Elimination) clamp(p interaction.Point) interaction.Point {
	r := g.config.Radius
	p.X = math.Max(r, math.Min(g.width-r, p.X))
	p.Y = math.Max(r, math.Min(g.height-r, p.Y))
	return p
}

func (g *Elimination) Update(f Frame) {
	if !g.hasSetup {
		g.Setup(f.Width, f.Height, f.At)
	}
	if g.complete() {
		return
	}

	for i := range g.entities {
		e := &g.entities[i]
		if !e.Alive {
			continue
		}
		step := interaction.Point{
			X: g.uniform(-g.config.MaxStep, g.config.MaxStep),
			Y: g.uniform(-g.config.MaxStep, g.config.MaxStep),
		}
		e.Pos = g.clamp(e.Pos.Add(step))
	}

	obs, ok := f.Primary()
	if !ok || !obs.Present {
		g.pointer = nil
		g.pinching = false
		g.edge.Rising(false)
		if !ok {
			g.hint = ShowHandHint
		}
		return
	}
	g.hint = ""
	p := pointOf(obs)
	g.pointer = &p
	g.pinching = obs.Gesture.Pinch

	if !g.edge.Rising(obs.Gesture.Pinch) {
		return
	}

	positions := make([]interaction.Point, len(g.entities))
	for i, e := range g.entities {
		positions[i] = e.Pos
	}
	idx, d := interaction.Nearest(positions, p, func(i int) bool { return g.entities[i].Alive })
	if idx < 0 || d > g.config.HitRadius {
		return
	}

	g.entities[idx].Alive = false
	g.caught++
	g.score += g.config.Reward
	g.feedback.Push(interaction.Event{Kind: interaction.EventEliminated, Source: idx, Dest: -1, Score: g.score, At: f.At})
	if g.complete() {
		g.finished = f.At
		g.feedback.Push(interaction.Event{Kind: interaction.EventRoundComplete, Source: -1, Dest: -1, Score: g.score, Elapsed: f.At.Sub(g.started), At: f.At})
	}
}

func (g *Elimination) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Game:      NameElimination,
		Score:     g.score,
		Completed: g.caught,
		Total:     len(g.entities),
		Complete:  g.hasSetup && g.complete(),
		Hint:      g.hint,
		Started:   g.started,
	}
	if !s.Complete {
		s.Prompt = fmt.Sprintf("Pinch the mosquitoes! %d left", len(g.entities)-g.caught)
	}
	switch {
	case !g.finished.IsZero():
		s.Elapsed = g.finished.Sub(g.started)
	case g.hasSetup:
		s.Elapsed = now.Sub(g.started)
	}
	return s
}

func (g *Elimination) Overlay() []Shape {
	shapes := []Shape{textShape(fmt.Sprintf("Score: %d", g.score), interaction.Point{X: 20, Y: 40}, White, 0.8)}
	for _, e := range g.entities {
		if e.Alive {
			shapes = append(shapes, circleShape(e.Pos, g.config.Radius, Red, -1))
		}
	}
	if g.pointer != nil {
		c := Cyan
		if g.pinching {
			c = Yellow
		}
		shapes = append(shapes, circleShape(*g.pointer, g.config.HitRadius, c, 2))
	}
	if g.hint != "" {
		shapes = append(shapes, textShape(g.hint, interaction.Point{X: 20, Y: 80}, Yellow, 0.7))
	}
	if g.hasSetup && g.complete() {
		shapes = append(shapes, textShape("All caught!", interaction.Point{X: 240, Y: 110}, Green, 1.2))
	}
	return shapes
}

func (g *Elimination) Events() []interaction.Event {
	return g.feedback.Drain()
}
