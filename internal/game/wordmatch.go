package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
	"github.com/ayusman/kaiplay/internal/wordbank"
)

// WordMatchMode selects the gesture vocabulary for word matching.
type WordMatchMode string

const (
	// ModeLatched grabs with a dwelled pinch and commits on proximity.
	ModeLatched WordMatchMode = "latched"
	// ModeLegacy grabs with a fist and compares on release.
	ModeLegacy WordMatchMode = "legacy"
)

// WordMatchConfig tunes the word matching game.
type WordMatchConfig struct {
	Mode  WordMatchMode
	Pairs int
	// Interaction supplies thresholds. Its grab and drop policies are
	// replaced by those of Mode.
	Interaction interaction.Config
}

// DefaultWordMatchConfig returns three pairs in latched mode.
func DefaultWordMatchConfig() WordMatchConfig {
	return WordMatchConfig{
		Mode:        ModeLatched,
		Pairs:       3,
		Interaction: interaction.DefaultConfig(),
	}
}

// Layout of the two columns.
const (
	boxWidth   = 200
	boxHeight  = 80
	boxMargin  = 50
	boxTop     = 150
	boxSpacing = 120
)

// WordMatch drags native words from the left column onto their
// translations in the right column.
type WordMatch struct {
	config  WordMatchConfig
	words   []wordbank.Entry
	rng     *rand.Rand
	engine  *interaction.Engine[wordbank.Entry]
	pointer *interaction.Point
	hint    string
}

// NewWordMatch creates the game. An empty word list uses the built-in words.
func NewWordMatch(config WordMatchConfig, words []wordbank.Entry, rng *rand.Rand) *WordMatch {
	if len(words) == 0 {
		words = wordbank.Defaults()
	}
	if config.Pairs <= 0 {
		config.Pairs = DefaultWordMatchConfig().Pairs
	}
	switch config.Mode {
	case ModeLegacy:
		config.Interaction.GrabPolicy = interaction.GrabImmediate
		config.Interaction.DropPolicy = interaction.DropOnRelease
	default:
		config.Mode = ModeLatched
		config.Interaction.GrabPolicy = interaction.GrabDwell
		config.Interaction.DropPolicy = interaction.DropAutoProximity
	}
	if config.Interaction.LostPolicy == "" {
		config.Interaction.LostPolicy = interaction.LostHoldLast
	}
	return &WordMatch{config: config, words: words, rng: rng}
}

func (g *WordMatch) Name() string { return NameWordMatch }

func (g *WordMatch) Policy() gesture.Policy {
	if g.config.Mode == ModeLegacy {
		return gesture.PolicyFist
	}
	return gesture.PolicyPinch
}

// SameTranslation is the word matching predicate.
func SameTranslation(a, b wordbank.Entry) bool {
	return strings.EqualFold(a.Translation, b.Translation)
}

// Setup picks random pairs and lays them out: natives on the left in order,
// translations on the right shuffled.
func (g *WordMatch) Setup(width, height int, at time.Time) {
	chosen := wordbank.Sample(g.rng, g.words, g.config.Pairs)

	shuffled := make([]wordbank.Entry, len(chosen))
	copy(shuffled, chosen)
	g.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	sources := make([]interaction.Placement[wordbank.Entry], len(chosen))
	dests := make([]interaction.Placement[wordbank.Entry], len(shuffled))
	for i := range chosen {
		y := float64(boxTop + i*boxSpacing)
		sources[i] = interaction.Placement[wordbank.Entry]{
			Rect:    interaction.Rect{X: boxMargin, Y: y, W: boxWidth, H: boxHeight},
			Payload: chosen[i],
		}
		dests[i] = interaction.Placement[wordbank.Entry]{
			Rect:    interaction.Rect{X: float64(width - boxWidth - boxMargin), Y: y, W: boxWidth, H: boxHeight},
			Payload: shuffled[i],
		}
	}

	round := interaction.NewRound(sources, dests, at)
	if g.engine == nil {
		g.engine = interaction.NewEngine(g.config.Interaction, round, SameTranslation, func(e wordbank.Entry) string { return e.Native })
	} else {
		g.engine.Reset(round)
	}
	g.pointer = nil
	g.hint = ""
}

// Round exposes the current round.
func (g *WordMatch) Round() *interaction.Round[wordbank.Entry] {
	return g.engine.Round()
}

func (g *WordMatch) Update(f Frame) {
	if g.engine == nil {
		g.Setup(f.Width, f.Height, f.At)
	}

	obs, ok := f.Primary()
	in := interaction.Input{At: f.At}
	if ok && obs.Present {
		in.Present = true
		in.Pointer = pointOf(obs)
		in.Confidence = obs.Gesture.Confidence
		in.Grab = obs.Gesture.Grab
	}
	if ok {
		p := pointOf(obs)
		g.pointer = &p
		g.hint = ""
	} else {
		g.pointer = nil
		g.hint = ShowHandHint
	}

	g.engine.Step(in)
}

func (g *WordMatch) Snapshot(now time.Time) Snapshot {
	s := Snapshot{Game: NameWordMatch, Hint: g.hint}
	if g.engine == nil {
		return s
	}
	r := g.engine.Round()
	s.Score = r.Score
	s.Completed = r.Completed
	s.Total = r.Total
	s.Complete = r.Complete()
	s.Phase = string(g.engine.Phase())
	s.Started = r.Started
	s.Elapsed = r.Elapsed(now)
	if held := g.engine.Held(); held != nil {
		s.Prompt = fmt.Sprintf("%s → ?", held.Payload.Native)
	} else if !s.Complete {
		s.Prompt = "Pinch a word and drop it on its meaning"
	}
	return s
}

func (g *WordMatch) Overlay() []Shape {
	if g.engine == nil {
		return nil
	}
	r := g.engine.Round()
	var shapes []Shape

	for _, d := range r.Destinations {
		c := Blue
		switch {
		case d.State == interaction.StateMatched:
			c = Green
		case d.Highlight:
			c = Red
		}
		shapes = append(shapes,
			rectShape(d.Rect, c, 2),
			textShape(d.Payload.Translation, interaction.Point{X: d.Rect.X + 10, Y: d.Rect.Y + 30}, c, 0.8),
		)
	}

	hovered := g.engine.Hovered()
	for _, s := range r.Sources {
		c := White
		switch {
		case s.State == interaction.StateMatched:
			c = Green
		case s.State == interaction.StateHeld:
			c = Yellow
		case s == hovered:
			c = Cyan
		}
		shapes = append(shapes,
			rectShape(s.Rect, c, 2),
			textShape(s.Payload.Native, interaction.Point{X: s.Rect.X + 10, Y: s.Rect.Y + 30}, c, 0.8),
		)
	}

	if hovered != nil {
		n, need := g.engine.DwellProgress()
		if need > 1 && n > 0 {
			w := hovered.Rect.W * float64(n) / float64(need)
			shapes = append(shapes, rectShape(interaction.Rect{X: hovered.Rect.X, Y: hovered.Rect.Y + hovered.Rect.H - 6, W: w, H: 6}, Cyan, -1))
		}
	}

	shapes = append(shapes, textShape(fmt.Sprintf("Score: %d", r.Score), interaction.Point{X: 20, Y: 40}, White, 0.8))
	if g.pointer != nil {
		shapes = append(shapes, circleShape(*g.pointer, 10, Cyan, -1))
	}
	if g.hint != "" {
		shapes = append(shapes, textShape(g.hint, interaction.Point{X: 20, Y: 80}, Yellow, 0.7))
	}
	if r.Complete() {
		shapes = append(shapes, textShape("Well done!", interaction.Point{X: 240, Y: 110}, Green, 1.2))
	}
	return shapes
}

func (g *WordMatch) Events() []interaction.Event {
	if g.engine == nil {
		return nil
	}
	return g.engine.Drain()
}
