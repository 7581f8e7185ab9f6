package interaction

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the engine's position in the grab and drop cycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseHover    Phase = "hover"
	PhaseDragging Phase = "dragging"
	PhaseMatched  Phase = "matched"
	PhaseRejected Phase = "rejected"
)

// GrabPolicy decides when a hovered source is picked up.
type GrabPolicy string

const (
	// GrabImmediate picks up on the first frame the grab gesture is seen.
	GrabImmediate GrabPolicy = "immediate"
	// GrabDwell needs the gesture held over the same source for DwellFrames.
	GrabDwell GrabPolicy = "dwell"
)

// DropPolicy decides when a held source is compared with a destination.
type DropPolicy string

const (
	// DropAutoProximity commits as soon as the held source comes within the
	// snap radius of a matching destination.
	DropAutoProximity DropPolicy = "auto"
	// DropOnRelease compares only when the grab gesture ends.
	DropOnRelease DropPolicy = "release"
)

// LostPolicy decides what happens to a held source when the hand disappears.
type LostPolicy string

const (
	// LostHoldLast leaves the source where it was last seen until the hand
	// returns.
	LostHoldLast LostPolicy = "hold"
	// LostCancel returns the source home after LostGrace frames.
	LostCancel LostPolicy = "cancel"
)

// Config tunes the engine. Values are fixed for the engine's lifetime.
type Config struct {
	GrabPolicy GrabPolicy
	DropPolicy DropPolicy
	LostPolicy LostPolicy

	// GrabConfidence is the minimum hand confidence for hovering and grabbing.
	GrabConfidence float64
	DwellFrames    int
	// SnapRadius is the distance from a destination centre within which a
	// held source counts as over it.
	SnapRadius float64
	LostGrace  int
	// ReleaseFrames is how long an auto-proximity drag may be released away
	// from any match before the source goes home. On release drops it is how
	// long a hand returning from a tracking gap must stay open before its
	// release counts.
	ReleaseFrames int
	Reward        int
}

// DefaultConfig returns the latched pinch configuration.
func DefaultConfig() Config {
	return Config{
		GrabPolicy:     GrabDwell,
		DropPolicy:     DropAutoProximity,
		LostPolicy:     LostHoldLast,
		GrabConfidence: 0.5,
		DwellFrames:    3,
		SnapRadius:     80,
		LostGrace:      15,
		ReleaseFrames:  5,
		Reward:         10,
	}
}

// Validate checks policy names and thresholds.
func (c Config) Validate() error {
	var problems []string
	switch c.GrabPolicy {
	case GrabImmediate, GrabDwell:
	default:
		problems = append(problems, fmt.Sprintf("grab policy %q", c.GrabPolicy))
	}
	switch c.DropPolicy {
	case DropAutoProximity, DropOnRelease:
	default:
		problems = append(problems, fmt.Sprintf("drop policy %q", c.DropPolicy))
	}
	switch c.LostPolicy {
	case LostHoldLast, LostCancel:
	default:
		problems = append(problems, fmt.Sprintf("lost policy %q", c.LostPolicy))
	}
	if c.SnapRadius < 0 {
		problems = append(problems, "negative snap radius")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid interaction config: %s", strings.Join(problems, ", "))
	}
	return nil
}

// Input is one frame of pointer and gesture data for the engine.
type Input struct {
	Present    bool
	Pointer    Point
	Confidence float64
	Grab       bool
	At         time.Time
}

// MatchFunc reports whether a source payload belongs on a destination payload.
type MatchFunc[P any] func(source, destination P) bool

// drag is the state of an active grab.
type drag[P any] struct {
	held     *Target[P]
	offset   Point
	lost     int
	released int
	wrong    int
	// reacquired is set when the hand returns after a gap and cleared once
	// the grab gesture is seen again.
	reacquired bool
}

// Engine runs the grab, drag and drop state machine over a Round. It is
// owned by a single game loop and is not safe for concurrent use.
type Engine[P any] struct {
	config   Config
	match    MatchFunc[P]
	label    func(P) string
	round    *Round[P]
	phase    Phase
	session  *drag[P]
	hovered  *Target[P]
	dwell    int
	rearm    bool
	feedback Feedback
}

// NewEngine creates an engine over round. label names payloads in events
// and may be nil.
func NewEngine[P any](config Config, round *Round[P], match MatchFunc[P], label func(P) string) *Engine[P] {
	config.DwellFrames = max(config.DwellFrames, 1)
	config.ReleaseFrames = max(config.ReleaseFrames, 1)
	config.LostGrace = max(config.LostGrace, 1)
	return &Engine[P]{
		config: config,
		match:  match,
		label:  label,
		round:  round,
		phase:  PhaseIdle,
	}
}

// Round returns the round the engine is driving.
func (e *Engine[P]) Round() *Round[P] { return e.round }

// Phase returns the phase reached by the last Step.
func (e *Engine[P]) Phase() Phase { return e.phase }

// Held returns the source being dragged, or nil.
func (e *Engine[P]) Held() *Target[P] {
	if e.session == nil {
		return nil
	}
	return e.session.held
}

// Hovered returns the source under the pointer while hovering, or nil.
func (e *Engine[P]) Hovered() *Target[P] {
	if e.phase != PhaseHover {
		return nil
	}
	return e.hovered
}

// DwellProgress returns the dwell count and the count needed to grab.
func (e *Engine[P]) DwellProgress() (int, int) {
	if e.config.GrabPolicy == GrabImmediate {
		return e.dwell, 1
	}
	return e.dwell, e.config.DwellFrames
}

// Drain returns and clears pending feedback events.
func (e *Engine[P]) Drain() []Event {
	return e.feedback.Drain()
}

// Reset starts a new round, discarding any drag in progress.
func (e *Engine[P]) Reset(round *Round[P]) {
	e.round = round
	e.phase = PhaseIdle
	e.session = nil
	e.hovered = nil
	e.dwell = 0
	e.rearm = false
	e.feedback.Drain()
}

// Step advances the state machine by one frame and returns the new phase.
// Once the round is complete Step does nothing.
func (e *Engine[P]) Step(in Input) Phase {
	if e.round == nil || e.round.Complete() {
		return e.phase
	}

	for _, d := range e.round.Destinations {
		d.Highlight = false
	}
	if e.phase == PhaseMatched || e.phase == PhaseRejected {
		e.phase = PhaseIdle
	}
	if !in.Grab {
		e.rearm = false
	}

	switch e.phase {
	case PhaseDragging:
		e.stepDragging(in)
	default:
		e.stepIdle(in)
	}
	return e.phase
}

func (e *Engine[P]) stepIdle(in Input) {
	if !in.Present || in.Confidence < e.config.GrabConfidence {
		e.idle()
		return
	}

	target := e.round.SourceAt(in.Pointer)
	if target == nil {
		e.idle()
		return
	}

	e.phase = PhaseHover
	if target != e.hovered {
		e.hovered = target
		e.dwell = 0
	}
	if !in.Grab || e.rearm {
		e.dwell = 0
		return
	}

	e.dwell++
	need := 1
	if e.config.GrabPolicy == GrabDwell {
		need = e.config.DwellFrames
	}
	if e.dwell >= need {
		e.grab(target, in)
	}
}

func (e *Engine[P]) idle() {
	e.phase = PhaseIdle
	e.hovered = nil
	e.dwell = 0
}

func (e *Engine[P]) grab(t *Target[P], in Input) {
	t.State = StateHeld
	e.session = &drag[P]{
		held:   t,
		offset: in.Pointer.Sub(t.Center()),
		wrong:  -1,
	}
	e.phase = PhaseDragging
	e.hovered = nil
	e.dwell = 0
	e.emit(EventGrabbed, t.Index, -1, t.Payload, in.At)
}

func (e *Engine[P]) stepDragging(in Input) {
	s := e.session

	if !in.Present {
		s.lost++
		if e.config.LostPolicy == LostCancel && s.lost >= e.config.LostGrace {
			e.release(EventCancelled, in.At)
			e.rearm = true
		}
		return
	}
	if s.lost > 0 {
		s.reacquired = true
		s.released = 0
	}
	s.lost = 0

	s.held.Rect = s.held.Rect.CenteredAt(in.Pointer.Sub(s.offset))

	if e.config.DropPolicy == DropOnRelease {
		if in.Grab {
			s.reacquired = false
			s.released = 0
			return
		}
		// A returning hand reads as open until its gesture settles again.
		if s.reacquired {
			s.released++
			if s.released < e.config.ReleaseFrames {
				return
			}
		}
		dest := e.round.DestinationAt(in.Pointer)
		if dest == nil {
			if near, d := e.round.NearestDestination(s.held.Center()); near != nil && d <= e.config.SnapRadius {
				dest = near
			}
		}
		switch {
		case dest == nil:
			e.release(EventDropped, in.At)
		case e.match(s.held.Payload, dest.Payload):
			e.commit(dest, in.At)
		default:
			e.reject(dest, in.At)
		}
		return
	}

	near, d := e.round.NearestDestination(s.held.Center())
	if near != nil && d <= e.config.SnapRadius {
		if e.match(s.held.Payload, near.Payload) {
			e.commit(near, in.At)
			e.rearm = in.Grab
			return
		}
		near.Highlight = true
		if s.wrong != near.Index {
			s.wrong = near.Index
			e.emit(EventWrongTarget, s.held.Index, near.Index, s.held.Payload, in.At)
		}
	} else {
		s.wrong = -1
	}

	if in.Grab {
		s.released = 0
		return
	}
	s.released++
	if s.released >= e.config.ReleaseFrames {
		e.release(EventDropped, in.At)
	}
}

// commit marks the held source and dest as matched.
func (e *Engine[P]) commit(dest *Target[P], at time.Time) {
	src := e.session.held
	src.State = StateMatched
	src.Rect = src.Rect.CenteredAt(dest.Center())
	dest.State = StateMatched

	e.round.Score += e.config.Reward
	e.round.Completed++
	e.session = nil
	e.phase = PhaseMatched
	e.emit(EventMatched, src.Index, dest.Index, src.Payload, at)

	if e.round.Complete() {
		e.round.Finished = at
		e.feedback.Push(Event{
			Kind:    EventRoundComplete,
			Source:  -1,
			Dest:    -1,
			Score:   e.round.Score,
			Elapsed: e.round.Elapsed(at),
			At:      at,
		})
	}
}

func (e *Engine[P]) reject(dest *Target[P], at time.Time) {
	src := e.session.held
	src.Mistakes++
	src.returnHome()
	e.session = nil
	e.phase = PhaseRejected
	e.emit(EventRejected, src.Index, dest.Index, src.Payload, at)
}

// release returns the held source home without penalty.
func (e *Engine[P]) release(kind EventKind, at time.Time) {
	src := e.session.held
	src.returnHome()
	e.session = nil
	e.phase = PhaseIdle
	e.emit(kind, src.Index, -1, src.Payload, at)
}

func (e *Engine[P]) emit(kind EventKind, source, dest int, payload P, at time.Time) {
	ev := Event{Kind: kind, Source: source, Dest: dest, Score: e.round.Score, At: at}
	if e.label != nil {
		ev.Label = e.label(payload)
	}
	e.feedback.Push(ev)
}
