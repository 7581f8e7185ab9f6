package interaction

import (
	"sync"
	"time"
)

// EventKind names a feedback event.
type EventKind string

const (
	EventGrabbed       EventKind = "grabbed"
	EventMatched       EventKind = "matched"
	EventRejected      EventKind = "rejected"
	EventWrongTarget   EventKind = "wrong_target"
	EventDropped       EventKind = "dropped"
	EventCancelled     EventKind = "cancelled"
	EventRoundComplete EventKind = "round_complete"

	// Emitted by variants that do not drag.
	EventAwarded    EventKind = "awarded"
	EventEliminated EventKind = "eliminated"
	EventLevelUp    EventKind = "level_up"
	EventPrompt     EventKind = "prompt"
)

// Event is a discrete gameplay transition for the presentation layer. The
// presentation layer owns any fade or animation timing.
type Event struct {
	Kind   EventKind `json:"kind"`
	Source int       `json:"source"`
	Dest   int       `json:"dest"`
	Label  string    `json:"label,omitempty"`
	Score  int       `json:"score"`
	// Elapsed is the round time, set on round_complete.
	Elapsed time.Duration `json:"elapsed,omitempty"`
	At      time.Time     `json:"at"`
}

// Feedback is an append-only event queue drained once per frame.
type Feedback struct {
	mu     sync.Mutex
	events []Event
}

// Push appends an event.
func (f *Feedback) Push(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

// Drain returns the queued events and empties the queue.
func (f *Feedback) Drain() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	return out
}

// Streak confirms a condition after it holds for a run of consecutive
// frames. It fires once per run.
type Streak struct {
	need  int
	run   int
	fired bool
}

// NewStreak creates a Streak needing n consecutive frames (at least 1).
func NewStreak(n int) *Streak {
	return &Streak{need: max(n, 1)}
}

// Observe records one frame and reports true on the frame the run reaches
// its required length.
func (s *Streak) Observe(ok bool) bool {
	if !ok {
		s.run = 0
		s.fired = false
		return false
	}
	s.run++
	if !s.fired && s.run >= s.need {
		s.fired = true
		return true
	}
	return false
}

// Run returns the current run length.
func (s *Streak) Run() int { return s.run }

// Need returns the required run length.
func (s *Streak) Need() int { return s.need }

// Reset clears the run.
func (s *Streak) Reset() {
	s.run = 0
	s.fired = false
}

// Edge detects false to true transitions.
type Edge struct {
	prev bool
}

// Rising reports whether v is true and the previous value was false.
func (e *Edge) Rising(v bool) bool {
	rising := v && !e.prev
	e.prev = v
	return rising
}
