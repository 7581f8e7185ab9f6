package interaction

import "time"

// Role tells sources (things you pick up) from destinations (things you
// drop onto).
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// TargetState is the lifecycle of a target. A target is in exactly one state.
type TargetState string

const (
	StateAvailable TargetState = "available"
	StateHeld      TargetState = "held"
	StateMatched   TargetState = "matched"
)

// Target is an on-screen zone carrying a payload.
type Target[P any] struct {
	Index   int         `json:"index"`
	Role    Role        `json:"role"`
	Home    Rect        `json:"home"`
	Rect    Rect        `json:"rect"`
	Payload P           `json:"payload"`
	State   TargetState `json:"state"`
	// Mistakes counts rejected drops of this source.
	Mistakes int `json:"mistakes"`
	// Highlight marks a destination the held source is hovering over without
	// matching. It is cleared every frame.
	Highlight bool `json:"highlight"`
}

// Center returns the centre of the target's current rectangle.
func (t *Target[P]) Center() Point {
	return t.Rect.Center()
}

// Open reports whether the target still takes part in hit tests.
func (t *Target[P]) Open() bool {
	return t.State != StateMatched
}

func (t *Target[P]) returnHome() {
	t.Rect = t.Home
	t.State = StateAvailable
}

// Placement is a target's initial rectangle and payload.
type Placement[P any] struct {
	Rect    Rect
	Payload P
}

// Round is one game round of paired targets.
type Round[P any] struct {
	Sources      []*Target[P] `json:"sources"`
	Destinations []*Target[P] `json:"destinations"`
	Score        int          `json:"score"`
	Completed    int          `json:"completed"`
	// Total is the number of pairs the round started with.
	Total    int       `json:"total"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
}

// NewRound lays out sources and destinations. Total is the smaller of the
// two counts.
func NewRound[P any](sources, destinations []Placement[P], at time.Time) *Round[P] {
	r := &Round[P]{
		Sources:      make([]*Target[P], len(sources)),
		Destinations: make([]*Target[P], len(destinations)),
		Total:        min(len(sources), len(destinations)),
		Started:      at,
	}
	for i, p := range sources {
		r.Sources[i] = &Target[P]{Index: i, Role: RoleSource, Home: p.Rect, Rect: p.Rect, Payload: p.Payload, State: StateAvailable}
	}
	for i, p := range destinations {
		r.Destinations[i] = &Target[P]{Index: i, Role: RoleDestination, Home: p.Rect, Rect: p.Rect, Payload: p.Payload, State: StateAvailable}
	}
	return r
}

// Complete reports whether every pair has been matched.
func (r *Round[P]) Complete() bool {
	return r.Completed == r.Total
}

// Elapsed returns the time from start to finish, or to now while running.
func (r *Round[P]) Elapsed(now time.Time) time.Duration {
	if !r.Finished.IsZero() {
		return r.Finished.Sub(r.Started)
	}
	return now.Sub(r.Started)
}

// SourceAt returns the lowest-indexed available source containing p.
func (r *Round[P]) SourceAt(p Point) *Target[P] {
	for _, t := range r.Sources {
		if t.State == StateAvailable && t.Rect.Contains(p) {
			return t
		}
	}
	return nil
}

// DestinationAt returns the lowest-indexed open destination containing p.
func (r *Round[P]) DestinationAt(p Point) *Target[P] {
	for _, t := range r.Destinations {
		if t.Open() && t.Rect.Contains(p) {
			return t
		}
	}
	return nil
}

// NearestDestination returns the open destination whose centre is closest
// to p, with its distance.
func (r *Round[P]) NearestDestination(p Point) (*Target[P], float64) {
	centres := make([]Point, len(r.Destinations))
	for i, t := range r.Destinations {
		centres[i] = t.Center()
	}
	i, d := Nearest(centres, p, func(i int) bool { return r.Destinations[i].Open() })
	if i < 0 {
		return nil, d
	}
	return r.Destinations[i], d
}
