package game

import (
	"math"
	"testing"

	"github.com/ayusman/kaiplay/internal/interaction"
)

func TestElimination_PinchEdge(t *testing.T) {
	cfg := DefaultEliminationConfig()
	cfg.Count = 2
	cfg.MaxStep = 0
	g := NewElimination(cfg, seeded())
	g.Setup(width, height, start)
	clock := &frameClock{at: start}

	first := interaction.Point{X: 150, Y: 200}
	second := interaction.Point{X: 450, Y: 300}
	g.entities[0].Pos = first
	g.entities[1].Pos = second

	// Pinching outside the hit radius catches nothing.
	g.Update(clock.frame(hand(first.X+cfg.HitRadius+5, first.Y, true)))
	g.Update(clock.frame(hand(first.X+cfg.HitRadius+5, first.Y, false)))
	if g.Snapshot(clock.at).Completed != 0 {
		t.Fatal("pinch outside the hit radius caught an entity")
	}

	g.Update(clock.frame(hand(first.X, first.Y, true)))
	if g.Entities()[0].Alive {
		t.Fatal("pinch on the first entity should catch it")
	}

	// A held pinch is not a new pinch.
	g.Update(clock.frame(hand(second.X, second.Y, true)))
	if !g.Entities()[1].Alive {
		t.Fatal("a held pinch must not catch again")
	}

	g.Update(clock.frame(hand(second.X, second.Y, false)))
	g.Update(clock.frame(hand(second.X, second.Y, true)))

	s := g.Snapshot(clock.at)
	if !s.Complete || s.Score != 20 || s.Completed != 2 {
		t.Errorf("snapshot = %+v, want both caught", s)
	}
	got := kinds(g.Events())
	if got[interaction.EventEliminated] != 2 || got[interaction.EventRoundComplete] != 1 {
		t.Errorf("events = %v", got)
	}
}

func TestElimination_BoundedWalk(t *testing.T) {
	cfg := DefaultEliminationConfig()
	cfg.Count = 5
	g := NewElimination(cfg, seeded())
	g.Setup(width, height, start)
	clock := &frameClock{at: start}

	prev := make([]interaction.Point, cfg.Count)
	for range 200 {
		for i, e := range g.Entities() {
			prev[i] = e.Pos
		}
		g.Update(clock.frame())
		for i, e := range g.Entities() {
			if math.Abs(e.Pos.X-prev[i].X) > cfg.MaxStep || math.Abs(e.Pos.Y-prev[i].Y) > cfg.MaxStep {
				t.Fatalf("entity %d jumped from %+v to %+v", i, prev[i], e.Pos)
			}
			if e.Pos.X < cfg.Radius || e.Pos.X > width-cfg.Radius || e.Pos.Y < cfg.Radius || e.Pos.Y > height-cfg.Radius {
				t.Fatalf("entity %d left the frame: %+v", i, e.Pos)
			}
		}
	}
}

func TestElimination_NotCompleteBeforeSetup(t *testing.T) {
	g := NewElimination(DefaultEliminationConfig(), seeded())
	if g.Snapshot(start).Complete {
		t.Error("an unstarted game is not complete")
	}
}
