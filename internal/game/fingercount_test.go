package game

import (
	"testing"
	"time"

	"github.com/ayusman/kaiplay/internal/interaction"
)

func TestFingerCount_StableHold(t *testing.T) {
	cfg := DefaultFingerConfig()
	cfg.StableFrames = 5
	g := NewFingerCount(cfg, seeded())
	g.Setup(width, height, start)
	clock := &frameClock{at: start}
	g.Events()

	target := g.Target()
	wrong := target%3 + 1

	for range 4 {
		g.Update(clock.frame(fingers(target)...))
	}
	g.Update(clock.frame(fingers(wrong)...))
	if s := g.Snapshot(clock.at); s.Score != 0 {
		t.Fatalf("Score after interrupted hold = %d, want 0", s.Score)
	}

	for range 5 {
		g.Update(clock.frame(fingers(target)...))
	}
	if s := g.Snapshot(clock.at); s.Score != 10 {
		t.Fatalf("Score after full hold = %d, want 10", s.Score)
	}
	if g.Target() == target {
		t.Errorf("target %d repeated after an award", target)
	}

	// Holding the old count must not score again.
	for range 10 {
		g.Update(clock.frame(fingers(target)...))
	}
	if s := g.Snapshot(clock.at); s.Score != 10 {
		t.Errorf("Score = %d, want a single award", s.Score)
	}

	got := kinds(g.Events())
	if got[interaction.EventAwarded] != 1 || got[interaction.EventPrompt] != 1 {
		t.Errorf("events = %v, want one award and one new prompt", got)
	}
}

func TestFingerCount_CountsBothHands(t *testing.T) {
	cfg := DefaultFingerConfig()
	cfg.StableFrames = 1
	cfg.Levels = [][2]int{{7, 7}}
	g := NewFingerCount(cfg, seeded())
	g.Setup(width, height, start)
	clock := &frameClock{at: start}

	g.Update(clock.frame(fingers(5)...))
	if g.Snapshot(clock.at).Score != 0 {
		t.Fatal("one open hand should not count as seven")
	}

	hands := fingers(7)
	if len(hands) != 2 {
		t.Fatalf("fingers(7) built %d hands", len(hands))
	}
	g.Update(clock.frame(hands...))
	if g.Snapshot(clock.at).Score != 10 {
		t.Error("five plus two fingers should count as seven")
	}
}

func TestFingerCount_ProgressAndCompletion(t *testing.T) {
	cfg := DefaultFingerConfig()
	cfg.StableFrames = 1
	g := NewFingerCount(cfg, seeded())
	g.Setup(width, height, start)
	clock := &frameClock{at: start}

	for i := 0; i < cfg.Goal; i++ {
		lo, hi := cfg.Levels[g.Level()][0], cfg.Levels[g.Level()][1]
		if g.Target() < lo || g.Target() > hi {
			t.Fatalf("target %d outside level range %d-%d", g.Target(), lo, hi)
		}
		g.Update(clock.frame(fingers(g.Target())...))
		if i == 2 && g.Level() != 1 {
			t.Errorf("Level() after 30 points = %d, want 1", g.Level())
		}
	}

	s := g.Snapshot(clock.at)
	if !s.Complete || s.Score != 100 || s.Completed != cfg.Goal {
		t.Fatalf("snapshot = %+v, want complete with 100 points", s)
	}
	if s.Prompt != "" {
		t.Errorf("Prompt = %q, want empty once complete", s.Prompt)
	}

	events := kinds(g.Events())
	if events[interaction.EventRoundComplete] != 1 || events[interaction.EventLevelUp] != 3 {
		t.Errorf("events = %v, want one completion and three level ups", events)
	}

	g.Update(clock.frame(fingers(3)...))
	if g.Snapshot(clock.at).Score != 100 {
		t.Error("a complete round must not score")
	}
	if el := g.Snapshot(clock.at.Add(time.Minute)).Elapsed; el != s.Elapsed {
		t.Errorf("Elapsed moved after completion: %v != %v", el, s.Elapsed)
	}
}
