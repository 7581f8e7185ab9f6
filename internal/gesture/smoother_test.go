package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/kaiplay/internal/detector"
)

func TestSmoother_SingleFrameIsRaw(t *testing.T) {
	s := NewSmoother(3, 5)
	h := detector.OpenPalm(100, 200)

	got, ok := s.Push(h)
	if !ok {
		t.Fatal("Push() rejected a valid hand")
	}
	if got.Points != h.Points {
		t.Error("first frame must be returned unchanged")
	}
}

func TestSmoother_WeightsFavourNewest(t *testing.T) {
	s := NewSmoother(3, 5)
	s.Push(detector.OpenPalm(0, 0))
	got, _ := s.Push(detector.OpenPalm(30, 0))

	// weights 1/2 and 2/2: (0*0.5 + 30*1) / 1.5 = 20
	wrist := got.Points[detector.Wrist]
	if math.Abs(wrist.X-20) > 1e-9 {
		t.Errorf("wrist.X = %f, want 20", wrist.X)
	}

	got, _ = s.Push(detector.OpenPalm(60, 0))
	// weights 1/3, 2/3, 3/3 over 0, 30, 60: (0 + 20 + 60) / 2 = 40
	if x := got.Points[detector.Wrist].X; math.Abs(x-40) > 1e-9 {
		t.Errorf("wrist.X = %f, want 40", x)
	}
}

func TestSmoother_ConvergesOnConstantInput(t *testing.T) {
	s := NewSmoother(3, 5)
	s.Push(detector.Fist(0, 0))
	s.Push(detector.OpenPalm(500, 300))

	target := detector.OpenPalm(250, 250)
	var got detector.Hand
	for i := 0; i < 3; i++ {
		got, _ = s.Push(target)
	}

	for i, p := range got.Points {
		want := target.Points[i]
		if math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
			t.Fatalf("landmark %d = %+v, want %+v after window of constant input", i, p, want)
		}
	}
}

func TestSmoother_AbsenceDecay(t *testing.T) {
	s := NewSmoother(3, 3)
	s.Push(detector.Pointing(100, 100))

	s.Miss()
	s.Miss()
	if !s.Present() {
		t.Fatal("hand should still be held after 2 misses")
	}
	if last, ok := s.Last(); !ok || last.Points[detector.IndexTip] != detector.Pointing(100, 100).Points[detector.IndexTip] {
		t.Error("Last() should return the last smoothed hand")
	}

	s.Miss()
	if s.Present() {
		t.Error("hand should be forgotten after reaching the absence limit")
	}

	// A new hand after decay is not blended with the old one.
	fresh := detector.Pointing(400, 400)
	got, _ := s.Push(fresh)
	if got.Points != fresh.Points {
		t.Error("history must be cleared after decay")
	}
}

func TestSmoother_InvalidHandIsMiss(t *testing.T) {
	s := NewSmoother(3, 5)
	s.Push(detector.OpenPalm(0, 0))

	if _, ok := s.Push(detector.NewHand(make([]detector.Point, 4), "Right", 0.9)); ok {
		t.Error("Push() accepted a malformed hand")
	}
	if s.Misses() != 1 {
		t.Errorf("Misses() = %d, want 1", s.Misses())
	}
}
