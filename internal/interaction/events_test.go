package interaction

import "testing"

func TestStreak(t *testing.T) {
	tests := []struct {
		name   string
		need   int
		frames []bool
		fires  int
	}{
		{"one short then break", 3, []bool{true, true, false, true}, 0},
		{"exact run", 3, []bool{true, true, true}, 1},
		{"long run fires once", 3, []bool{true, true, true, true, true, true}, 1},
		{"two separate runs", 2, []bool{true, true, false, true, true}, 2},
		{"need below one acts as one", 0, []bool{true, false, true}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStreak(tt.need)
			fires := 0
			for _, ok := range tt.frames {
				if s.Observe(ok) {
					fires++
				}
			}
			if fires != tt.fires {
				t.Errorf("fired %d times, want %d", fires, tt.fires)
			}
		})
	}
}

func TestEdge(t *testing.T) {
	var e Edge
	seq := []bool{false, true, true, false, true}
	want := []bool{false, true, false, false, true}
	for i, v := range seq {
		if got := e.Rising(v); got != want[i] {
			t.Errorf("frame %d: Rising(%v) = %v, want %v", i, v, got, want[i])
		}
	}
}

func TestFeedback_Drain(t *testing.T) {
	var f Feedback
	f.Push(Event{Kind: EventMatched})
	f.Push(Event{Kind: EventRoundComplete})

	if got := f.Drain(); len(got) != 2 {
		t.Fatalf("Drain() returned %d events, want 2", len(got))
	}
	if got := f.Drain(); len(got) != 0 {
		t.Errorf("second Drain() returned %d events, want 0", len(got))
	}
}
