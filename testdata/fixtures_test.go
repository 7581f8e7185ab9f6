package testdata

import (
	"image/color"
	"math"
	"testing"

	"github.com/ayusman/kaiplay/internal/capture"
)

func TestPatchFrame(t *testing.T) {
	tests := []struct {
		name    string
		color   color.RGBA
		wantHue float64
	}{
		{"green", Green, 63},
		{"blue", Blue, 117},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := PatchFrame(640, 480, 320, 240, 30, tt.color)
			defer m.Close()

			if m.Cols() != 640 || m.Rows() != 480 {
				t.Fatalf("frame is %dx%d", m.Cols(), m.Rows())
			}
			got, ok := capture.SampleHSV(m, 320, 240, 5)
			if !ok {
				t.Fatal("SampleHSV() reported no sample")
			}
			if math.Abs(got.H-tt.wantHue) > 5 || got.S < 150 {
				t.Errorf("patch HSV = %+v, want hue near %v", got, tt.wantHue)
			}

			outside, _ := capture.SampleHSV(m, 20, 20, 5)
			if outside.V != 0 {
				t.Errorf("background V = %v, want 0", outside.V)
			}
		})
	}
}

func TestSequence(t *testing.T) {
	src := SolidFrame(32, 24, Red)
	defer src.Close()

	frames := Sequence(src, 3)
	defer CloseAll(frames)

	if len(frames) != 3 {
		t.Fatalf("len = %d", len(frames))
	}
	for i, f := range frames {
		if f == src || f.Cols() != 32 || f.Rows() != 24 {
			t.Errorf("frame %d is not an independent copy", i)
		}
	}
}
