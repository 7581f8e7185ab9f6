package capture

import (
	"errors"
	"testing"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   Config
	}{
		{"zero config", Config{}, DefaultConfig()},
		{"device 1 at 60 fps", Config{Device: 1, Width: 1280, Height: 720, FPS: 60}, Config{Device: 1, Width: 1280, Height: 720, FPS: 60}},
		{"negative fps", Config{Device: 2, Width: 640, Height: 480, FPS: -1}, Config{Device: 2, Width: 640, Height: 480, FPS: DefaultFPS}},
		{"half a size", Config{Width: 640}, Config{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)
			if got := cam.(*cameraImpl).config; got != tt.want {
				t.Errorf("config = %+v, want %+v", got, tt.want)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open initially")
			}
			if m := cam.Mode(); m != (Mode{}) {
				t.Errorf("Mode() before Open = %+v, want zero", m)
			}
		})
	}
}

func TestOpenAttempts_EndWithBaseline(t *testing.T) {
	attempts := openAttempts()
	if len(attempts) != 5 {
		t.Fatalf("got %d attempts, want 5", len(attempts))
	}
	last := attempts[len(attempts)-1]
	if !last.baseline || !last.autoExposure {
		t.Errorf("last attempt = %+v, want baseline with auto exposure", last)
	}
	if attempts[0].codec != "MJPG" {
		t.Errorf("first attempt codec = %q, want MJPG", attempts[0].codec)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(Config{Device: 0, Width: 640, Height: 480})

	err := cam.Open()
	if err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}
	if m := cam.Mode(); m.Width == 0 || m.Strategy == "" {
		t.Errorf("Mode() after Open = %+v", m)
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}
