package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back prepared frames for testing. A nil entry in the
// frame list simulates a failed read.
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	reads   int
	openErr error
	mu      sync.Mutex
	running bool
}

// NewMockCamera plays frames in order, from the start again when loop is set.
// The frames stay owned by the caller; reads return clones.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

// FailOpen makes the next Open calls return err.
func (c *MockCamera) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	c.reads++

	if len(c.frames) == 0 {
		return nil, ErrNoFrame
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrNoFrame
		}
		c.index = 0
	}

	src := c.frames[c.index]
	c.index++
	if src == nil {
		return nil, ErrNoFrame
	}

	frame := src.Clone()
	return &frame, nil
}

// Mode reports the size of the first scripted frame.
func (c *MockCamera) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Mode{FPS: DefaultFPS, Strategy: "mock"}
	for _, f := range c.frames {
		if f != nil {
			m.Width, m.Height = f.Cols(), f.Rows()
			break
		}
	}
	return m
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns the number of ReadFrame calls made while open.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
