// Package capture provides camera capture and frame preprocessing using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/kaiplay/internal/logging"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 800
	DefaultHeight = 600

	// WarmupFrames is how many reads an open attempt gets before its last
	// frame is checked for blackness.
	WarmupFrames = 8
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned for a failed or empty read.
	ErrNoFrame = errors.New("no frame")

	// ErrCameraUnavailable is returned when every open strategy fails to
	// produce a usable frame.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Camera is a frame source. ReadFrame fails with ErrCameraNotOpen before Open
// and with ErrNoFrame on a bad read.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	Mode() Mode
	IsOpen() bool
}

// Mode is the negotiated capture mode of an open camera.
type Mode struct {
	Width    int
	Height   int
	FPS      int
	Strategy string
}

// Config selects the device and the requested capture mode.
type Config struct {
	Device int
	Width  int
	Height int
	FPS    int
}

// DefaultConfig returns settings for the first camera at 800x600@30.
func DefaultConfig() Config {
	return Config{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}
}

// openAttempt is one strategy for getting frames out of a webcam. Cheap
// drivers often open fine and then deliver black frames until the codec or
// exposure is changed, so strategies are tried in order until one warms up
// with a lit frame.
type openAttempt struct {
	name         string
	api          gocv.VideoCaptureAPI
	codec        string
	defaultCodec bool
	autoExposure bool
	baseline     bool
}

func openAttempts() []openAttempt {
	native := gocv.VideoCaptureAny
	if runtime.GOOS == "windows" {
		native = gocv.VideoCaptureDshow
	}
	return []openAttempt{
		{name: "native+MJPG", api: native, codec: "MJPG"},
		{name: "native+MJPG+auto-exposure", api: native, codec: "MJPG", autoExposure: true},
		{name: "native+default-codec", api: native, defaultCodec: true},
		{name: "default-backend", api: gocv.VideoCaptureAny},
		{name: "baseline-640x480@30", api: gocv.VideoCaptureAny, autoExposure: true, baseline: true},
	}
}

// cameraImpl captures from a local device through OpenCV.
type cameraImpl struct {
	config Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mode    Mode
}

// NewCamera creates a new Camera for the given configuration. Zero fields
// fall back to DefaultConfig values.
func NewCamera(config Config) Camera {
	def := DefaultConfig()
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = def.Width, def.Height
	}
	if config.FPS <= 0 {
		config.FPS = def.FPS
	}
	return &cameraImpl{config: config}
}

// Open opens the camera, trying each strategy in turn until one yields a
// non-black frame after warm-up.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	var tried []string
	for _, attempt := range openAttempts() {
		capture, err := c.try(attempt)
		if err != nil {
			tried = append(tried, attempt.name)
			logging.Debug(logging.Fields{"device": c.config.Device, "attempt": attempt.name, "error": err.Error()}, "camera open attempt failed")
			continue
		}
		c.capture = capture
		c.mode = Mode{
			Width:    int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height:   int(capture.Get(gocv.VideoCaptureFrameHeight)),
			FPS:      int(capture.Get(gocv.VideoCaptureFPS)),
			Strategy: attempt.name,
		}
		logging.Info(logging.Fields{
			"device":   c.config.Device,
			"strategy": attempt.name,
			"width":    c.mode.Width,
			"height":   c.mode.Height,
			"fps":      c.mode.FPS,
		}, "camera opened")
		return nil
	}

	return fmt.Errorf("%w: device %d, tried %s", ErrCameraUnavailable, c.config.Device, strings.Join(tried, ", "))
}

func (c *cameraImpl) try(a openAttempt) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCaptureWithAPI(c.config.Device, a.api)
	if err != nil {
		return nil, err
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, ErrCameraNotOpen
	}

	width, height, fps := c.config.Width, c.config.Height, c.config.FPS
	if a.baseline {
		width, height, fps = 640, 480, 30
	}

	switch {
	case a.codec != "":
		capture.Set(gocv.VideoCaptureFOURCC, capture.ToCodec(a.codec))
	case a.defaultCodec:
		capture.Set(gocv.VideoCaptureFOURCC, 0)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	capture.Set(gocv.VideoCaptureFPS, float64(fps))
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	if a.autoExposure {
		// 0.75 turns auto exposure on under the DirectShow convention.
		capture.Set(gocv.VideoCaptureAutoExposure, 0.75)
		capture.Set(gocv.VideoCaptureExposure, 0)
	}

	if !warmup(capture, WarmupFrames) {
		capture.Close()
		return nil, errors.New("no lit frame after warm-up")
	}
	return capture, nil
}

// warmup reads n frames and reports whether the last successful one is lit.
func warmup(capture *gocv.VideoCapture, n int) bool {
	last := gocv.NewMat()
	defer last.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	got := false
	for i := 0; i < n; i++ {
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			continue
		}
		frame.CopyTo(&last)
		got = true
	}
	return got && !IsBlack(&last)
}

// Close releases the device. Closing a closed camera is a no-op.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	capture := c.capture
	c.capture, c.mode = nil, Mode{}
	if capture == nil {
		return nil
	}
	return capture.Close()
}

// ReadFrame returns the next frame. The caller closes it.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	return &mat, nil
}

// Mode reports what the driver actually delivers, which may differ from
// the requested Config.
func (c *cameraImpl) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
