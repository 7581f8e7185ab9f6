package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/detector"
	"github.com/ayusman/kaiplay/internal/game"
	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
	"github.com/ayusman/kaiplay/internal/logging"
	"github.com/ayusman/kaiplay/internal/metrics"
	"github.com/ayusman/kaiplay/internal/narration"
	"github.com/ayusman/kaiplay/internal/render"
	"github.com/ayusman/kaiplay/internal/store"
)

// State is what the shell shows of the running session.
type State struct {
	Running  bool                  `json:"running"`
	Game     string                `json:"game,omitempty"`
	Snapshot game.Snapshot         `json:"snapshot"`
	Overlay  []game.Shape          `json:"overlay,omitempty"`
	Hands    []gesture.Observation `json:"hands,omitempty"`
	Frames   uint64                `json:"frames"`
	Error    string                `json:"error,omitempty"`
}

// session runs one game from camera open to result.
type session struct {
	name     string
	game     game.Game
	camera   capture.Camera
	detector detector.Detector
	pool     *gesture.Pool
	filter   *capture.FrameFilter
	renderer *render.Renderer
	relay    *Relay
	metrics  *metrics.Metrics
	narrator narration.Narrator

	frameDelay      time.Duration
	linger          time.Duration
	sampleRadius    int
	maxDetectErrors int

	running atomic.Bool
	done    chan struct{}
	saved   chan struct{}

	// Loop-owned.
	ready        bool
	started      time.Time
	completedAt  time.Time
	mistakes     int
	detectErrors int

	mu     sync.RWMutex
	state  State
	result *store.Result
	err    error
}

func (s *session) Running() bool { return s.running.Load() }

// Stop asks the loop to exit after the current frame.
func (s *session) Stop() { s.running.Store(false) }

// Done is closed once Run has returned and every handle is released.
func (s *session) Done() <-chan struct{} { return s.done }

func (s *session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Running = s.running.Load()
	return st
}

// Result returns the round result once the session has ended.
func (s *session) Result() (*store.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.err
}

// Run drives the game loop until the round completes and lingers, Stop is
// called, or ctx ends. A camera that cannot be opened and a detector that
// stops working are errors; neither saves a result.
func (s *session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.running.Store(false)
	defer s.release()

	if err := s.camera.Open(); err != nil {
		s.fail(err)
		s.metrics.SessionEnded(s.name, metrics.OutcomeFailed)
		return fmt.Errorf("open camera: %w", err)
	}
	s.metrics.SessionStarted()
	mode := s.camera.Mode()
	logging.Info(logging.Fields{
		"game":   s.name,
		"camera": mode.Strategy,
		"width":  mode.Width,
		"height": mode.Height,
	}, "game session started")

	timer := time.NewTimer(s.frameDelay)
	defer timer.Stop()

	for s.running.Load() {
		if err := s.step(); err != nil {
			if errors.Is(err, detector.ErrUnavailable) {
				s.fail(err)
				s.metrics.SessionEnded(s.name, metrics.OutcomeFailed)
				return err
			}
			logging.Debug(logging.Fields{"game": s.name, "error": err}, "frame skipped")
		}

		if !s.completedAt.IsZero() && time.Since(s.completedAt) >= s.linger {
			break
		}

		timer.Reset(s.frameDelay)
		select {
		case <-ctx.Done():
			s.running.Store(false)
		case <-timer.C:
		}
	}

	s.finish()
	outcome := metrics.OutcomeStopped
	if !s.completedAt.IsZero() {
		outcome = metrics.OutcomeComplete
	}
	s.metrics.SessionEnded(s.name, outcome)
	return nil
}

func (s *session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.state.Error = err.Error()
}

func (s *session) release() {
	if err := s.camera.Close(); err != nil {
		logging.Warn(logging.Fields{"error": err}, "failed to close camera")
	}
	if err := s.detector.Close(); err != nil {
		logging.Warn(logging.Fields{"error": err}, "failed to close detector")
	}
	s.filter.Close()
}

// step processes one frame. Panics are recovered so a bad frame never ends
// the session.
func (s *session) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Skip(metrics.SkipPanic)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	now := time.Now()
	frame, err := s.camera.ReadFrame()
	if err != nil || frame == nil || frame.Empty() {
		if frame != nil {
			frame.Close()
		}
		s.metrics.Skip(metrics.SkipRead)
		if err == nil {
			err = capture.ErrNoFrame
		}
		return fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	s.filter.Apply(frame)
	width, height := frame.Cols(), frame.Rows()

	hands, err := s.detector.Detect(frame)
	if err != nil {
		s.metrics.Skip(metrics.SkipDetect)
		s.detectErrors++
		if s.detectErrors >= s.maxDetectErrors && !errors.Is(err, detector.ErrUnavailable) {
			err = fmt.Errorf("%w: %d frames failed in a row: %v", detector.ErrUnavailable, s.detectErrors, err)
		}
		return fmt.Errorf("detect: %w", err)
	}
	s.detectErrors = 0

	if !s.ready {
		s.game.Setup(width, height, now)
		s.ready = true
		s.started = now
	}

	observations := s.pool.Observe(hands, width, height)
	s.game.Update(game.Frame{
		At:      now,
		Width:   width,
		Height:  height,
		Hands:   observations,
		Sampler: s.sampler(frame),
	})

	events := s.game.Events()
	s.handleEvents(events)

	snap := s.game.Snapshot(now)
	if snap.Complete && s.completedAt.IsZero() {
		s.completedAt = now
	}

	overlay := s.game.Overlay()
	s.renderer.Draw(frame, overlay, observations)
	if data, err := s.renderer.Encode(frame); err == nil {
		s.relay.Publish(data)
	} else {
		logging.Debug(logging.Fields{"error": err}, "failed to encode frame")
	}

	tracked := 0
	for _, o := range observations {
		if o.Present {
			tracked++
		}
	}
	s.metrics.ObserveFrame(now, tracked)

	s.mu.Lock()
	s.state.Snapshot = snap
	s.state.Overlay = overlay
	s.state.Hands = observations
	s.state.Frames++
	s.mu.Unlock()
	return nil
}

// sampler reads colours from the frame before anything is drawn on it.
func (s *session) sampler(frame *gocv.Mat) game.ColorSampler {
	return game.SamplerFunc(func(x, y int) (capture.HSV, bool) {
		return capture.SampleHSV(frame, x, y, s.sampleRadius)
	})
}

func (s *session) handleEvents(events []interaction.Event) {
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		if e.Kind == interaction.EventRejected {
			s.mistakes++
		}
	}
	s.metrics.ObserveEvents(s.name, events)
	narration.Announce(s.narrator, events)
}

// finish records the round. Rounds that never saw a frame produce nothing.
func (s *session) finish() {
	if !s.ready {
		logging.Info(logging.Fields{"game": s.name}, "game session ended before the first frame")
		return
	}
	now := time.Now()
	snap := s.game.Snapshot(now)
	res := &store.Result{
		Game:       s.name,
		Score:      snap.Score,
		Completed:  snap.Completed,
		Total:      snap.Total,
		Complete:   snap.Complete,
		Mistakes:   s.mistakes,
		DurationMs: now.Sub(s.started).Milliseconds(),
		StartedAt:  s.started,
		FinishedAt: now,
	}
	if snap.Complete {
		res.DurationMs = s.completedAt.Sub(s.started).Milliseconds()
	}

	s.mu.Lock()
	s.result = res
	s.state.Snapshot = snap
	s.mu.Unlock()

	logging.Info(logging.Fields{
		"game":     s.name,
		"score":    res.Score,
		"complete": res.Complete,
		"mistakes": res.Mistakes,
	}, "game session ended")
}
