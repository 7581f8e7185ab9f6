package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gocv.io/x/gocv"

	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/detector"
	"github.com/ayusman/kaiplay/internal/game"
	"github.com/ayusman/kaiplay/internal/metrics"
	"github.com/ayusman/kaiplay/internal/store"
)

type rig struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	store    *store.Store
	metrics  *metrics.Metrics
	spoken   *spoken
}

type spoken struct{ ch chan string }

func (s *spoken) Say(text string) {
	select {
	case s.ch <- text:
	default:
	}
}

// newRig builds an App over a looping mock camera and a mock detector.
func newRig(t *testing.T, frames []*gocv.Mat, tune func(*Config)) *rig {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	r := &rig{
		camera:   capture.NewMockCamera(frames, true),
		detector: detector.NewMockDetector(),
		store:    st,
		metrics:  metrics.NewMetrics("test", prometheus.NewRegistry()),
		spoken:   &spoken{ch: make(chan string, 64)},
	}

	cfg := DefaultConfig()
	cfg.FrameDelay = time.Millisecond
	cfg.CompletionLinger = 0
	cfg.Filter.Blend = 0
	if tune != nil {
		tune(&cfg)
	}

	r.app = New(cfg, Options{
		Store:       st,
		Metrics:     r.metrics,
		Narrator:    r.spoken,
		NewCamera:   func(capture.Config) capture.Camera { return r.camera },
		NewDetector: func(detector.Config) (detector.Detector, error) { return r.detector, nil },
	})
	t.Cleanup(func() { r.app.Close() })
	return r
}

func blankFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(600, 800, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &m
}

func waitSession(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("session did not end: %v", err)
	}
}

func waitFrames(t *testing.T, a *App, n uint64) State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := a.Snapshot(); st.Frames >= n {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("fewer than %d frames processed", n)
	return State{}
}

func TestApp_FingerRoundCompletes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	r := newRig(t, []*gocv.Mat{blankFrame(t)}, func(c *Config) {
		c.Games.Fingers.Levels = [][2]int{{2, 2}}
		c.Games.Fingers.Goal = 1
		c.Games.Fingers.StableFrames = 2
	})
	r.detector.SetHands([]detector.Hand{detector.FingersUp(2, 400, 450)})

	finished := make(chan store.Result, 1)
	r.app.OnFinish(func(res store.Result) { finished <- res })

	if err := r.app.StartGame(game.NameFingers); err != nil {
		t.Fatalf("StartGame() error = %v", err)
	}
	waitSession(t, r.app)

	var res store.Result
	select {
	case res = <-finished:
	default:
		t.Fatal("OnFinish was not called")
	}
	if !res.Complete || res.Score != 10 || res.Game != game.NameFingers {
		t.Errorf("result = %+v, want a complete round worth 10", res)
	}

	saved, err := r.store.Results().List(context.Background(), game.NameFingers, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].ID != res.ID {
		t.Errorf("saved results = %+v", saved)
	}

	if last, err := r.store.Settings().Get(context.Background(), store.SettingLastGame); err != nil || last != game.NameFingers {
		t.Errorf("last game setting = %q, %v", last, err)
	}

	if got, ok := r.app.LastResult(); !ok || got.ID != res.ID {
		t.Errorf("LastResult() = %+v, %v", got, ok)
	}
	if _, seq := r.app.LatestFrame(); seq == 0 {
		t.Error("no frame was relayed")
	}
	if st := r.app.Snapshot(); st.Running || !st.Snapshot.Complete {
		t.Errorf("final state = %+v", st)
	}

	heard := false
	for len(r.spoken.ch) > 0 {
		if <-r.spoken.ch == "நன்று!" {
			heard = true
		}
	}
	if !heard {
		t.Error("round completion was not narrated")
	}
	if r.camera.IsOpen() {
		t.Error("camera should be released")
	}
}

func TestApp_SkipsBadFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	r := newRig(t, []*gocv.Mat{nil, blankFrame(t)}, nil)

	if err := r.app.StartGame(game.NameWordMatch); err != nil {
		t.Fatalf("StartGame() error = %v", err)
	}
	waitFrames(t, r.app, 3)

	if err := r.app.StopGame(); err != nil {
		t.Fatalf("StopGame() error = %v", err)
	}
	waitSession(t, r.app)

	var m dto.Metric
	if err := r.metrics.FramesSkipped.WithLabelValues(metrics.SkipRead).Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.GetCounter().GetValue() < 1 {
		t.Error("bad reads should be counted as skipped frames")
	}

	res, ok := r.app.LastResult()
	if !ok || res.Complete {
		t.Errorf("stopped round = %+v, %v; want an incomplete result", res, ok)
	}
}

func TestApp_DetectorErrorsSkipFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	r := newRig(t, []*gocv.Mat{blankFrame(t)}, func(c *Config) { c.MaxDetectErrors = 10000 })
	r.detector.SetError(detector.ErrRestarting)

	if err := r.app.StartGame(game.NameColors); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for r.detector.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !r.app.Snapshot().Running {
		t.Fatal("detector errors must not end the session")
	}

	r.detector.SetError(nil)
	waitFrames(t, r.app, 1)
	r.app.StopGame()
	waitSession(t, r.app)
}

func TestApp_DetectorFailureEndsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tests := []struct {
		name      string
		err       error
		maxErrors int
		wantCalls int
	}{
		{"too many errors in a row", errors.New("broken pipe"), 5, 5},
		{"detector gives up", detector.ErrUnavailable, 10000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, []*gocv.Mat{blankFrame(t)}, func(c *Config) { c.MaxDetectErrors = tt.maxErrors })
			r.detector.SetError(tt.err)

			if err := r.app.StartGame(game.NameWordMatch); err != nil {
				t.Fatalf("StartGame() error = %v", err)
			}
			waitSession(t, r.app)

			st := r.app.Snapshot()
			if st.Running || !strings.Contains(st.Error, detector.ErrUnavailable.Error()) {
				t.Errorf("state = %+v, want a stopped session reporting the detector", st)
			}
			if calls := r.detector.Calls(); calls != tt.wantCalls {
				t.Errorf("Detect() called %d times, want %d", calls, tt.wantCalls)
			}
			if _, ok := r.app.LastResult(); ok {
				t.Error("a failed session must not produce a result")
			}
			if saved, err := r.store.Results().List(context.Background(), game.NameWordMatch, 0); err != nil || len(saved) != 0 {
				t.Errorf("saved results = %+v, %v; want none", saved, err)
			}

			var m dto.Metric
			if err := r.metrics.Sessions.WithLabelValues(game.NameWordMatch, metrics.OutcomeFailed).Write(&m); err != nil {
				t.Fatal(err)
			}
			if m.GetCounter().GetValue() != 1 {
				t.Errorf("failed sessions = %v, want 1", m.GetCounter().GetValue())
			}
			if r.camera.IsOpen() {
				t.Error("camera should be released")
			}
		})
	}
}

func TestApp_StartErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	t.Run("unknown game", func(t *testing.T) {
		r := newRig(t, []*gocv.Mat{blankFrame(t)}, nil)
		if err := r.app.StartGame("chess"); !errors.Is(err, game.ErrUnknownGame) {
			t.Errorf("StartGame() error = %v, want ErrUnknownGame", err)
		}
	})

	t.Run("no detector", func(t *testing.T) {
		r := newRig(t, []*gocv.Mat{blankFrame(t)}, nil)
		r.app.opts.NewDetector = func(detector.Config) (detector.Detector, error) {
			return nil, detector.ErrScriptNotFound
		}
		if err := r.app.StartGame(game.NameFingers); !errors.Is(err, ErrNoDetector) {
			t.Errorf("StartGame() error = %v, want ErrNoDetector", err)
		}
	})

	t.Run("already running", func(t *testing.T) {
		r := newRig(t, []*gocv.Mat{blankFrame(t)}, nil)
		if err := r.app.StartGame(game.NameElimination); err != nil {
			t.Fatal(err)
		}
		if err := r.app.StartGame(game.NameFingers); !errors.Is(err, ErrSessionRunning) {
			t.Errorf("second StartGame() error = %v, want ErrSessionRunning", err)
		}
		r.app.StopGame()
		waitSession(t, r.app)

		if err := r.app.StopGame(); !errors.Is(err, ErrNoSession) {
			t.Errorf("StopGame() after stop error = %v, want ErrNoSession", err)
		}
		if err := r.app.StartGame(game.NameFingers); err != nil {
			t.Errorf("StartGame() after stop error = %v", err)
		}
	})

	t.Run("camera unavailable", func(t *testing.T) {
		r := newRig(t, []*gocv.Mat{blankFrame(t)}, nil)
		r.camera.FailOpen(capture.ErrCameraUnavailable)

		if err := r.app.StartGame(game.NameFingers); err != nil {
			t.Fatalf("StartGame() error = %v", err)
		}
		waitSession(t, r.app)

		st := r.app.Snapshot()
		if st.Running || st.Error == "" {
			t.Errorf("state = %+v, want a stopped session with an error", st)
		}
		if _, ok := r.app.LastResult(); ok {
			t.Error("a session that never opened the camera must not produce a result")
		}
	})
}

func TestApp_Games(t *testing.T) {
	a := New(DefaultConfig(), Options{})
	defer a.Close()

	games := a.Games()
	if len(games) != 4 {
		t.Fatalf("Games() = %v", games)
	}
	for _, g := range games {
		if g.Title == "" {
			t.Errorf("game %q has no title", g.Name)
		}
	}
	if err := a.StopGame(); !errors.Is(err, ErrNoSession) {
		t.Errorf("StopGame() error = %v", err)
	}
}
