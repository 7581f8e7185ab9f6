// Package app runs gesture game sessions: camera, hand detection, tracking,
// game updates, rendering and result keeping.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/detector"
	"github.com/ayusman/kaiplay/internal/game"
	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/logging"
	"github.com/ayusman/kaiplay/internal/metrics"
	"github.com/ayusman/kaiplay/internal/narration"
	"github.com/ayusman/kaiplay/internal/render"
	"github.com/ayusman/kaiplay/internal/store"
	"github.com/ayusman/kaiplay/internal/wordbank"
)

var (
	// ErrNoDetector is returned when no hand detector can be started.
	ErrNoDetector = errors.New("no hand detector available")
	// ErrSessionRunning is returned when starting a game while one runs.
	ErrSessionRunning = errors.New("a game is already running")
	// ErrNoSession is returned when stopping with nothing running.
	ErrNoSession = errors.New("no game is running")
)

// Config holds the tuning handed to every session.
type Config struct {
	Camera   capture.Config
	Filter   capture.FilterOptions
	Detector detector.Config
	Gesture  gesture.Config
	Games    game.Config
	Render   render.Options

	// FrameDelay is the pause between loop iterations.
	FrameDelay time.Duration
	// CompletionLinger keeps a finished round on screen before it stops.
	CompletionLinger time.Duration
	// MaxDetectErrors is how many frames in a row may fail detection before
	// the session ends.
	MaxDetectErrors int

	// Words is the base word bank. Custom words from the store are merged
	// over it when a game starts.
	Words []wordbank.Entry
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Camera:           capture.DefaultConfig(),
		Filter:           capture.DefaultFilterOptions(),
		Detector:         detector.DefaultConfig(),
		Gesture:          gesture.DefaultConfig(),
		Games:            game.DefaultConfig(),
		Render:           render.DefaultOptions(),
		FrameDelay:       18 * time.Millisecond,
		CompletionLinger: 2 * time.Second,
		MaxDetectErrors:  100,
		Words:            wordbank.Defaults(),
	}
}

// Options are the collaborators of an App. Nil fields get defaults.
type Options struct {
	Store    *store.Store
	Metrics  *metrics.Metrics
	Narrator narration.Narrator

	// NewCamera and NewDetector are called once per session.
	NewCamera   func(capture.Config) capture.Camera
	NewDetector func(detector.Config) (detector.Detector, error)
}

// GameInfo describes a playable game.
type GameInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// App owns the single active session.
type App struct {
	config   Config
	opts     Options
	relay    *Relay
	renderer *render.Renderer

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	session  *session
	last     *store.Result
	onFinish []func(store.Result)
}

// New creates an App. No camera or detector is opened until a game starts.
func New(config Config, opts Options) *App {
	def := DefaultConfig()
	if config.FrameDelay <= 0 {
		config.FrameDelay = def.FrameDelay
	}
	if config.CompletionLinger < 0 {
		config.CompletionLinger = 0
	}
	if config.MaxDetectErrors <= 0 {
		config.MaxDetectErrors = def.MaxDetectErrors
	}
	if len(config.Words) == 0 {
		config.Words = def.Words
	}

	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics("kaiplay", prometheus.NewRegistry())
	}
	if opts.Narrator == nil {
		opts.Narrator = narration.Nop{}
	}
	if opts.NewCamera == nil {
		opts.NewCamera = capture.NewCamera
	}
	if opts.NewDetector == nil {
		opts.NewDetector = func(c detector.Config) (detector.Detector, error) {
			return detector.NewMediaPipeDetector(c)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:   config,
		opts:     opts,
		relay:    NewRelay(),
		renderer: render.New(config.Render),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Games lists the playable games.
func (a *App) Games() []GameInfo {
	names := game.Names()
	out := make([]GameInfo, len(names))
	for i, n := range names {
		out[i] = GameInfo{Name: n, Title: game.Titles[n]}
	}
	return out
}

// OnFinish registers fn to be called with every persisted round result.
func (a *App) OnFinish(fn func(store.Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFinish = append(a.onFinish, fn)
}

// StartGame starts the named game in a new session.
func (a *App) StartGame(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return context.Canceled
	}
	if a.session != nil {
		if a.session.Running() {
			return ErrSessionRunning
		}
		// The previous session may still be releasing the camera.
		<-a.session.Done()
	}

	g, err := game.New(name, game.Deps{Words: a.words(), Config: a.config.Games})
	if err != nil {
		return err
	}

	det, err := a.opts.NewDetector(a.config.Detector)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDetector, err)
	}

	gcfg := a.config.Gesture
	gcfg.Policy = g.Policy()
	slots := max(a.config.Detector.MaxHands, 1)

	s := &session{
		name:            name,
		game:            g,
		camera:          a.opts.NewCamera(a.config.Camera),
		detector:        det,
		pool:            gesture.NewPool(slots, gcfg),
		filter:          capture.NewFrameFilter(a.config.Filter),
		renderer:        a.renderer,
		relay:           a.relay,
		metrics:         a.opts.Metrics,
		narrator:        a.opts.Narrator,
		frameDelay:      a.config.FrameDelay,
		linger:          a.config.CompletionLinger,
		sampleRadius:    a.config.Games.Colors.SampleRadius,
		maxDetectErrors: a.config.MaxDetectErrors,
		done:            make(chan struct{}),
		saved:           make(chan struct{}),
		state:           State{Game: name},
	}
	s.running.Store(true)
	a.session = s

	a.remember(store.SettingLastGame, name)

	go func() {
		if err := s.Run(a.ctx); err != nil {
			logging.Error(logging.Fields{"game": name, "error": err}, "game session failed")
		}
		a.finished(s)
		close(s.saved)
	}()
	return nil
}

// words merges custom words from the store over the configured bank.
func (a *App) words() []wordbank.Entry {
	if a.opts.Store == nil {
		return a.config.Words
	}
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	custom, err := a.opts.Store.Words().Entries(ctx)
	if err != nil {
		logging.Warn(logging.Fields{"error": err}, "failed to load custom words")
		return a.config.Words
	}
	return wordbank.Merge(a.config.Words, custom)
}

func (a *App) remember(key, value string) {
	if a.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	if err := a.opts.Store.Settings().Set(ctx, key, value); err != nil {
		logging.Debug(logging.Fields{"key": key, "error": err}, "failed to save setting")
	}
}

// finished persists the round of a session that has returned.
func (a *App) finished(s *session) {
	res, err := s.Result()
	if err != nil || res == nil {
		return
	}

	if a.opts.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.opts.Store.Results().Create(ctx, res); err != nil {
			logging.Error(logging.Fields{"game": res.Game, "error": err}, "failed to save result")
		}
		cancel()
	}

	a.mu.Lock()
	a.last = res
	hooks := append([]func(store.Result){}, a.onFinish...)
	a.mu.Unlock()

	for _, fn := range hooks {
		fn(*res)
	}
}

// StopGame asks the running session to stop. It returns without waiting.
func (a *App) StopGame() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || !a.session.Running() {
		return ErrNoSession
	}
	a.session.Stop()
	return nil
}

// Wait blocks until the current session, if any, has ended and its result
// has been saved.
func (a *App) Wait(ctx context.Context) error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.saved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state of the current or most recent session.
func (a *App) Snapshot() State {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return State{}
	}
	return s.State()
}

// LastResult returns the most recently finished round.
func (a *App) LastResult() (store.Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return store.Result{}, false
	}
	return *a.last, true
}

// LatestFrame returns the newest annotated JPEG and its sequence number.
func (a *App) LatestFrame() ([]byte, uint64) {
	return a.relay.Latest()
}

// Relay exposes the frame relay for streaming.
func (a *App) Relay() *Relay {
	return a.relay
}

// Close stops any running session and waits for its result to be saved.
func (a *App) Close() error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()

	a.cancel()
	if s != nil {
		s.Stop()
		<-s.saved
	}
	return nil
}
