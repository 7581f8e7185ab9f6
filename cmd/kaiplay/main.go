package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/ayusman/kaiplay/internal/app"
	"github.com/ayusman/kaiplay/internal/config"
	"github.com/ayusman/kaiplay/internal/logging"
	"github.com/ayusman/kaiplay/internal/metrics"
	"github.com/ayusman/kaiplay/internal/narration"
	"github.com/ayusman/kaiplay/internal/plugin"
	"github.com/ayusman/kaiplay/internal/server"
	"github.com/ayusman/kaiplay/internal/store"
	"github.com/ayusman/kaiplay/internal/tray"
	"github.com/ayusman/kaiplay/internal/wordbank"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to a kaiplay.yaml config file")
		addr       = pflag.String("addr", "", "dashboard listen address (overrides server.addr)")
		startGame  = pflag.StringP("game", "g", "", "start this game immediately")
		headless   = pflag.Bool("headless", false, "run without the system tray")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kaiplay: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	logging.Info(logging.Fields{"addr": cfg.Server.Addr}, "kaiplay starting")

	if err := run(cfg, *startGame, *headless); err != nil {
		logging.Error(logging.Fields{"error": err}, "kaiplay stopped with an error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, startGame string, headless bool) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	words := loadWords(cfg.Words.File)

	m := metrics.NewMetrics("kaiplay", prometheus.DefaultRegisterer)

	narrator := newNarrator(cfg)
	if c, ok := narrator.(io.Closer); ok {
		defer c.Close()
	}

	a := app.New(app.Config{
		Camera:           cfg.CameraSettings(),
		Filter:           cfg.FilterOptions(),
		Detector:         cfg.DetectorSettings(),
		Gesture:          cfg.GestureSettings(),
		Games:            cfg.GameSettings(),
		Render:           cfg.RenderSettings(),
		FrameDelay:       cfg.Session.FrameDelay,
		CompletionLinger: cfg.Session.CompletionLinger,
		MaxDetectErrors:  cfg.Session.MaxDetectErrors,
		Words:            words,
	}, app.Options{
		Store:    st,
		Metrics:  m,
		Narrator: narrator,
	})
	defer a.Close()

	webDir := findWebDir()
	if webDir != "" {
		logging.Info(logging.Fields{"dir": webDir}, "serving static files")
	}
	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: a,
		Gatherer:   prometheus.DefaultGatherer,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn(logging.Fields{"error": err}, "server shutdown")
		}
	}()
	dashboard := server.DashboardURL(cfg.Server.Addr)
	logging.Info(logging.Fields{"url": dashboard}, "dashboard ready")

	if startGame != "" {
		if err := a.StartGame(startGame); err != nil {
			return fmt.Errorf("start %s: %w", startGame, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if headless {
		select {
		case <-ctx.Done():
			logging.Info(nil, "shutting down")
			return nil
		case err := <-serveErr:
			return err
		}
	}

	t := tray.New(a.Games())
	t.OnStart(func(name string) {
		if err := a.StartGame(name); err != nil {
			logging.Warn(logging.Fields{"game": name, "error": err}, "could not start game")
			return
		}
		t.SetRunning(name)
	})
	t.OnStop(func() {
		if err := a.StopGame(); err != nil && !errors.Is(err, app.ErrNoSession) {
			logging.Warn(logging.Fields{"error": err}, "could not stop game")
		}
	})
	t.OnDashboard(func() {
		if err := openBrowser(dashboard); err != nil {
			logging.Warn(logging.Fields{"url": dashboard, "error": err}, "could not open browser")
		}
	})
	t.OnQuit(func() {
		logging.Info(nil, "quit requested")
	})
	a.OnFinish(func(res store.Result) {
		t.SetRunning("")
		t.SetLastResult(res)
	})
	if last, ok := a.LastResult(); ok {
		t.SetLastResult(last)
	}

	go func() {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				logging.Error(logging.Fields{"error": err}, "server failed")
			}
		}
		t.Quit()
	}()

	// Blocks on the main thread until Quit.
	t.Run()
	return nil
}

// loadWords returns the configured word bank, falling back to the built-in
// words when the file is missing or invalid.
func loadWords(path string) []wordbank.Entry {
	if path == "" {
		return wordbank.Defaults()
	}
	entries, err := wordbank.Load(path)
	if err != nil {
		logging.Warn(logging.Fields{"file": path, "error": err}, "using built-in words")
		return wordbank.Defaults()
	}
	logging.Info(logging.Fields{"file": path, "words": len(entries)}, "word bank loaded")
	return wordbank.Merge(wordbank.Defaults(), entries)
}

func newNarrator(cfg *config.Config) narration.Narrator {
	if !cfg.Narration.Enabled {
		return narration.Nop{}
	}
	mgr := plugin.NewManager(cfg.Plugins.Dir)
	if err := mgr.Discover(); err != nil {
		logging.Warn(logging.Fields{"dir": cfg.Plugins.Dir, "error": err}, "plugin discovery failed")
		return narration.Nop{}
	}
	return narration.FromManager(mgr, plugin.NewExecutor(cfg.Plugins.TimeoutMs), cfg.NarrationSettings())
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.kaiplay/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
