// Package server provides the HTTP dashboard server for kaiplay.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/kaiplay/internal/app"
	"github.com/ayusman/kaiplay/internal/logging"
	"github.com/ayusman/kaiplay/internal/server/api"
	"github.com/ayusman/kaiplay/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Controller is what the server needs from the game app.
type Controller interface {
	api.GameController
	Relay() *app.Relay
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller Controller
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// StateInterval is how often /api/state pushes snapshots.
	StateInterval time.Duration
}

// Server represents the HTTP server for the kaiplay dashboard.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	state  *StateHandler
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StateInterval <= 0 {
		config.StateInterval = 100 * time.Millisecond
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	if s.config.Store != nil {
		words := api.NewWordHandler(s.config.Store)
		results := api.NewResultHandler(s.config.Store)
		s.mux.Handle("/api/words", words)
		s.mux.Handle("/api/words/", words)
		s.mux.Handle("/api/results", results)
		s.mux.Handle("/api/results/", results)
	}

	if s.config.Controller != nil {
		games := api.NewGameHandler(s.config.Controller)
		s.mux.Handle("/api/games", games)
		s.mux.Handle("/api/games/", games)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Controller.Relay()))

		s.state = NewStateHandler(s.config.Controller, s.config.StateInterval)
		s.mux.Handle("/api/state", s.state)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Controller != nil {
		st := s.config.Controller.Snapshot()
		response["running"] = st.Running
		if st.Running {
			response["game"] = st.Game
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Info(logging.Fields{"addr": addr}, "dashboard listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and disconnects state subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.state != nil {
		s.state.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// DashboardURL returns the browser address for a listen address.
func DashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}
