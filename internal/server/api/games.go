package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/kaiplay/internal/app"
	"github.com/ayusman/kaiplay/internal/game"
)

// GameController starts and stops game sessions.
type GameController interface {
	Games() []app.GameInfo
	StartGame(name string) error
	StopGame() error
	Snapshot() app.State
}

// GameHandler serves /api/games.
type GameHandler struct {
	games GameController
}

// NewGameHandler creates a GameHandler driving c.
func NewGameHandler(c GameController) *GameHandler {
	return &GameHandler{games: c}
}

type listGamesResponse struct {
	Games   []app.GameInfo `json:"games"`
	Running bool           `json:"running"`
	Current string         `json:"current,omitempty"`
}

// ServeHTTP routes GET /api/games, POST /api/games/stop and
// POST /api/games/{name}/start.
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/games"), "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
	case path == "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stop(w)
	case strings.HasSuffix(path, "/start"):
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.start(w, strings.TrimSuffix(path, "/start"))
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *GameHandler) list(w http.ResponseWriter) {
	st := h.games.Snapshot()
	resp := listGamesResponse{Games: h.games.Games(), Running: st.Running}
	if st.Running {
		resp.Current = st.Game
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GameHandler) start(w http.ResponseWriter, name string) {
	err := h.games.StartGame(name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, h.games.Snapshot())
	case errors.Is(err, game.ErrUnknownGame):
		writeError(w, http.StatusNotFound, "Unknown game")
	case errors.Is(err, app.ErrSessionRunning):
		writeError(w, http.StatusConflict, "A game is already running")
	case errors.Is(err, app.ErrNoDetector):
		writeError(w, http.StatusServiceUnavailable, "Hand detection is not available")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to start game")
	}
}

func (h *GameHandler) stop(w http.ResponseWriter) {
	if err := h.games.StopGame(); err != nil {
		if errors.Is(err, app.ErrNoSession) {
			writeError(w, http.StatusConflict, "No game is running")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop game")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
