package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/kaiplay/internal/store"
)

// DefaultResultLimit caps result listings without an explicit limit.
const DefaultResultLimit = 50

// ResultHandler serves finished rounds.
type ResultHandler struct {
	store *store.Store
}

// NewResultHandler creates a ResultHandler backed by s.
func NewResultHandler(s *store.Store) *ResultHandler {
	return &ResultHandler{store: s}
}

// ServeHTTP routes /api/results, /api/results/best and /api/results/{id}.
func (h *ResultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/results"), "/"); path {
	case "":
		h.list(w, r)
	case "best":
		h.best(w, r)
	default:
		h.get(w, r, path)
	}
}

type listResultsResponse struct {
	Results []*store.Result `json:"results"`
}

func (h *ResultHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", DefaultResultLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	results, err := h.store.Results().List(r.Context(), r.URL.Query().Get("game"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}
	writeJSON(w, http.StatusOK, listResultsResponse{Results: results})
}

func (h *ResultHandler) best(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")
	if game == "" {
		writeError(w, http.StatusBadRequest, "game is required")
		return
	}
	h.respond(w, func() (*store.Result, error) { return h.store.Results().Best(r.Context(), game) })
}

func (h *ResultHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	h.respond(w, func() (*store.Result, error) { return h.store.Results().GetByID(r.Context(), id) })
}

func (h *ResultHandler) respond(w http.ResponseWriter, fetch func() (*store.Result, error)) {
	res, err := fetch()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Result not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get result")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
