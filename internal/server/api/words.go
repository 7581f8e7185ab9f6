package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/kaiplay/internal/store"
)

// WordHandler serves the custom word bank.
type WordHandler struct {
	store *store.Store
}

// NewWordHandler creates a WordHandler backed by s.
func NewWordHandler(s *store.Store) *WordHandler {
	return &WordHandler{store: s}
}

// ServeHTTP routes /api/words and /api/words/{id}.
func (h *WordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/words"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createWordRequest struct {
	Native      string `json:"native"`
	Translation string `json:"translation"`
	Image       string `json:"image"`
}

type wordResponse struct {
	ID          string `json:"id"`
	Native      string `json:"native"`
	Translation string `json:"translation"`
	Image       string `json:"image,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type listWordsResponse struct {
	Words []wordResponse `json:"words"`
}

func toWordResponse(wd *store.Word) wordResponse {
	return wordResponse{
		ID:          wd.ID,
		Native:      wd.Native,
		Translation: wd.Translation,
		Image:       wd.Image,
		CreatedAt:   wd.CreatedAt.Format(timeFormat),
	}
}

func (h *WordHandler) list(w http.ResponseWriter, r *http.Request) {
	words, err := h.store.Words().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list words")
		return
	}

	response := listWordsResponse{Words: make([]wordResponse, 0, len(words))}
	for _, wd := range words {
		response.Words = append(response.Words, toWordResponse(wd))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *WordHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	wd, err := h.store.Words().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Word not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get word")
		return
	}
	writeJSON(w, http.StatusOK, toWordResponse(wd))
}

func (h *WordHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	wd := &store.Word{Native: req.Native, Translation: req.Translation, Image: req.Image}
	if err := h.store.Words().Create(r.Context(), wd); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidWord):
			writeError(w, http.StatusBadRequest, "Native word and translation are required")
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "Translation already exists")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create word")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toWordResponse(wd))
}

func (h *WordHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Words().Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Word not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete word")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
