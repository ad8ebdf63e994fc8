package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/sortboard/internal/domain"
)

// BoardReader is what the read path needs from the store.
type BoardReader interface {
	Snapshot(key string) (domain.Dashboard, bool)
	Keys() []string
}

// HistoryWriter is what the history endpoint needs from the store.
type HistoryWriter interface {
	SetHistoryText(key, text string) error
}

type DashboardHandler struct {
	boards  BoardReader
	history HistoryWriter
}

func NewDashboardHandler(boards BoardReader, history HistoryWriter) *DashboardHandler {
	return &DashboardHandler{boards: boards, history: history}
}

// Get serves one dashboard snapshot for the polling front-end.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := strings.ToLower(chi.URLParam(r, "key"))

	snap, ok := h.boards.Snapshot(key)
	if !ok {
		respondError(w, http.StatusNotFound, "dashboard not found")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// List serves the provisioned dashboard keys for front-end navigation.
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"dashboards": h.boards.Keys()})
}

// SetHistory replaces the free-text history line of one dashboard. The
// belt analyser posts its fill-grade summary here.
func (h *DashboardHandler) SetHistory(w http.ResponseWriter, r *http.Request) {
	key := strings.ToLower(chi.URLParam(r, "key"))

	var in struct {
		HistoryText string `json:"historyText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.history.SetHistoryText(key, in.HistoryText); err != nil {
		respondError(w, http.StatusNotFound, "dashboard not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
