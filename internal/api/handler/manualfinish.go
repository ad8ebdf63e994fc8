package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/sortboard/internal/upstream"
)

// ManualFinishProvider is what this handler needs from the upstream client.
type ManualFinishProvider interface {
	Metrics(ctx context.Context) (upstream.ManualFinishMetrics, error)
}

type ManualFinishHandler struct {
	client ManualFinishProvider
}

func NewManualFinishHandler(client ManualFinishProvider) *ManualFinishHandler {
	return &ManualFinishHandler{client: client}
}

func (h *ManualFinishHandler) Get(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.client.Metrics(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "manual-finish metrics unavailable")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}
