package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/board"
	"github.com/xela07ax/sortboard/internal/ingest"
)

// ActionsHandler terminates the Pub/Sub push endpoints. Decode failures
// return 400 so the subscription redelivers; events routed to unknown
// dashboards are absorbed with a 200 — redelivering them would only
// repeat the same routing miss.
type ActionsHandler struct {
	store   ingest.Recorder
	logger  *zap.Logger
	metrics *board.Metrics
	nowFn   func() time.Time
}

func NewActionsHandler(store ingest.Recorder, logger *zap.Logger, metrics *board.Metrics) *ActionsHandler {
	if metrics == nil {
		metrics = board.NewMetrics(nil)
	}
	return &ActionsHandler{
		store:   store,
		logger:  logger.Named("actions"),
		metrics: metrics,
		nowFn:   time.Now,
	}
}

// JobsAction handles regular WMS job completions. The target dashboard
// is derived from the task comment.
func (h *ActionsHandler) JobsAction(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.record(w, ingest.Normalize(raw, h.nowFn()))
}

// GeekPutaway handles Geek WMS putaway pushes (receipt_list schema),
// always bound for the geekinbound dashboard.
func (h *ActionsHandler) GeekPutaway(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.record(w, ingest.NormalizeGeek(raw, "geekinbound", h.nowFn()))
}

// PickOrder handles Geek pick-order pushes, bound for geekpicking.
func (h *ActionsHandler) PickOrder(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.record(w, ingest.NormalizeGeek(raw, "geekpicking", h.nowFn()))
}

func (h *ActionsHandler) decode(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}

	raw, err := ingest.DecodePush(body)
	if err != nil {
		h.metrics.RejectedTotal.WithLabelValues("decode").Inc()
		h.logger.Warn("failed to decode push payload", zap.Error(err))
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return raw, true
}

func (h *ActionsHandler) record(w http.ResponseWriter, ev ingest.JobEvent) {
	err := h.store.RecordEvent(ev.Dashboard, ev.Operator, ev.Quantity, ev.Category, ev.Comment, ev.At)
	if err != nil {
		if errors.Is(err, board.ErrDashboardNotFound) {
			respondJSON(w, http.StatusOK, map[string]string{
				"status": "ignored",
				"job_id": ev.ID,
			})
			return
		}
		h.logger.Error("record failed", zap.String("job_id", ev.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	h.logger.Info("dashboard updated",
		zap.String("job_id", ev.ID),
		zap.String("dashboard", ev.Dashboard),
		zap.String("operator", ev.Operator),
		zap.Int("quantity", ev.Quantity))

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job_id": ev.ID,
	})
}
