package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/board"
	"github.com/xela07ax/sortboard/internal/domain"
)

func actionsRouter(store *board.Store) http.Handler {
	h := NewActionsHandler(store, zap.NewNop(), nil)
	r := chi.NewRouter()
	r.Post("/actions/pubsub/jobs-action", h.JobsAction)
	r.Post("/actions/pubsub/geek-putaway", h.GeekPutaway)
	r.Post("/actions/pubsub/pick-order", h.PickOrder)
	return r
}

func pushBody(t *testing.T, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"data": base64.StdEncoding.EncodeToString(raw),
		},
		"subscription": "projects/p/subscriptions/s",
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func TestJobsActionUpdatesDashboard(t *testing.T) {
	store := newTestStore(t)
	body := pushBody(t, map[string]any{
		"HEADER_ID":     "job-1",
		"EMPLOYEE_CODE": "W42",
		"comment":       "Truck moves",
		"LINE_COUNT":    4,
	})

	req := httptest.NewRequest(http.MethodPost, "/actions/pubsub/jobs-action", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	actionsRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	snap, ok := store.Snapshot("fma")
	if !ok {
		t.Fatal("expected fma dashboard")
	}
	if len(snap.People) != 1 || snap.People[0].Name != "W42" || snap.People[0].Jobs != 4 {
		t.Fatalf("dashboard not updated: %+v", snap.People)
	}
	if got := snap.KPIs[domain.KPISlotTotal].Value; got != 4 {
		t.Fatalf("expected today KPI 4, got %v", got)
	}
}

func TestJobsActionUnroutableCommentIsAbsorbed(t *testing.T) {
	store := newTestStore(t)
	body := pushBody(t, map[string]any{
		"HEADER_ID": "job-2",
		"comment":   "totally new task nobody mapped",
	})

	req := httptest.NewRequest(http.MethodPost, "/actions/pubsub/jobs-action", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	actionsRouter(store).ServeHTTP(rec, req)

	// 200 on purpose: redelivery would repeat the same routing miss.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out map[string]string
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["status"] != "ignored" {
		t.Fatalf("expected ignored status, got %+v", out)
	}
}

func TestJobsActionBadEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/actions/pubsub/jobs-action",
		bytes.NewReader([]byte("not json at all")))
	rec := httptest.NewRecorder()
	actionsRouter(newTestStore(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestJobsActionBadEnvelopeCountsDecodeRejection(t *testing.T) {
	m := board.NewMetrics(nil)
	h := NewActionsHandler(newTestStore(t), zap.NewNop(), m)

	req := httptest.NewRequest(http.MethodPost, "/actions/pubsub/jobs-action",
		bytes.NewReader([]byte("not json at all")))
	rec := httptest.NewRecorder()
	h.JobsAction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(m.RejectedTotal.WithLabelValues("decode")); got != 1 {
		t.Fatalf("expected 1 decode rejection, got %v", got)
	}
}

func TestGeekPutawaySumsReceiptQuantities(t *testing.T) {
	store := newTestStore(t)
	body := pushBody(t, map[string]any{
		"body": map[string]any{
			"receipt_list": []any{
				map[string]any{
					"receipt_code": "RC-7",
					"sku_list": []any{
						map[string]any{"amount": 6},
						map[string]any{"amount": 4},
					},
				},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/actions/pubsub/geek-putaway", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	actionsRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	snap, _ := store.Snapshot("geekinbound")
	if len(snap.People) != 1 || snap.People[0].Name != "Unknown" {
		t.Fatalf("expected Unknown operator on geekinbound: %+v", snap.People)
	}
	if snap.People[0].Jobs != 10 {
		t.Fatalf("expected 10 jobs from sku amounts, got %d", snap.People[0].Jobs)
	}
}
