// Package ingest normalizes heterogeneous upstream activity payloads
// (WMS job completions, Geek WMS pushes, Pub/Sub envelopes, Redis
// messages) into the canonical RecordEvent call against the board store.
package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recorder is what ingest needs from the metrics store.
type Recorder interface {
	RecordEvent(dashboard, operator string, qty int, category, comment string, at time.Time) error
}

// JobEvent is the canonical normalized activity event.
type JobEvent struct {
	ID        string
	Dashboard string
	Operator  string
	Quantity  int
	Category  string
	Comment   string
	At        time.Time
}

// Normalize maps a decoded WMS job payload onto a JobEvent. The
// dashboard key is derived from the free-text task comment unless the
// payload names its process explicitly. Missing or malformed fields
// degrade to safe defaults, never to a rejected event.
func Normalize(raw map[string]any, now time.Time) JobEvent {
	comment := strings.TrimSpace(stringField(raw, "comment"))
	category := strings.TrimSpace(stringField(raw, "category"))

	operator := strings.TrimSpace(stringField(raw, "EMPLOYEE_CODE"))
	if operator == "" {
		operator = "Unknown"
	}

	key := strings.ToLower(strings.TrimSpace(stringField(raw, "HIGH_OVER_PROCESS")))
	if key == "" {
		key = DashboardForComment(comment)
	}

	id := stringField(raw, "HEADER_ID")
	if id == "" {
		id = uuid.New().String()
	}

	if category == "" {
		category = key
	}

	return JobEvent{
		ID:        id,
		Dashboard: key,
		Operator:  operator,
		Quantity:  ExtractQuantity(raw),
		Category:  category,
		Comment:   comment,
		At:        eventTime(raw, now),
	}
}

// ExtractQuantity digs the work-unit count out of a payload. Explicit
// quantity fields win; otherwise item-level amounts are summed; with
// neither present the event counts as one unit. Negative or unparseable
// values coerce to 1 so a bad payload can never decrement totals.
func ExtractQuantity(raw map[string]any) int {
	if v, ok := numberField(raw, "QUANTITY"); ok {
		return clampQuantity(v)
	}
	if v, ok := numberField(raw, "LINE_COUNT"); ok {
		return clampQuantity(v)
	}
	if sum := sumSkuAmounts(raw); sum > 0 {
		return sum
	}
	return 1
}

func clampQuantity(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// sumSkuAmounts handles the Geek WMS receipt schema:
// body.receipt_list[].sku_list[].amount.
func sumSkuAmounts(raw map[string]any) int {
	body, _ := raw["body"].(map[string]any)
	if body == nil {
		body = raw
	}
	receipts, _ := body["receipt_list"].([]any)
	sum := 0
	for _, r := range receipts {
		receipt, ok := r.(map[string]any)
		if !ok {
			continue
		}
		skus, _ := receipt["sku_list"].([]any)
		for _, s := range skus {
			sku, ok := s.(map[string]any)
			if !ok {
				continue
			}
			if amount, ok := numberField(sku, "amount"); ok && amount > 0 {
				sum += amount
			}
		}
	}
	return sum
}

// eventTime prefers the upstream timestamp when present and parseable,
// falling back to now.
func eventTime(raw map[string]any, now time.Time) time.Time {
	for _, field := range []string{"ORIGINAL_EVENT_TIME", "event_time", "time"} {
		s := stringField(raw, field)
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// numberField accepts JSON numbers and numeric strings.
func numberField(raw map[string]any, key string) (int, bool) {
	switch v := raw[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
