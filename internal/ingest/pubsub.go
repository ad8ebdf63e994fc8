package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DecodePush unwraps a Pub/Sub push request body down to the job
// payload object. It tolerates:
//   - the Google push wrapper {"message": {"data": ...}, "subscription": ...}
//   - a CloudEvents-style envelope at top level
//   - base64-encoded JSON at the outer data field
//   - a double-encoded inner data field (base64 JSON inside the outer object)
func DecodePush(body []byte) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("body is not valid JSON: %w", err)
	}

	envelope := parsed
	if msg, ok := parsed["message"].(map[string]any); ok {
		envelope = msg
	}

	data, ok := envelope["data"]
	if !ok {
		// Some producers push the payload bare, with no data field.
		return parsed, nil
	}

	outer := tryB64OrJSON(data)
	outerMap, ok := outer.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("outer data is not a JSON object")
	}

	if inner, ok := outerMap["data"].(string); ok {
		if decoded, ok := tryB64OrJSON(inner).(map[string]any); ok {
			outerMap["data"] = decoded
		}
	}

	return outerMap, nil
}

// tryB64OrJSON peels one layer of encoding off a value: base64 JSON
// first, then plain JSON, otherwise the value is returned as-is.
func tryB64OrJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)

	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		var out any
		if err := json.Unmarshal(decoded, &out); err == nil {
			return out
		}
	}

	var out any
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out
	}
	return s
}

// NormalizeGeek adapts a decoded Geek WMS push to a JobEvent bound for a
// fixed dashboard. Geek pushes carry no reliable employee code yet, so
// every event is attributed to the "Unknown" operator.
func NormalizeGeek(raw map[string]any, dashboard string, now time.Time) JobEvent {
	inner, _ := raw["data"].(map[string]any)

	id := stringField(raw, "uuid32")
	if id == "" && inner != nil {
		id = stringField(inner, "hd_number")
		if id == "" {
			id = stringField(inner, "receipt_code")
		}
	}
	if id == "" {
		id = firstReceiptCode(raw)
	}
	if id == "" {
		id = uuid.New().String()
	}

	comment := ""
	if inner != nil {
		comment = stringField(inner, "activity_code")
	}

	return JobEvent{
		ID:        id,
		Dashboard: dashboard,
		Operator:  "Unknown",
		Quantity:  ExtractQuantity(raw),
		Category:  dashboard,
		Comment:   comment,
		At:        eventTime(raw, now),
	}
}

func firstReceiptCode(raw map[string]any) string {
	body, _ := raw["body"].(map[string]any)
	if body == nil {
		return ""
	}
	receipts, _ := body["receipt_list"].([]any)
	if len(receipts) == 0 {
		return ""
	}
	receipt, ok := receipts[0].(map[string]any)
	if !ok {
		return ""
	}
	if code := stringField(receipt, "receipt_code"); code != "" {
		return code
	}
	return stringField(receipt, "pallet_code")
}
