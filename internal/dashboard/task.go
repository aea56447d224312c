package dashboard

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NotAvailable is shown when a record has no displayable task payload.
const NotAvailable = "N/A"

// hiddenTaskFields are internal and never displayed.
var hiddenTaskFields = []string{"taskId", "source_url", "targetStyleUrl"}

// decodeTask parses raw task JSON. A JSON string holding serialized JSON is
// unwrapped once.
func decodeTask(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return inner, nil
		}
	}
	return v, nil
}

// TargetStyleURL extracts task.targetStyleUrl, or "" when the task is absent,
// malformed, or carries no such string.
func TargetStyleURL(task *string) string {
	if task == nil || strings.TrimSpace(*task) == "" {
		return ""
	}
	v, err := decodeTask(*task)
	if err != nil {
		return ""
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	u, _ := obj["targetStyleUrl"].(string)
	return u
}

// FormatTask renders the task payload for display with internal fields removed.
// The second result is false when the payload could not be parsed and is
// returned verbatim.
func FormatTask(task *string) (string, bool) {
	if task == nil || strings.TrimSpace(*task) == "" {
		return NotAvailable, true
	}

	v, err := decodeTask(*task)
	if err != nil {
		return *task, false
	}
	if v == nil {
		return NotAvailable, true
	}

	obj, ok := v.(map[string]any)
	if !ok {
		if s, isString := v.(string); isString {
			return s, true
		}
		return *task, true
	}

	for _, field := range hiddenTaskFields {
		delete(obj, field)
	}
	if len(obj) == 0 {
		return NotAvailable, true
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obj); err != nil {
		return *task, false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}
