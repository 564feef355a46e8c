package memory

import (
	"encoding/json"
	"strings"
)

// decodeJSONObject decodes a JSON object from model output, tolerating
// prose around the outermost {...} span
func decodeJSONObject(content string, out interface{}) error {
	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(trimmed[start:end+1]), out)
}

// decodeJSONArray decodes a JSON array from model output, tolerating
// prose around the outermost [...] span
func decodeJSONArray(content string, out interface{}) error {
	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(trimmed[start:end+1]), out)
}
