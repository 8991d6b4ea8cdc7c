package mysql

import (
	"encoding/json"
	"strings"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// jsonOrEmpty makes sure a JSON column always gets valid JSON.
func jsonOrEmpty(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(raw), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": raw})
		return string(b)
	}
	return raw
}
