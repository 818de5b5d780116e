package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON writes v as a JSON body with the given status code and
// no-store caching headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Token responses must never be cached by intermediaries.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteOAuthError writes an OAuth2 style error envelope. extra is merged
// into the body, which is how continuation tokens ride along with errors.
func WriteOAuthError(w http.ResponseWriter, code int, errCode, description string, extra map[string]any) {
	body := map[string]any{
		"error":             errCode,
		"error_description": description,
	}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, code, body)
}

// ParseSpaceDelimitedFields splits a space-delimited string such as a scope
// parameter. Returns nil for blank input.
func ParseSpaceDelimitedFields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// JoinSpaceDelimited is the inverse of ParseSpaceDelimitedFields, skipping
// empty entries.
func JoinSpaceDelimited(fields []string) string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}
