package bot

import (
	"net/http"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveHeaderMarkers match any header whose name carries credential
// material: Authorization, Cookie/Set-Cookie, API-key variants, and
// access-token variants.
var sensitiveHeaderMarkers = []string{"auth", "cookie", "token", "secret", "api-key", "apikey"}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveHeaderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// redactHeaders flattens headers for logging, masking sensitive values.
func redactHeaders(h http.Header) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name) {
			out[name] = redactedValue
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}
