package validators

import (
	"net/http"
	"strings"
)

// BearerToken extracts the raw token from the Authorization header.
// Returns "" when the header is absent, has no bearer scheme, or
// carries an empty credential.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return ""
	}
	return strings.TrimSpace(raw[7:])
}
