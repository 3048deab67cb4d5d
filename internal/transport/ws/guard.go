package ws

import (
	"net/http"
	"strings"

	"github.com/cwrk-planet/interview-room/internal/security"
)

// TokenFromRequest: Authorization header, then ?token=, then ?access_token=.
// A header with only the scheme counts as absent.
func TokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); security.StripBearer(h) != "" {
		return h
	}
	q := r.URL.Query()
	if t := strings.TrimSpace(q.Get("token")); t != "" {
		return t
	}
	return strings.TrimSpace(q.Get("access_token"))
}
