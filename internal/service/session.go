package service

import (
	"net/http"
	"strings"

	"bff-gateway/internal/model"
)

const (
	sessionCookieName = "sessionID"
	sessionHeaderName = "sessionid"
)

// ResolveSession extracts the session token from req according to source.
// It reports false when the token is absent or empty; it never validates it.
func ResolveSession(source SessionSource, req *model.Request) (string, bool) {
	switch source {
	case SessionCookie:
		return sessionFromCookie(req.Header)
	case SessionHeader:
		return sessionFromHeader(req.Header)
	default:
		return "", false
	}
}

// sessionFromCookie scans the ;-delimited cookie header for sessionID.
// Malformed entries are skipped rather than rejected.
func sessionFromCookie(h http.Header) (string, bool) {
	for _, line := range h.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok || strings.TrimSpace(name) != sessionCookieName {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return "", false
			}
			return value, true
		}
	}
	return "", false
}

func sessionFromHeader(h http.Header) (string, bool) {
	v := strings.TrimSpace(h.Get(sessionHeaderName))
	return v, v != ""
}
