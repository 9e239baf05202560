package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth gates every request behind a shared API key. Callers present it
// either as "Authorization: Bearer <key>" or in the X-API-Key header. An
// empty key disables the gate entirely, which is the default for local
// monitor-mode use.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestCredential(r)
			switch {
			case got == "":
				unauthorized(w, "missing authentication token")
			case subtle.ConstantTimeCompare([]byte(got), want) != 1:
				unauthorized(w, "invalid authentication token")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestCredential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
