package transport

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken rejects requests whose bearer token does not match token.
// An empty token disables the check.
func requireToken(token string, next http.Handler) http.Handler {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := stripBearer(strings.TrimSpace(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="issuestash"`)
			writeError(w, http.StatusUnauthorized, codeUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setToken adds the Authorization header when token is set.
func setToken(h http.Header, token string) {
	token = stripBearer(strings.TrimSpace(token))
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
