package chi

import (
	"crypto/subtle"
	"net/http"
)

// secretHeader carries the shared API secret on gated routes.
const secretHeader = "x-api-secret"

// SecretGate returns a middleware that validates the x-api-secret header.
// If secret is empty, gating is disabled (pass-through). Comparison is
// constant-time so response latency leaks nothing about the secret.
func SecretGate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(secretHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, errCodeAccessDenied, "invalid api secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
