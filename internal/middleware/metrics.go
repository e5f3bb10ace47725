package middleware

import (
	"crypto/subtle"
	"net/http"
)

// BasicAuth guards a handler with a single username and password, as used
// for the Prometheus scrape endpoint. With both credentials empty the guard
// is disabled and requests pass through.
func BasicAuth(realm, username, password string) func(http.Handler) http.Handler {
	enabled := username != "" || password != ""
	challenge := `Basic realm="` + realm + `"`

	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()

			// Compare both fields even when the first mismatches.
			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1

			if !ok || !userMatch || !passMatch {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
