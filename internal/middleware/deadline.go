package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context by d so long-running handlers give up
// and answer before the server write timeout closes the connection. d <= 0
// disables it.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
