package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds the context of each request. Siigo calls made by the handler
// inherit the deadline, retries and backoff sleeps included. A non-positive d disables it.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
