package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds how long a handler may run. Interpretation is
// fast, but the LLM fallback path can stall on the upstream provider.
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces a deadline on every request. The deadline is carried in
// the request context so downstream database and provider calls abort too.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
