package httpx

import (
	"log/slog"
	"net/http"
)

// WithRecover converts handler panics into a 500 with a generic JSON body
// instead of tearing down the connection.
func WithRecover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if logger != nil {
						logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal_error","message":"I'm sorry, something went wrong on our end. Please try again in a moment."}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
