package middleware

import (
	"net/http"
)

// SetRequestBodyLimit creates middleware that caps the request body at the
// given number of bytes. Reads past the limit fail with http.MaxBytesError,
// which httpx.GetRequestData translates into a 413 response.
func SetRequestBodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
