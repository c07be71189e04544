package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/httpx"
)

// SetTimeout creates middleware that enforces a timeout for request handling.
// If the request exceeds the specified duration, a timeout error response is
// returned unless the handler already started writing.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", rec)
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if !rw.Written() {
					httpx.ErrRequestTimeout().Send(w)
				}
				log.Ctx(ctx).Error().Msgf("request timed out")
				return
			}
		})
	}
}
