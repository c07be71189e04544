package logtrace

import (
	"context"
)

type requestIdContextKey string

// RequestIdContextKey is the context key under which the request-logger
// middleware stores the request id.
const RequestIdContextKey = requestIdContextKey("requestId")

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdContextKey).(string)
	if !ok {
		return ""
	}
	return r
}

// IsTraceEnabled reports whether route tracing is enabled.
func IsTraceEnabled() bool {
	return false
}
