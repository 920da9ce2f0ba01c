package testutil

import (
	"context"
	"time"

	"persondir/pkg/requestcontext"
)

// RequestContext returns a context carrying the values the HTTP middleware
// chain would have set for a request: request ID, client IP and request time.
// Empty values are left unset.
func RequestContext(parent context.Context, requestID, clientIP string, at time.Time) context.Context {
	ctx := parent
	if requestID != "" {
		ctx = requestcontext.WithRequestID(ctx, requestID)
	}
	if clientIP != "" {
		ctx = requestcontext.WithClientMetadata(ctx, clientIP, "")
	}
	if !at.IsZero() {
		ctx = requestcontext.WithTime(ctx, at)
	}
	return ctx
}

