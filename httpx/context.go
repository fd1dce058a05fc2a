package httpx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// WithRequestID returns a context carrying a request ID, stamped on outgoing
// requests when Options.RequestIDHeader is set.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFrom extracts the request ID from ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyRequestID).(string)
	return s, ok && s != ""
}

func requestID(ctx context.Context) string {
	if id, ok := RequestIDFrom(ctx); ok {
		return id
	}
	return uuid.NewString()
}
