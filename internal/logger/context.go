package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// requestScope is what HTTPMiddleware attaches to a request context
type requestScope struct {
	id  string
	log *slog.Logger
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) requestScope {
	s, _ := ctx.Value(scopeKey{}).(requestScope)
	return s
}

// NewRequestID returns a random request ID
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequest attaches id, and a default logger tagged with it, to ctx
func WithRequest(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scopeKey{}, requestScope{
		id:  id,
		log: slog.Default().With("request_id", id),
	})
}

// WithLogger replaces the logger carried by ctx. The request ID is kept.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	s := scopeFrom(ctx)
	s.log = l
	return context.WithValue(ctx, scopeKey{}, s)
}

// RequestIDFromContext returns the request ID, or "" outside a request
func RequestIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).id
}

// FromContext returns the request logger, or slog.Default() outside a request
func FromContext(ctx context.Context) *slog.Logger {
	if l := scopeFrom(ctx).log; l != nil {
		return l
	}
	return slog.Default()
}
