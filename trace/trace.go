package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// idLength is the number of hex characters in a generated trace id.
const idLength = 16

type traceIDKey struct{}

// NewID generates an opaque correlation token. The token is threaded
// unchanged through every log line and response for one request or
// connection lifetime.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

// Ensure returns id unchanged when the caller supplied one, otherwise a
// freshly generated trace id.
func Ensure(id string) string {
	if id != "" {
		return id
	}
	return NewID()
}

// WithID stores the trace id in the context for downstream stages.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// FromContext extracts the trace id from the context. Returns an empty
// string if none is present.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}
