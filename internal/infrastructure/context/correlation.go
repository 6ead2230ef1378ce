package context

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// CorrelationIDKey is the context key for correlation IDs.
const CorrelationIDKey contextKey = "correlation_id"

// HeaderCorrelationID carries the correlation id on calls to Siigo.
const HeaderCorrelationID = "X-Correlation-ID"

// WithCorrelationID adds a correlation ID to the context. It ties an inbound request
// to every Siigo call (token included) made while serving it.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID retrieves the correlation ID from the context.
// Returns an empty string if no correlation ID is present.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns ctx unchanged when it already has a correlation ID,
// otherwise a child context carrying a new random one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := GetCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

// CollectionKey is the context key for the Siigo collection an outbound call targets.
const CollectionKey contextKey = "siigo_collection"

// CollectionAuth names the token endpoint.
const CollectionAuth = "auth"

// WithCollection names the Siigo collection ("purchases", "auth") of the calls made
// with ctx. Callers pass fixed names, never ids taken from a request.
func WithCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, CollectionKey, collection)
}

// GetCollection returns the collection set by WithCollection, or "unknown".
func GetCollection(ctx context.Context) string {
	if c, ok := ctx.Value(CollectionKey).(string); ok && c != "" {
		return c
	}
	return "unknown"
}
