package core

import "context"

type contextKey int

const (
	correlationIDKey contextKey = iota
	identityKey
	authFailureKey
)

// WithCorrelationID stores the request correlation ID in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation ID stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithIdentity stores the validated caller identity in ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the validated identity, or nil for anonymous requests.
func IdentityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// WithAuthFailure records why the bearer token of the request was rejected.
func WithAuthFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, authFailureKey, err)
}

// AuthFailure returns the bearer token rejection reason, if any.
func AuthFailure(ctx context.Context) error {
	err, _ := ctx.Value(authFailureKey).(error)
	return err
}
