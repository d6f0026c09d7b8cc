package api

import (
	"context"
	"errors"
)

// userIDContextKey is the context key for the authenticated user id.
type userIDContextKey struct{}

// clientIDContextKey is the context key for the device id (for logging).
type clientIDContextKey struct{}

// ErrNoUserInContext indicates no authenticated user was found in the
// context.
var ErrNoUserInContext = errors.New("no user in context")

// WithUserID returns a new context with the authenticated user attached.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext extracts the authenticated user id from the context.
// Returns ErrNoUserInContext if not present or empty.
func UserIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userIDContextKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoUserInContext
	}
	return id, nil
}

// MustUserIDFromContext extracts the user id or panics.
// Use only when middleware guarantees an authenticated user.
func MustUserIDFromContext(ctx context.Context) string {
	id, err := UserIDFromContext(ctx)
	if err != nil {
		panic("user not in context: middleware misconfiguration")
	}
	return id
}

// WithClientID returns a new context with the device id attached.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, id)
}

// ClientIDFromContext extracts the device id from the context.
// Returns "unknown" if not present or empty.
func ClientIDFromContext(ctx context.Context) string {
	id, ok := ctx.Value(clientIDContextKey{}).(string)
	if !ok || id == "" {
		return "unknown"
	}
	return id
}
