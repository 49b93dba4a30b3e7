package middleware

import (
	"context"
	"go-ws-relay/internal/auth"
	"go-ws-relay/internal/session"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey = contextKey("identity")

// Identity is who made the request, as resolved from the session cookie.
type Identity struct {
	User *auth.User
	// Session is nil when sessions are disabled or no cookie was sent.
	Session *session.Session
}

// GetIdentity retrieves the identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey).(*Identity); ok {
		return id
	}
	// Return an anonymous identity if none is found in the context.
	return &Identity{User: auth.Anonymous()}
}

// SetIdentity adds the identity to the request context.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
