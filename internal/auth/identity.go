package auth

import "context"

// Identity is the canonical authenticated identity carried through a
// request. It is decoded exactly once by the authenticator (or the
// realtime gateway handshake) and used everywhere downstream.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type contextKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity, if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
