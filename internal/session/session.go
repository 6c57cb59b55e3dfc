// Package session identifies the shopper behind each request and decides
// whether the authoritative remote tier applies to them.
package session

import "context"

// Session describes the caller of a cart operation.
// Tier selection reads Authenticated() fresh on every call; nothing about
// the session is cached by the engine.
type Session struct {
	// ID identifies the shopper session, mainly for logging. Guests get a
	// generated ID when the request carries none.
	ID string

	// Token is the bearer token for the remote store API. An empty token
	// means a guest session confined to the ephemeral tier.
	Token string
}

// Authenticated reports whether the remote tier is authoritative for this
// session.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

type contextKey struct{}

// NewContext returns a context carrying the session.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the session from the context.
// A context without one yields a zero-value guest session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(contextKey{}).(Session)
	return s
}
