// Package session holds the request-scoped admin principal and the server-side session stores.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidPrincipal is returned when a session is created without an admin.
var ErrInvalidPrincipal = errors.New("session: invalid principal")

// Principal identifies the authenticated admin of a request.
type Principal struct {
	AdminID  uint64
	Username string
}

// Valid reports whether the principal names an admin.
func (p Principal) Valid() bool { return p.AdminID != 0 }

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || !p.Valid() {
		return Principal{}, false
	}
	return p, true
}

// Meta is request metadata recorded with a new session.
type Meta struct {
	IP        string
	UserAgent string
}

// Store persists login sessions. Tokens are opaque to callers.
type Store interface {
	Create(ctx context.Context, p Principal, expiresAt time.Time, meta Meta) (token string, err error)
	// Lookup returns ok=false for unknown, expired or revoked tokens.
	Lookup(ctx context.Context, token string) (p Principal, ok bool, err error)
	Revoke(ctx context.Context, token string) error
}
