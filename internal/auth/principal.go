// Package auth provides bearer-token authentication and the authorization
// policy for VibeVault.
package auth

import (
	"context"

	"github.com/vibevault/vibevault/internal/domain"
)

// Principal is the identity bound to a request after successful
// authentication: the subject's username and their persisted role.
type Principal struct {
	Username string
	Role     domain.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// contextKey is a private type to avoid context key collisions.
type contextKey struct{}

// principalKey is the context key under which the principal is stored.
var principalKey = contextKey{}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the principal bound to the context.
// ok is false for unauthenticated requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
