package auth

import "context"

// Principal identifies the caller of an authenticated request. The zero
// value is the anonymous principal. It replaces any ambient security
// context: handlers put it in the request context and every query that
// needs "the current user" reads it from there explicitly.
type Principal struct {
	Username      string
	Authenticated bool
}

// IsAnonymous reports whether this is a placeholder principal rather
// than a verified identity.
func (p Principal) IsAnonymous() bool {
	return p.Username == ""
}

type principalContextKey struct{}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
