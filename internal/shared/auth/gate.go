package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrIdentityMismatch = errors.New("authenticated user does not match requested user")
)

// Principal is the authenticated caller resolved from the session.
type Principal struct {
	UserID string
	Email  string
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the session middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Verify is the only authorization boundary: the session principal must exist
// and its id must equal claimedUserID. Every entry point calls it before
// touching the aggregator or the database.
func Verify(ctx context.Context, claimedUserID string) (*Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if p.UserID != claimedUserID {
		return nil, ErrIdentityMismatch
	}
	return p, nil
}
