package auth

import (
	"context"

	"cycleassembly/internal/workflow"
)

type ctxKey string

const claimsKey ctxKey = "profileClaims"

// Claims is the request-scoped identity: the authenticated profile, its
// single role, and the session id backing the token.
type Claims struct {
	ProfileID string
	UserCode  string
	Role      workflow.Role
	JWTID     string
}

func (c Claims) HasRole(roles ...workflow.Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

// ProfileID is shorthand for the authenticated profile id.
func ProfileID(ctx context.Context) string {
	return FromContext(ctx).ProfileID
}
