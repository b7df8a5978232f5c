package auth

import (
	"context"

	"lawdesk/internal/core"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Email  string
	Role   core.Role
	Active bool
}

func PrincipalFor(u core.User) Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role, Active: u.IsActive}
}

// System is the principal used by background workers.
func System() Principal {
	return Principal{Email: "system", Role: core.RoleAdmin, Active: true}
}

func (p Principal) IsAdmin() bool { return p.Role == core.RoleAdmin }

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
