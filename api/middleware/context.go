package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/praxisworks/accounts-backend/pkg/enums"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// Identity is the resolved caller attached to the request context by the
// Auth middleware. UserID is the local database id, not the provider
// subject.
type Identity struct {
	UserID      uuid.UUID
	ProviderUID string
	Email       string
	Roles       []enums.Role
}

// HasAnyRole reports whether the identity holds at least one of the
// given roles. An empty requirement always passes.
func (id Identity) HasAnyRole(roles ...enums.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, required := range roles {
		for _, held := range id.Roles {
			if held == required {
				return true
			}
		}
	}
	return false
}

// WithIdentity injects the resolved identity into the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFromContext returns the identity seeded by Auth, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}
