package shared

import (
	"context"

	"github.com/invora-hq/invora/internal/authz"
)

// Identity describes the authenticated user and the account they act
// within. It is resolved once per request by the auth middleware and
// passed explicitly from there on.
type Identity struct {
	UserID    int64
	AccountID int64
	Email     string
	Name      string
	Role      authz.Role
	Active    bool
}

// Can reports whether this identity may perform the given action.
func (id Identity) Can(action authz.Action) bool {
	return authz.Can(id.Role, id.Active, action)
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context. The second
// return value is false when no authenticated identity is present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
