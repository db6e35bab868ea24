// pkg/middleware/identity.go
package middleware

import (
	"context"
)

// Identity is the authenticated caller: the subject plus the claim set the
// identity provider attached to its token. Authorization decisions consult
// Admin, TenantID and AccessLevel.
type Identity struct {
	Subject     string
	Email       string
	Name        string
	Admin       bool
	TenantID    string
	AccessLevel int
}

type ctxIdentityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey{}, id)
}

// IdentityFrom returns the caller identity, if any authentication context is
// present on the request.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if v := ctx.Value(ctxIdentityKey{}); v != nil {
		id, ok := v.(Identity)
		return id, ok
	}
	return Identity{}, false
}
