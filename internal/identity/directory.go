// Package identity abstracts the identity provider that owns user records
// and their attached claims. The service only needs four operations; real
// deployments plug the provider's admin API behind this interface.
package identity

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

// User is an identity record with its claim set.
type User struct {
	ID       string
	Email    string
	Name     string
	Disabled bool
	Claims   map[string]any
}

type Directory interface {
	GetUser(ctx context.Context, id string) (User, error)
	// SetClaims replaces the user's full claim set.
	SetClaims(ctx context.Context, id string, claims map[string]any) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	DeleteUser(ctx context.Context, id string) error
}
