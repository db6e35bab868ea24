package identity

import (
	"context"
	"errors"

	"meetsync/internal/store"
)

// docDirectory keeps identity records in the document store. Deployments
// with a real identity provider swap this for an admin-API client; the
// semantics here match what handlers rely on.
type docDirectory struct {
	docs store.Store
}

func NewDocDirectory(docs store.Store) Directory {
	return &docDirectory{docs: docs}
}

func userPath(id string) string { return "/identityUsers/" + id }

func (d *docDirectory) GetUser(ctx context.Context, id string) (User, error) {
	doc, err := d.docs.Get(ctx, userPath(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u := User{ID: id}
	u.Email, _ = doc["email"].(string)
	u.Name, _ = doc["name"].(string)
	u.Disabled, _ = doc["disabled"].(bool)
	if c, ok := doc["claims"].(map[string]any); ok {
		u.Claims = c
	} else {
		u.Claims = map[string]any{}
	}
	return u, nil
}

func (d *docDirectory) SetClaims(ctx context.Context, id string, claims map[string]any) error {
	if _, err := d.GetUser(ctx, id); err != nil {
		return err
	}
	// full replacement of the claim set, not a key-wise merge
	return d.docs.Merge(ctx, userPath(id), map[string]any{"claims": claims})
}

func (d *docDirectory) SetDisabled(ctx context.Context, id string, disabled bool) error {
	if _, err := d.GetUser(ctx, id); err != nil {
		return err
	}
	return d.docs.Merge(ctx, userPath(id), map[string]any{"disabled": disabled})
}

func (d *docDirectory) DeleteUser(ctx context.Context, id string) error {
	if _, err := d.GetUser(ctx, id); err != nil {
		return err
	}
	return d.docs.Delete(ctx, userPath(id))
}
