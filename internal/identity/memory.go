package identity

import (
	"context"
	"sync"
)

type memDirectory struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryDirectory(users ...User) Directory {
	d := &memDirectory{users: map[string]User{}}
	for _, u := range users {
		if u.Claims == nil {
			u.Claims = map[string]any{}
		}
		d.users[u.ID] = u
	}
	return d
}

func (d *memDirectory) GetUser(ctx context.Context, id string) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	claims := make(map[string]any, len(u.Claims))
	for k, v := range u.Claims {
		claims[k] = v
	}
	u.Claims = claims
	return u, nil
}

func (d *memDirectory) SetClaims(ctx context.Context, id string, claims map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Claims = make(map[string]any, len(claims))
	for k, v := range claims {
		u.Claims[k] = v
	}
	d.users[id] = u
	return nil
}

func (d *memDirectory) SetDisabled(ctx context.Context, id string, disabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Disabled = disabled
	d.users[id] = u
	return nil
}

func (d *memDirectory) DeleteUser(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return ErrNotFound
	}
	delete(d.users, id)
	return nil
}
