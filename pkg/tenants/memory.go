// pkg/tenants/memory.go
package tenants

import (
	"context"
	"errors"
	"sort"
)

type memProvider struct {
	byID map[string]Tenant
}

func NewMemoryProvider(ts ...Tenant) Provider {
	p := &memProvider{byID: map[string]Tenant{}}
	for _, t := range ts {
		p.byID[t.ID] = t
	}
	return p
}

func (m *memProvider) ResolveTenantByID(ctx context.Context, id string) (Tenant, error) {
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return Tenant{}, errors.New("tenant not found")
}

func (m *memProvider) ListTenants(ctx context.Context) ([]Tenant, error) {
	out := make([]Tenant, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
