package tenants

import (
	"context"
)

type Provider interface {
	// Resolve a tenant by its id.
	ResolveTenantByID(ctx context.Context, id string) (Tenant, error)
	// List every tenant (the refresh sweep iterates all of them).
	ListTenants(ctx context.Context) ([]Tenant, error)
}
