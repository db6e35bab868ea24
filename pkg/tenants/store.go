// pkg/tenants/store.go
package tenants

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"meetsync/internal/store"
)

// docProvider reads tenant records from the document store.
type docProvider struct {
	docs store.Store
	log  *zap.SugaredLogger
}

func NewStoreProvider(docs store.Store, log *zap.SugaredLogger) Provider {
	return &docProvider{docs: docs, log: log}
}

func (p *docProvider) ResolveTenantByID(ctx context.Context, id string) (Tenant, error) {
	doc, err := p.docs.Get(ctx, store.TenantPath(id))
	if err != nil {
		return Tenant{}, errors.New("tenant not found")
	}
	return fromDoc(id, doc), nil
}

func (p *docProvider) ListTenants(ctx context.Context) ([]Tenant, error) {
	docs, err := p.docs.List(ctx, "/enterprises")
	if err != nil {
		return nil, err
	}
	out := make([]Tenant, 0, len(docs))
	for _, d := range docs {
		id, _ := d.Doc["tenantId"].(string)
		if id == "" {
			// path is /enterprises/{id}
			id = d.Path[len("/enterprises/"):]
		}
		out = append(out, fromDoc(id, d.Doc))
	}
	return out, nil
}

func fromDoc(id string, doc map[string]any) Tenant {
	t := Tenant{ID: id}
	t.Name, _ = doc["tenantName"].(string)
	t.AllowedDomain, _ = doc["allowedDomain"].(string)
	t.AppName, _ = doc["zoomAppName"].(string)
	return t
}
