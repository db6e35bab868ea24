// Package authz decides whether a caller may perform administrative
// operations. The policy is a small embedded rego module evaluated with the
// caller's claims and the target tenant as input.
package authz

import (
	"context"

	"github.com/open-policy-agent/opa/rego"

	"meetsync/pkg/middleware"
)

const policy = `package meetsync.authz

default allow = false

# Admins may act when the operation names no tenant.
allow {
	input.caller.admin == true
	not input.target.tenant_id
}

# Admins may act on targets inside their own tenant.
allow {
	input.caller.admin == true
	input.caller.tenant_id == input.target.tenant_id
}
`

type Authorizer struct {
	query rego.PreparedEvalQuery
}

func New(ctx context.Context) (*Authorizer, error) {
	q, err := rego.New(
		rego.Query("data.meetsync.authz.allow"),
		rego.Module("authz.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Authorizer{query: q}, nil
}

// AllowAdmin reports whether the caller may perform an admin operation
// scoped to targetTenant. An empty targetTenant means the operation is
// scoped to the caller's own tenant.
func (a *Authorizer) AllowAdmin(ctx context.Context, caller middleware.Identity, targetTenant string) bool {
	target := map[string]any{}
	if targetTenant != "" {
		target["tenant_id"] = targetTenant
	}
	input := map[string]any{
		"caller": map[string]any{
			"admin":     caller.Admin,
			"tenant_id": caller.TenantID,
		},
		"target": target,
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false
	}
	return rs.Allowed()
}
