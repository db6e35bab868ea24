package zoomauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meetsync/internal/store"
	"meetsync/internal/zoom"
	"meetsync/pkg/tenants"
)

func TestSweepRefreshesTenantsWithTokens(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, false)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	require.NoError(t, fx.svc.SaveToken(ctx, "acme", zoom.Token{
		AccessToken: "stale-at", RefreshToken: "rt-acme", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, fx.svc.SaveToken(ctx, "globex", zoom.Token{
		AccessToken: "stale-at", RefreshToken: "rt-globex", ExpiresAt: time.Now().Add(-time.Hour),
	}))

	provider := tenants.NewMemoryProvider(
		tenants.Tenant{ID: "acme"},
		tenants.Tenant{ID: "globex"},
		tenants.Tenant{ID: "initech"}, // never completed OAuth
	)

	stats, err := fx.svc.Sweep(ctx, provider)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Refreshed)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 0, stats.Failed)

	tok, err := fx.svc.LoadToken(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "fresh-at", tok.AccessToken)
	require.Equal(t, "fresh-rt", tok.RefreshToken)
}

func TestSweepIsolatesPerTenantFailures(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, true)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	require.NoError(t, fx.svc.SaveToken(ctx, "acme", zoom.Token{
		AccessToken: "stale-at", RefreshToken: "rt-acme", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	// globex has a token document but no refresh token to use
	require.NoError(t, fx.docs.Merge(ctx, store.TenantTokenPath("globex", "zoom"), map[string]any{
		"accessToken": "stale-at",
	}))

	provider := tenants.NewMemoryProvider(
		tenants.Tenant{ID: "acme"},
		tenants.Tenant{ID: "globex"},
		tenants.Tenant{ID: "initech"},
	)

	stats, err := fx.svc.Sweep(ctx, provider)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Refreshed)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 2, stats.Failed)

	// the broken tenants never blocked the pass and the stale token survives
	tok, err := fx.svc.LoadToken(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "stale-at", tok.AccessToken)
	require.Equal(t, "rt-acme", tok.RefreshToken)
}
