package apps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"meetsync/internal/store"
)

func TestLookupFallsBackToDefaultApp(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemory())

	require.NoError(t, reg.Register(ctx, App{Name: "acme-app", ClientID: "cid", ClientSecret: "sec"}))
	require.NoError(t, reg.SetDefault(ctx, "acme-app"))

	app, err := reg.Lookup(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "acme-app", app.Name)
	require.Equal(t, "cid", app.ClientID)
}

func TestLookupByNameIgnoresDefault(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemory())

	require.NoError(t, reg.Register(ctx, App{Name: "a", ClientID: "cid-a", ClientSecret: "s"}))
	require.NoError(t, reg.Register(ctx, App{Name: "b", ClientID: "cid-b", ClientSecret: "s"}))
	require.NoError(t, reg.SetDefault(ctx, "a"))

	app, err := reg.Lookup(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "cid-b", app.ClientID)
}

func TestLookupWithoutAppsReportsErrNoApp(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemory())

	_, err := reg.Lookup(ctx, "")
	require.ErrorIs(t, err, ErrNoApp)
	_, err = reg.Lookup(ctx, "missing")
	require.ErrorIs(t, err, ErrNoApp)
}

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemory())

	path := filepath.Join(t.TempDir(), "apps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: main
apps:
  - name: main
    clientId: cid-main
    clientSecret: sec-main
    redirectUrl: http://svc.test/zoom/oauth/callback
  - name: alt
    clientId: cid-alt
    clientSecret: sec-alt
`), 0o600))

	require.NoError(t, reg.SeedFromFile(ctx, path))

	app, err := reg.Lookup(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "main", app.Name)
	require.Equal(t, "http://svc.test/zoom/oauth/callback", app.RedirectURL)

	alt, err := reg.Lookup(ctx, "alt")
	require.NoError(t, err)
	require.Equal(t, "cid-alt", alt.ClientID)
}

func TestSeedFromMissingFileIsNoOp(t *testing.T) {
	reg := NewRegistry(store.NewMemory())
	require.NoError(t, reg.SeedFromFile(context.Background(), "/nope/apps.yaml"))
	require.NoError(t, reg.SeedFromFile(context.Background(), ""))
}
