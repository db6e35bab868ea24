package claims

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meetsync/internal/authz"
	"meetsync/internal/identity"
	"meetsync/internal/store"
	"meetsync/pkg/middleware"
	"meetsync/pkg/problems"
)

type countingDirectory struct {
	identity.Directory
	writes int
}

func (d *countingDirectory) SetClaims(ctx context.Context, id string, claims map[string]any) error {
	d.writes++
	return d.Directory.SetClaims(ctx, id, claims)
}

func (d *countingDirectory) SetDisabled(ctx context.Context, id string, disabled bool) error {
	d.writes++
	return d.Directory.SetDisabled(ctx, id, disabled)
}

func (d *countingDirectory) DeleteUser(ctx context.Context, id string) error {
	d.writes++
	return d.Directory.DeleteUser(ctx, id)
}

func newTestSetup(t *testing.T, users ...identity.User) (*Service, *countingDirectory, store.Store) {
	t.Helper()
	az, err := authz.New(context.Background())
	require.NoError(t, err)
	dir := &countingDirectory{Directory: identity.NewMemoryDirectory(users...)}
	docs := store.NewMemory()
	return NewService(dir, docs, az, zap.NewNop().Sugar()), dir, docs
}

var admin = middleware.Identity{Subject: "admin-1", Admin: true, TenantID: "acme"}

func TestUpdateClaimsOverwritesOnlyPatchedKeys(t *testing.T) {
	ctx := context.Background()
	svc, dir, _ := newTestSetup(t, identity.User{
		ID:     "u1",
		Claims: map[string]any{"role": "member", "plan": "pro"},
	})

	res := svc.UpdateClaims(ctx, admin, true, "u1", map[string]any{"role": "manager"})
	require.Equal(t, problems.Success, res.Code)

	u, err := dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "manager", u.Claims["role"])
	require.Equal(t, "pro", u.Claims["plan"])
}

func TestUpdateClaimsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, dir, _ := newTestSetup(t, identity.User{ID: "u1", Claims: map[string]any{}})

	patch := map[string]any{"role": "manager"}
	require.Equal(t, problems.Success, svc.UpdateClaims(ctx, admin, true, "u1", patch).Code)
	require.Equal(t, problems.Success, svc.UpdateClaims(ctx, admin, true, "u1", patch).Code)

	u, err := dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "manager", u.Claims["role"])
}

func TestPreconditionOrdering(t *testing.T) {
	ctx := context.Background()
	svc, dir, _ := newTestSetup(t)

	// anonymous caller is rejected before any lookup
	res := svc.UpdateClaims(ctx, middleware.Identity{}, false, "ghost", map[string]any{"x": 1})
	require.Equal(t, problems.Unauthenticated, res.Code)

	// authenticated non-admin learns nothing about the target
	res = svc.UpdateClaims(ctx, middleware.Identity{Subject: "u2", TenantID: "acme"}, true, "ghost", map[string]any{"x": 1})
	require.Equal(t, problems.PermissionDenied, res.Code)

	// admin gets not-found for a missing user
	res = svc.UpdateClaims(ctx, admin, true, "ghost", map[string]any{"x": 1})
	require.Equal(t, problems.NotFound, res.Code)

	require.Zero(t, dir.writes)
}

func TestDeniedCallerCausesNoWrites(t *testing.T) {
	ctx := context.Background()
	svc, dir, _ := newTestSetup(t, identity.User{ID: "u1", Claims: map[string]any{}})

	res := svc.SetDisabled(ctx, middleware.Identity{Subject: "u2"}, true, "u1", true)
	require.Equal(t, problems.PermissionDenied, res.Code)
	require.Zero(t, dir.writes)

	u, err := dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.False(t, u.Disabled)
}

func TestDeactivateWritesDirectoryAndMirror(t *testing.T) {
	ctx := context.Background()
	svc, dir, docs := newTestSetup(t, identity.User{ID: "u1", Claims: map[string]any{}})

	res := svc.SetDisabled(ctx, admin, true, "u1", true)
	require.Equal(t, problems.Success, res.Code)

	u, err := dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.True(t, u.Disabled)

	doc, err := docs.Get(ctx, store.UserPath("acme", "u1"))
	require.NoError(t, err)
	require.Equal(t, true, doc["disabled"])

	res = svc.SetDisabled(ctx, admin, true, "u1", false)
	require.Equal(t, problems.Success, res.Code)
	doc, err = docs.Get(ctx, store.UserPath("acme", "u1"))
	require.NoError(t, err)
	require.Equal(t, false, doc["disabled"])
}

func TestDeleteLicenseRemovesMirrorAndReservedMeetings(t *testing.T) {
	ctx := context.Background()
	svc, dir, docs := newTestSetup(t, identity.User{ID: "u1", Claims: map[string]any{}})

	require.NoError(t, docs.Set(ctx, store.UserPath("acme", "u1"), map[string]any{"email": "u1@acme.test"}))
	require.NoError(t, docs.Set(ctx, store.ReservedMeetingPath("acme", "u1", "m1"), map[string]any{"topic": "standup"}))
	require.NoError(t, docs.Set(ctx, store.ReservedMeetingPath("acme", "u1", "m2"), map[string]any{"topic": "retro"}))

	res := svc.DeleteLicense(ctx, admin, true, "u1")
	require.Equal(t, problems.Success, res.Code)

	_, err := dir.GetUser(ctx, "u1")
	require.ErrorIs(t, err, identity.ErrNotFound)
	_, err = docs.Get(ctx, store.UserPath("acme", "u1"))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = docs.Get(ctx, store.ReservedMeetingPath("acme", "u1", "m1"))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = docs.Get(ctx, store.ReservedMeetingPath("acme", "u1", "m2"))
	require.ErrorIs(t, err, store.ErrNotFound)
}
