package zoomauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meetsync/internal/apps"
	"meetsync/internal/keys"
	"meetsync/internal/mailer"
	"meetsync/internal/store"
	"meetsync/internal/zoom"
)

// tokenServer fakes the provider OAuth token endpoint.
func tokenServer(t *testing.T, fail bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-at",
			"refresh_token": "fresh-rt",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	}))
}

type fixture struct {
	svc  *Service
	keys *keys.Service
	docs store.Store
	now  *time.Time
}

func newFixture(t *testing.T, tokenURL string) fixture {
	t.Helper()
	ctx := context.Background()
	docs := store.NewMemory()
	log := zap.NewNop().Sugar()

	reg := apps.NewRegistry(docs)
	require.NoError(t, reg.Register(ctx, apps.App{
		Name:         "default-app",
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://svc.test/zoom/oauth/callback",
	}))
	require.NoError(t, reg.SetDefault(ctx, "default-app"))

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := t0
	ks := keys.NewService(docs, mailer.Noop{}, log, 4320, "http://front.test/invite")
	ks.WithClock(func() time.Time { return now })

	client := zoom.NewClient("http://provider.test/oauth/authorize", tokenURL, "http://provider.test/v2")
	svc := NewService(docs, ks, reg, client, log, "zoom", "http://front.test")
	return fixture{svc: svc, keys: ks, docs: docs, now: &now}
}

func TestCallbackSuccessStoresTokenAndMirrors(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, false)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	authURL, err := fx.svc.Authorize(ctx, "acme", "u1", "")
	require.NoError(t, err)
	require.Contains(t, authURL, "state=")

	k, err := fx.keys.Issue(ctx, keys.Key{
		Kind: keys.KindZoomAuth, TenantID: "acme", IssuedToUserID: "u1", TargetApp: "default-app",
	}, 0)
	require.NoError(t, err)

	redirect := fx.svc.Callback(ctx, k.ID, "auth-code")
	require.Equal(t, "http://front.test/?zoomAuthResult=success", redirect)

	doc, err := fx.docs.Get(ctx, store.TenantTokenPath("acme", "zoom"))
	require.NoError(t, err)
	require.Equal(t, "fresh-at", doc["accessToken"])
	require.Equal(t, "fresh-rt", doc["refreshToken"])

	mirror, err := fx.docs.Get(ctx, store.UserPath("acme", "u1"))
	require.NoError(t, err)
	require.Equal(t, true, mirror["zoomAuthorized"])
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, false)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	k, err := fx.keys.Issue(ctx, keys.Key{Kind: keys.KindZoomAuth, TenantID: "acme", TargetApp: "default-app"}, 0)
	require.NoError(t, err)

	require.Equal(t, "http://front.test/?zoomAuthResult=success", fx.svc.Callback(ctx, k.ID, "auth-code"))
	require.Equal(t, "http://front.test/?zoomAuthResult=invalidAccessToken", fx.svc.Callback(ctx, k.ID, "auth-code"))
}

func TestCallbackRejectsUnknownAndMissingState(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, false)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	require.Equal(t, "http://front.test/?zoomAuthResult=invalidAccessToken", fx.svc.Callback(ctx, "bogus", "auth-code"))
	require.Equal(t, "http://front.test/?zoomAuthResult=invalidAccessToken", fx.svc.Callback(ctx, "", "auth-code"))
	require.Equal(t, "http://front.test/?zoomAuthResult=invalidAccessToken", fx.svc.Callback(ctx, "bogus", ""))
}

func TestCallbackRejectsExpiredState(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, false)
	defer ts.Close()
	fx := newFixture(t, ts.URL)
	t0 := *fx.now

	k, err := fx.keys.Issue(ctx, keys.Key{Kind: keys.KindZoomAuth, TenantID: "acme", TargetApp: "default-app"}, 0)
	require.NoError(t, err)

	*fx.now = t0.Add(2 * time.Hour)
	require.Equal(t, "http://front.test/?zoomAuthResult=invalidAccessToken", fx.svc.Callback(ctx, k.ID, "auth-code"))
}

func TestCallbackExchangeFailureIsInternalError(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, true)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	k, err := fx.keys.Issue(ctx, keys.Key{Kind: keys.KindZoomAuth, TenantID: "acme", TargetApp: "default-app"}, 0)
	require.NoError(t, err)

	require.Equal(t, "http://front.test/?zoomAuthResult=internalError", fx.svc.Callback(ctx, k.ID, "auth-code"))
}

func TestSaveTokenKeepsRefreshTokenThroughRotation(t *testing.T) {
	ctx := context.Background()
	ts := tokenServer(t, false)
	defer ts.Close()
	fx := newFixture(t, ts.URL)

	require.NoError(t, fx.svc.SaveToken(ctx, "acme", zoom.Token{
		AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: time.Now().Add(time.Hour),
	}))
	// rotation response without a refresh token must not clobber the stored one
	require.NoError(t, fx.svc.SaveToken(ctx, "acme", zoom.Token{
		AccessToken: "at-2", ExpiresAt: time.Now().Add(time.Hour),
	}))

	tok, err := fx.svc.LoadToken(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "at-2", tok.AccessToken)
	require.Equal(t, "rt-1", tok.RefreshToken)
}
