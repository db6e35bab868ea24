// Package zoomauth runs the provider OAuth lifecycle: consent redirect,
// callback exchange, token persistence and the periodic refresh sweep.
package zoomauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meetsync/internal/apps"
	"meetsync/internal/keys"
	"meetsync/internal/store"
	"meetsync/internal/zoom"
	"meetsync/pkg/problems"
)

// CallbackResult values become the zoomAuthResult query parameter on the
// front-end redirect.
type CallbackResult string

const (
	ResultSuccess            CallbackResult = "success"
	ResultInvalidAccessToken CallbackResult = "invalidAccessToken"
	ResultInternalError      CallbackResult = "internalError"
)

type Service struct {
	docs     store.Store
	keys     *keys.Service
	apps     *apps.Registry
	client   *zoom.Client
	log      *zap.SugaredLogger
	provider string
	front    string
	now      func() time.Time
}

func NewService(docs store.Store, ks *keys.Service, reg *apps.Registry, client *zoom.Client, log *zap.SugaredLogger, provider, frontBaseURL string) *Service {
	return &Service{
		docs:     docs,
		keys:     ks,
		apps:     reg,
		client:   client,
		log:      log,
		provider: provider,
		front:    frontBaseURL,
		now:      time.Now,
	}
}

// Authorize issues a one-hour state key and returns the provider consent
// URL the browser should be sent to.
func (s *Service) Authorize(ctx context.Context, tenantID, userID, appName string) (string, error) {
	app, err := s.apps.Lookup(ctx, appName)
	if err != nil {
		return "", err
	}
	k, err := s.keys.Issue(ctx, keys.Key{
		Kind:           keys.KindZoomAuth,
		TenantID:       tenantID,
		IssuedToUserID: userID,
		TargetApp:      app.Name,
	}, 0)
	if err != nil {
		return "", err
	}
	return s.client.AuthorizeURL(app, k.ID), nil
}

// Callback finishes the consent flow. Whatever happens, the caller gets a
// front-end URL to redirect to; failures are encoded in the query string,
// never surfaced as HTTP errors to the end user's browser.
func (s *Service) Callback(ctx context.Context, state, code string) string {
	res := s.callback(ctx, state, code)
	return fmt.Sprintf("%s/?zoomAuthResult=%s", s.front, res)
}

func (s *Service) callback(ctx context.Context, state, code string) CallbackResult {
	if state == "" || code == "" {
		return ResultInvalidAccessToken
	}
	k, vres := s.keys.Verify(ctx, keys.KindZoomAuth, state)
	if !vres.IsSuccess() {
		if vres.Code == problems.Internal {
			return ResultInternalError
		}
		return ResultInvalidAccessToken
	}
	app, err := s.apps.Lookup(ctx, k.TargetApp)
	if err != nil {
		if errors.Is(err, apps.ErrNoApp) {
			s.log.Warnw("oauth callback with no registered app", "tenant", k.TenantID, "app", k.TargetApp)
			return ResultInvalidAccessToken
		}
		s.log.Errorw("app lookup failed", "err", err)
		return ResultInternalError
	}
	tok, err := s.client.Exchange(ctx, app, code)
	if err != nil {
		s.log.Errorw("oauth exchange failed", "err", err, "tenant", k.TenantID)
		return ResultInternalError
	}
	if err := s.SaveToken(ctx, k.TenantID, tok); err != nil {
		s.log.Errorw("token persist failed", "err", err, "tenant", k.TenantID)
		return ResultInternalError
	}
	if k.IssuedToUserID != "" {
		err := s.docs.Merge(ctx, store.UserPath(k.TenantID, k.IssuedToUserID), map[string]any{
			"zoomAuthorized": true,
		})
		if err != nil {
			s.log.Errorw("user mirror update failed", "err", err, "tenant", k.TenantID, "user", k.IssuedToUserID)
			return ResultInternalError
		}
	}
	s.log.Infow("oauth completed", "tenant", k.TenantID, "app", app.Name)
	return ResultSuccess
}

// SaveToken merges the token pair into the tenant token document. Merge
// keeps the stored refresh token when the provider omits one in a rotation.
func (s *Service) SaveToken(ctx context.Context, tenantID string, tok zoom.Token) error {
	patch := map[string]any{
		"accessToken": tok.AccessToken,
		"expiresAt":   tok.ExpiresAt.Format(time.RFC3339),
		"updatedAt":   s.now().UTC().Format(time.RFC3339),
	}
	if tok.RefreshToken != "" {
		patch["refreshToken"] = tok.RefreshToken
	}
	if tok.Scope != "" {
		patch["scope"] = tok.Scope
	}
	return s.docs.Merge(ctx, store.TenantTokenPath(tenantID, s.provider), patch)
}

// LoadToken reads the tenant token document, if any.
func (s *Service) LoadToken(ctx context.Context, tenantID string) (zoom.Token, error) {
	doc, err := s.docs.Get(ctx, store.TenantTokenPath(tenantID, s.provider))
	if err != nil {
		return zoom.Token{}, err
	}
	return tokenFromDoc(doc), nil
}

func tokenFromDoc(doc map[string]any) zoom.Token {
	var t zoom.Token
	t.AccessToken, _ = doc["accessToken"].(string)
	t.RefreshToken, _ = doc["refreshToken"].(string)
	t.Scope, _ = doc["scope"].(string)
	if s, ok := doc["expiresAt"].(string); ok {
		t.ExpiresAt, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
