// Package zoom talks to the meeting provider's REST and OAuth surfaces.
// All calls go through the tenant access token; the client never caches
// credentials itself.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"meetsync/internal/apps"
)

// ErrUnauthorized reports a 401 from the provider, usually a revoked or
// stale access token.
var ErrUnauthorized = errors.New("provider rejected access token")

// Token is the provider credential set stored per tenant.
type Token struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Scope        string    `json:"scope,omitempty"`
}

// Meeting is the provider meeting shape after field normalization.
type Meeting struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	StartTime string `json:"startTime"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone"`
	JoinURL   string `json:"joinUrl"`
	HostEmail string `json:"hostEmail,omitempty"`
	Agenda    string `json:"agenda,omitempty"`
}

// CreateMeetingRequest carries the provider-facing meeting parameters.
type CreateMeetingRequest struct {
	Topic     string
	StartTime time.Time
	Duration  int
	Timezone  string
	Agenda    string
}

type Client struct {
	authURL  string
	tokenURL string
	apiBase  string
	http     *http.Client
}

func NewClient(authURL, tokenURL, apiBase string) *Client {
	return &Client{
		authURL:  authURL,
		tokenURL: tokenURL,
		apiBase:  apiBase,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) oauthConfig(app apps.App) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		RedirectURL:  app.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authURL,
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthorizeURL builds the provider consent URL carrying state.
func (c *Client) AuthorizeURL(app apps.App, state string) string {
	return c.oauthConfig(app).AuthCodeURL(state)
}

// Exchange trades an authorization code for the initial token pair.
func (c *Client) Exchange(ctx context.Context, app apps.App, code string) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauthConfig(app).Exchange(ctx, code)
	if err != nil {
		return Token{}, fmt.Errorf("oauth exchange: %w", err)
	}
	return fromOAuth2(tok), nil
}

// Refresh forces a refresh-grant round trip regardless of the stored
// token's remaining lifetime. The provider may rotate the refresh token;
// callers must persist whatever comes back.
func (c *Client) Refresh(ctx context.Context, app apps.App, refreshToken string) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := c.oauthConfig(app).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Token{}, fmt.Errorf("oauth refresh: %w", err)
	}
	t := fromOAuth2(tok)
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t, nil
}

func fromOAuth2(tok *oauth2.Token) Token {
	t := Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UTC(),
	}
	if s, ok := tok.Extra("scope").(string); ok {
		t.Scope = s
	}
	return t
}

// CreateMeeting schedules a meeting for the given host.
func (c *Client) CreateMeeting(ctx context.Context, accessToken, hostID string, req CreateMeetingRequest) (Meeting, error) {
	body := map[string]any{
		"topic":      req.Topic,
		"type":       2,
		"start_time": req.StartTime.Format("2006-01-02T15:04:05"),
		"duration":   req.Duration,
		"timezone":   req.Timezone,
		"agenda":     req.Agenda,
	}
	var raw map[string]any
	err := c.do(ctx, accessToken, http.MethodPost, fmt.Sprintf("/users/%s/meetings", hostID), body, &raw)
	if err != nil {
		return Meeting{}, err
	}
	return meetingFromRaw(raw), nil
}

// ListMeetings returns the host's scheduled meetings.
func (c *Client) ListMeetings(ctx context.Context, accessToken, hostID string) ([]Meeting, error) {
	var raw struct {
		Meetings []map[string]any `json:"meetings"`
	}
	err := c.do(ctx, accessToken, http.MethodGet, fmt.Sprintf("/users/%s/meetings?type=upcoming", hostID), nil, &raw)
	if err != nil {
		return nil, err
	}
	out := make([]Meeting, 0, len(raw.Meetings))
	for _, m := range raw.Meetings {
		out = append(out, meetingFromRaw(m))
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("provider %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func meetingFromRaw(raw map[string]any) Meeting {
	m := Meeting{}
	switch id := raw["id"].(type) {
	case string:
		m.ID = id
	case float64:
		m.ID = fmt.Sprintf("%.0f", id)
	}
	m.Topic, _ = raw["topic"].(string)
	m.StartTime, _ = raw["start_time"].(string)
	if d, ok := raw["duration"].(float64); ok {
		m.Duration = int(d)
	}
	m.Timezone, _ = raw["timezone"].(string)
	m.JoinURL, _ = raw["join_url"].(string)
	m.HostEmail, _ = raw["host_email"].(string)
	m.Agenda, _ = raw["agenda"].(string)
	return m
}
