// Package meetings proxies meeting scheduling to the provider API and
// mirrors what it creates into the document store.
package meetings

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"meetsync/internal/store"
	"meetsync/internal/zoom"
	"meetsync/pkg/middleware"
	"meetsync/pkg/problems"
)

// TokenSource yields the tenant's current provider token.
type TokenSource interface {
	LoadToken(ctx context.Context, tenantID string) (zoom.Token, error)
}

// Provider is the slice of the provider client this package calls.
type Provider interface {
	CreateMeeting(ctx context.Context, accessToken, hostID string, req zoom.CreateMeetingRequest) (zoom.Meeting, error)
	ListMeetings(ctx context.Context, accessToken, hostID string) ([]zoom.Meeting, error)
}

// CreateRequest is the caller-facing meeting shape.
type CreateRequest struct {
	Topic     string    `json:"topic"`
	StartTime time.Time `json:"startTime"`
	Duration  int       `json:"duration"`
	Agenda    string    `json:"agenda,omitempty"`
}

type Service struct {
	docs     store.Store
	tokens   TokenSource
	provider Provider
	log      *zap.SugaredLogger
	loc      *time.Location
	tzName   string
}

func NewService(docs store.Store, tokens TokenSource, provider Provider, log *zap.SugaredLogger, timezone string) *Service {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warnw("bad meeting timezone, falling back to UTC", "tz", timezone, "err", err)
		loc, timezone = time.UTC, "UTC"
	}
	return &Service{docs: docs, tokens: tokens, provider: provider, log: log, loc: loc, tzName: timezone}
}

// Create schedules a meeting hosted by the caller. Without a tenant token
// no provider call is made at all.
func (s *Service) Create(ctx context.Context, caller middleware.Identity, req CreateRequest) problems.Result {
	if req.Topic == "" || req.StartTime.IsZero() || req.Duration <= 0 {
		return problems.Err(problems.InvalidArgument, "topic, startTime and duration are required")
	}
	tok, res := s.token(ctx, caller.TenantID)
	if !res.IsSuccess() {
		return res
	}
	m, err := s.provider.CreateMeeting(ctx, tok.AccessToken, caller.Email, zoom.CreateMeetingRequest{
		Topic:     req.Topic,
		StartTime: req.StartTime.In(s.loc),
		Duration:  req.Duration,
		Timezone:  s.tzName,
		Agenda:    req.Agenda,
	})
	if err != nil {
		return s.providerErr("create meeting", caller, err)
	}
	doc := mirrorDoc(m)
	doc["createdBy"] = caller.Subject
	if err := s.docs.Merge(ctx, store.ReservedMeetingPath(caller.TenantID, caller.Subject, m.ID), doc); err != nil {
		s.log.Errorw("meeting mirror merge", "err", err, "meeting", m.ID)
		return problems.Err(problems.Internal, "meeting record failed")
	}
	return problems.OK(meetingDoc(m))
}

// List returns the caller's upcoming meetings from the provider.
func (s *Service) List(ctx context.Context, caller middleware.Identity) problems.Result {
	tok, res := s.token(ctx, caller.TenantID)
	if !res.IsSuccess() {
		return res
	}
	ms, err := s.provider.ListMeetings(ctx, tok.AccessToken, caller.Email)
	if err != nil {
		return s.providerErr("list meetings", caller, err)
	}
	out := make([]any, 0, len(ms))
	for _, m := range ms {
		out = append(out, meetingDoc(m))
		if m.ID == "" {
			continue
		}
		// keep the reserved-meetings mirror in step with the provider
		if err := s.docs.Merge(ctx, store.ReservedMeetingPath(caller.TenantID, caller.Subject, m.ID), mirrorDoc(m)); err != nil {
			s.log.Warnw("meeting mirror refresh failed", "err", err, "meeting", m.ID)
		}
	}
	return problems.OK(map[string]any{"meetings": out})
}

func (s *Service) token(ctx context.Context, tenantID string) (zoom.Token, problems.Result) {
	tok, err := s.tokens.LoadToken(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zoom.Token{}, problems.Err(problems.NoAccessToken, "tenant has no provider token")
		}
		return zoom.Token{}, problems.Err(problems.Internal, "token lookup failed")
	}
	if tok.AccessToken == "" {
		return zoom.Token{}, problems.Err(problems.NoAccessToken, "tenant has no provider token")
	}
	return tok, problems.OK(nil)
}

func (s *Service) providerErr(op string, caller middleware.Identity, err error) problems.Result {
	if errors.Is(err, zoom.ErrUnauthorized) {
		s.log.Warnw(op+": provider rejected token", "tenant", caller.TenantID)
		return problems.Err(problems.Expired, "provider token expired")
	}
	s.log.Errorw(op, "err", err, "tenant", caller.TenantID)
	return problems.Err(problems.Internal, op+" failed")
}

func meetingDoc(m zoom.Meeting) map[string]any {
	doc := map[string]any{
		"id":        m.ID,
		"topic":     m.Topic,
		"startTime": m.StartTime,
		"duration":  m.Duration,
		"timezone":  m.Timezone,
		"joinUrl":   m.JoinURL,
	}
	if m.HostEmail != "" {
		doc["hostEmail"] = m.HostEmail
	}
	if m.Agenda != "" {
		doc["agenda"] = m.Agenda
	}
	return doc
}

func mirrorDoc(m zoom.Meeting) map[string]any {
	doc := meetingDoc(m)
	doc["type"] = "video"
	doc["app"] = "zoom"
	return doc
}
