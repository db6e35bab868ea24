// Package keys issues and verifies temporal keys: short-lived, store-backed
// tokens bridging the unauthenticated steps of the OAuth and invitation
// flows. Email invitations are single-use; shareable links replay until
// expiry.
package keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetsync/internal/mailer"
	"meetsync/internal/store"
	"meetsync/pkg/problems"
)

type Kind string

const (
	KindZoomAuth   Kind = "zoomAuth"
	KindInvitation Kind = "invitation"
	KindInviteLink Kind = "inviteLink"
)

// defaultWindows are the per-kind expiry windows applied when the caller
// supplies none. The invite-link default is six months.
var defaultWindows = map[Kind]time.Duration{
	KindZoomAuth:   1 * time.Hour,
	KindInvitation: 72 * time.Hour,
	KindInviteLink: 4320 * time.Hour,
}

// singleUse kinds are consumed atomically on first successful verification.
var singleUse = map[Kind]bool{
	KindZoomAuth:   true,
	KindInvitation: true,
}

// Key is a temporal key record. Created once, read until consumed or
// expired, never updated.
type Key struct {
	ID                string    `json:"id"`
	Kind              Kind      `json:"kind"`
	TenantID          string    `json:"tenantId"`
	IssuedToUserID    string    `json:"issuedToUserId"`
	TargetApp         string    `json:"targetApp,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AllowedDomain     string    `json:"allowedDomain,omitempty"`
	DefaultPermission string    `json:"defaultPermission,omitempty"`
	AccessLevel       int       `json:"accessLevel,omitempty"`
	InvitedEmail      string    `json:"invitedEmail,omitempty"`
}

type Service struct {
	docs      store.Store
	mail      mailer.Sender
	log       *zap.SugaredLogger
	now       func() time.Time
	maxWindow time.Duration
	inviteURL string
}

func NewService(docs store.Store, mail mailer.Sender, log *zap.SugaredLogger, maxWindowHours int, inviteBaseURL string) *Service {
	return &Service{
		docs:      docs,
		mail:      mail,
		log:       log,
		now:       time.Now,
		maxWindow: time.Duration(maxWindowHours) * time.Hour,
		inviteURL: inviteBaseURL,
	}
}

// WithClock overrides the time source; tests use it to cross expiry
// boundaries deterministically.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue stores a new key of k.Kind. windowHours <= 0 selects the per-kind
// default; anything above the server maximum is clamped, regardless of what
// the caller asked for.
func (s *Service) Issue(ctx context.Context, k Key, windowHours int) (Key, error) {
	if k.Kind == "" {
		return Key{}, errors.New("key kind required")
	}
	window := defaultWindows[k.Kind]
	if windowHours > 0 {
		window = time.Duration(windowHours) * time.Hour
	}
	if window > s.maxWindow {
		window = s.maxWindow
	}
	k.ID = uuid.NewString()
	k.CreatedAt = s.now().UTC()
	k.ExpiresAt = k.CreatedAt.Add(window)

	if err := s.docs.Set(ctx, store.TemporalKeyPath(string(k.Kind), k.ID), encode(k)); err != nil {
		return Key{}, err
	}
	s.log.Infow("temporal key issued", "kind", k.Kind, "tenant", k.TenantID, "expiresAt", k.ExpiresAt)

	if k.Kind == KindInvitation && k.InvitedEmail != "" {
		inv := mailer.Invite{
			ToEmail:    k.InvitedEmail,
			InviteURL:  fmt.Sprintf("%s?key=%s", s.inviteURL, k.ID),
			TenantName: k.TenantID,
		}
		if err := s.mail.SendInvite(ctx, inv); err != nil {
			// the key stays valid; the admin can re-send the link
			s.log.Warnw("invite mail send failed", "err", err, "email", k.InvitedEmail)
		}
	}
	return k, nil
}

// Verify checks a key and returns its payload on success. Single-use kinds
// are removed atomically by the same read, so a second verification of the
// same key reports no-access-token.
func (s *Service) Verify(ctx context.Context, kind Kind, id string) (Key, problems.Result) {
	if id == "" {
		return Key{}, problems.Err(problems.InvalidArgument, "key id required")
	}
	path := store.TemporalKeyPath(string(kind), id)

	var doc map[string]any
	var err error
	if singleUse[kind] {
		doc, err = s.docs.Consume(ctx, path)
	} else {
		doc, err = s.docs.Get(ctx, path)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Key{}, problems.Err(problems.NoAccessToken, "no such key")
		}
		return Key{}, problems.Err(problems.Internal, "key lookup failed")
	}
	k := decode(doc)
	if s.now().After(k.ExpiresAt) {
		return Key{}, problems.Err(problems.Expired, "key expired")
	}
	return k, problems.OK(encode(k))
}

func encode(k Key) map[string]any {
	raw, _ := json.Marshal(k)
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	return doc
}

func decode(doc map[string]any) Key {
	raw, _ := json.Marshal(doc)
	var k Key
	_ = json.Unmarshal(raw, &k)
	return k
}
