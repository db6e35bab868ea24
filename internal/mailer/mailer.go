// Package mailer sends invitation emails through the transactional email
// provider. Delivery is best-effort: issuers log failures and keep the key.
package mailer

import (
	"context"
)

// Invite is the substitution payload for the invitation template.
type Invite struct {
	ToEmail    string
	InviteURL  string
	TenantName string
}

type Sender interface {
	SendInvite(ctx context.Context, inv Invite) error
}

// Noop drops mail on the floor; used when no API key is configured.
type Noop struct{}

func (Noop) SendInvite(ctx context.Context, inv Invite) error { return nil }
