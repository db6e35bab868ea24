package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid sends the invitation dynamic template.
type SendGrid struct {
	apiKey     string
	templateID string
	fromEmail  string
	fromName   string
}

func NewSendGrid(apiKey, templateID, fromEmail, fromName string) *SendGrid {
	return &SendGrid{apiKey: apiKey, templateID: templateID, fromEmail: fromEmail, fromName: fromName}
}

func (s *SendGrid) SendInvite(ctx context.Context, inv Invite) error {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	m.SetTemplateID(s.templateID)

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", inv.ToEmail))
	p.SetDynamicTemplateData("inviteUrl", inv.InviteURL)
	p.SetDynamicTemplateData("tenantName", inv.TenantName)
	m.AddPersonalizations(p)

	req := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = "POST"
	req.Body = mail.GetRequestBody(m)
	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
