package email

import (
	"context"

	"github.com/flexprice/tenantcore/internal/config"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/resend/resend-go/v2"
)

// Client is the outbound mail transport
type Client interface {
	IsEnabled() bool
	GetFromAddress() string
	SendEmail(ctx context.Context, from, to, subject, html, text string) (string, error)
}

// EmailClient sends through Resend
type EmailClient struct {
	client  *resend.Client
	enabled bool
	from    string
	replyTo string
}

func NewEmailClient(cfg *config.Configuration) *EmailClient {
	c := &EmailClient{
		enabled: cfg.Email.Enabled && cfg.Email.APIKey != "",
		from:    cfg.Email.FromAddress,
		replyTo: cfg.Email.ReplyTo,
	}
	if c.enabled {
		c.client = resend.NewClient(cfg.Email.APIKey)
	}
	return c
}

func (c *EmailClient) IsEnabled() bool {
	return c.enabled
}

func (c *EmailClient) GetFromAddress() string {
	return c.from
}

func (c *EmailClient) SendEmail(ctx context.Context, from, to, subject, html, text string) (string, error) {
	if !c.enabled {
		return "", ierr.NewError("email client is disabled").Mark(ierr.ErrInvalidOperation)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}
	if c.replyTo != "" {
		req.ReplyTo = c.replyTo
	}

	sent, err := c.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			Mark(ierr.ErrSystem)
	}
	return sent.Id, nil
}
