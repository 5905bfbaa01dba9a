package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/tenantcore/internal/email"
)

// SentEmail is one message captured by RecordingEmailClient
type SentEmail struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// RecordingEmailClient is an enabled email.Client that never leaves the process
type RecordingEmailClient struct {
	mu   sync.Mutex
	sent []SentEmail
	// Err, when set, fails every send
	Err error
}

var _ email.Client = (*RecordingEmailClient)(nil)

func NewRecordingEmailClient() *RecordingEmailClient {
	return &RecordingEmailClient{}
}

func (c *RecordingEmailClient) IsEnabled() bool { return true }

func (c *RecordingEmailClient) GetFromAddress() string { return "noreply@tenantcore.test" }

func (c *RecordingEmailClient) SendEmail(_ context.Context, from, to, subject, html, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	c.sent = append(c.sent, SentEmail{From: from, To: to, Subject: subject, HTML: html, Text: text})
	return "msg_test", nil
}

func (c *RecordingEmailClient) Sent() []SentEmail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentEmail(nil), c.sent...)
}
