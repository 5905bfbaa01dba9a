package email

import (
	"context"
	"errors"
	"testing"

	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) IsEnabled() bool { return m.Called().Bool(0) }

func (m *mockClient) GetFromAddress() string { return m.Called().String(0) }

func (m *mockClient) SendEmail(ctx context.Context, from, to, subject, html, text string) (string, error) {
	args := m.Called(ctx, from, to, subject, html, text)
	return args.String(0), args.Error(1)
}

func TestSendEmailWithTemplateEscapesData(t *testing.T) {
	client := new(mockClient)
	client.On("IsEnabled").Return(true)
	client.On("GetFromAddress").Return("noreply@tenantcore.test")
	client.On("SendEmail", mock.Anything, "noreply@tenantcore.test", "admin@acme.test", "Welcome",
		mock.MatchedBy(func(html string) bool {
			return assert.Contains(t, html, "&lt;b&gt;Acme&lt;/b&gt;") &&
				assert.Contains(t, html, "https://app.test/setup?token=abc")
		}), "").
		Return("msg-1", nil)

	svc := NewEmail(client, logger.NewNopLogger())
	resp, err := svc.SendEmailWithTemplate(context.Background(), SendEmailWithTemplateRequest{
		ToAddress:    "admin@acme.test",
		Subject:      "Welcome",
		TemplatePath: TemplateWelcome,
		Data: map[string]interface{}{
			"tenant_name": "<b>Acme</b>",
			"setup_url":   "https://app.test/setup?token=abc",
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "msg-1", resp.MessageID)
	client.AssertExpectations(t)
}

func TestSendEmailDisabledIsSkipped(t *testing.T) {
	client := new(mockClient)
	client.On("IsEnabled").Return(false)

	svc := NewEmail(client, logger.NewNopLogger())
	resp, err := svc.SendEmail(context.Background(), SendEmailRequest{ToAddress: "a@b.test", Subject: "s", Text: "t"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailTransportError(t *testing.T) {
	client := new(mockClient)
	client.On("IsEnabled").Return(true)
	client.On("GetFromAddress").Return("noreply@tenantcore.test")
	client.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("boom"))

	svc := NewEmail(client, logger.NewNopLogger())
	_, err := svc.SendEmailWithTemplate(context.Background(), SendEmailWithTemplateRequest{
		ToAddress:    "a@b.test",
		Subject:      "s",
		TemplatePath: TemplateSuspended,
	})
	assert.Error(t, err)
}

func TestUnknownTemplate(t *testing.T) {
	client := new(mockClient)
	client.On("IsEnabled").Return(true)
	client.On("GetFromAddress").Return("")

	svc := NewEmail(client, logger.NewNopLogger())
	_, err := svc.SendEmailWithTemplate(context.Background(), SendEmailWithTemplateRequest{
		ToAddress:    "a@b.test",
		Subject:      "s",
		TemplatePath: "missing.html",
	})
	assert.Error(t, err)
}
