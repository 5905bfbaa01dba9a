package email

import (
	"bytes"
	"context"
	"html/template"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
)

// template names
const (
	TemplateWelcome            = "tenant-welcome.html"
	TemplateSuspended          = "tenant-suspended.html"
	TemplateCancelled          = "tenant-cancelled.html"
	TemplateProvisioningFailed = "tenant-provisioning-failed.html"
	TemplateQuotaExceeded      = "tenant-quota-exceeded.html"
)

const emailStyle = `font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;`

// emailTemplates stores email templates as string constants
var emailTemplates = map[string]string{
	TemplateWelcome: `<!DOCTYPE html>
<html>
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /><title>Welcome</title></head>
<body style="` + emailStyle + `">
    <p>Hi {{.admin_name}},</p>
    <p>Your organization <strong>{{.tenant_name}}</strong> is ready on the {{.plan_name}} plan.</p>
    {{if .setup_url}}<p>Set your password to sign in: <a href="{{.setup_url}}">{{.setup_url}}</a><br/>
    The link expires on {{.setup_expires_at}}.</p>{{end}}
</body>
</html>`,
	TemplateSuspended: `<!DOCTYPE html>
<html>
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /><title>Account suspended</title></head>
<body style="` + emailStyle + `">
    <p>Hi {{.admin_name}},</p>
    <p>Access to <strong>{{.tenant_name}}</strong> has been suspended: {{.reason}}.</p>
    <p>Your data is kept until {{.grace_period_ends_at}}. Settle the outstanding payment before then to restore access.</p>
</body>
</html>`,
	TemplateCancelled: `<!DOCTYPE html>
<html>
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /><title>Subscription cancelled</title></head>
<body style="` + emailStyle + `">
    <p>Hi {{.admin_name}},</p>
    <p>The subscription of <strong>{{.tenant_name}}</strong> has been cancelled.</p>
    {{if .scheduled_deletion_at}}<p>All data will be permanently deleted on {{.scheduled_deletion_at}}. Request an export before then if you need a copy.</p>{{end}}
</body>
</html>`,
	TemplateProvisioningFailed: `<!DOCTYPE html>
<html>
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /><title>Setup delayed</title></head>
<body style="` + emailStyle + `">
    <p>Hi {{.admin_name}},</p>
    <p>Setting up <strong>{{.tenant_name}}</strong> is taking longer than expected. Our team has been notified and will retry shortly.</p>
</body>
</html>`,
	TemplateQuotaExceeded: `<!DOCTYPE html>
<html>
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /><title>Plan limit reached</title></head>
<body style="` + emailStyle + `">
    <p>Hi {{.admin_name}},</p>
    <p><strong>{{.tenant_name}}</strong> has reached the {{.metric}} limit of the {{.plan_name}} plan ({{.usage}} of {{.limit}}).</p>
    {{if .suggested_plan}}<p>Upgrading to {{.suggested_plan}} raises the limit.</p>{{end}}
</body>
</html>`,
}

// Email renders templates and hands them to the transport. A disabled
// client is not an error; the send is skipped and logged.
type Email struct {
	client Client
	logger *logger.Logger
}

func NewEmail(client Client, log *logger.Logger) *Email {
	return &Email{
		client: client,
		logger: log,
	}
}

// SendEmail sends a plain text email
func (s *Email) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	if !s.client.IsEnabled() {
		s.logger.Warnw("email client is disabled, skipping email send",
			"to", req.ToAddress,
			"subject", req.Subject,
		)
		return &SendEmailResponse{
			Success: false,
			Error:   "email client is disabled",
		}, nil
	}

	// configured sender wins over the request
	fromAddress := s.client.GetFromAddress()
	if fromAddress == "" {
		fromAddress = req.FromAddress
	}

	messageID, err := s.client.SendEmail(ctx, fromAddress, req.ToAddress, req.Subject, "", req.Text)
	if err != nil {
		s.logger.Errorw("failed to send email",
			"error", err,
			"to", req.ToAddress,
			"subject", req.Subject,
		)
		return &SendEmailResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Infow("email sent successfully",
		"message_id", messageID,
		"to", req.ToAddress,
		"subject", req.Subject,
	)

	return &SendEmailResponse{
		MessageID: messageID,
		Success:   true,
	}, nil
}

// SendEmailWithTemplate sends an email using an HTML template
func (s *Email) SendEmailWithTemplate(ctx context.Context, req SendEmailWithTemplateRequest) (*SendEmailWithTemplateResponse, error) {
	if !s.client.IsEnabled() {
		s.logger.Warnw("email client is disabled, skipping email send",
			"to", req.ToAddress,
			"subject", req.Subject,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   "email client is disabled",
		}, nil
	}

	// configured sender wins over the request
	fromAddress := s.client.GetFromAddress()
	if fromAddress == "" {
		fromAddress = req.FromAddress
	}

	s.logger.Debugw("preparing to send templated email",
		"from", fromAddress,
		"to", req.ToAddress,
		"subject", req.Subject,
		"template", req.TemplatePath,
	)

	htmlContent, err := s.readTemplate(req.TemplatePath)
	if err != nil {
		s.logger.Errorw("failed to read email template",
			"error", err,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Debugw("template read successfully",
		"template", req.TemplatePath,
		"content_length", len(htmlContent),
	)

	htmlContent, err = s.renderTemplate(htmlContent, req.Data)
	if err != nil {
		s.logger.Errorw("failed to render email template",
			"error", err,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	messageID, err := s.client.SendEmail(ctx, fromAddress, req.ToAddress, req.Subject, htmlContent, "")
	if err != nil {
		s.logger.Errorw("failed to send templated email",
			"error", err,
			"from", fromAddress,
			"to", req.ToAddress,
			"subject", req.Subject,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Infow("templated email sent successfully",
		"message_id", messageID,
		"from", fromAddress,
		"to", req.ToAddress,
		"subject", req.Subject,
		"template", req.TemplatePath,
	)

	return &SendEmailWithTemplateResponse{
		MessageID: messageID,
		Success:   true,
	}, nil
}

func (s *Email) readTemplate(templatePath string) (string, error) {
	templateContent, exists := emailTemplates[templatePath]
	if !exists {
		return "", ierr.NewError("template not found").
			WithReportableDetails(map[string]any{"template": templatePath}).
			Mark(ierr.ErrNotFound)
	}

	return templateContent, nil
}

// renderTemplate renders with html/template so tenant supplied names are escaped
func (s *Email) renderTemplate(templateContent string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateContent)
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	return buf.String(), nil
}
