package email

type SendEmailRequest struct {
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address" validate:"required,email"`
	Subject     string `json:"subject" validate:"required"`
	Text        string `json:"text" validate:"required"`
}

type SendEmailResponse struct {
	MessageID string `json:"message_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type SendEmailWithTemplateRequest struct {
	FromAddress  string                 `json:"from_address"`
	ToAddress    string                 `json:"to_address" validate:"required,email"`
	Subject      string                 `json:"subject" validate:"required"`
	TemplatePath string                 `json:"template_path" validate:"required"`
	Data         map[string]interface{} `json:"data"`
}

type SendEmailWithTemplateResponse = SendEmailResponse
