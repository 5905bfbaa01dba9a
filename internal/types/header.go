package types

const (
	HeaderTenantID       = "X-Tenant-ID"
	HeaderRequestID      = "X-Request-ID"
	HeaderAuthorization  = "Authorization"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderStripeSig      = "Stripe-Signature"
	HeaderWebhookSig     = "X-Webhook-Signature"
)
