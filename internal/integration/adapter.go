package integration

import (
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/types"
)

// WebhookAdapter turns one provider's webhook deliveries into ProviderEvents.
// Verification and parsing are separate so a delivery with a bad signature
// can still be recorded.
type WebhookAdapter interface {
	Provider() types.BillingProvider
	// SignatureHeader names the request header carrying the signature
	SignatureHeader() string
	Verify(payload []byte, signature string) error
	Parse(payload []byte) (*webhookevent.ProviderEvent, error)
}

// Registry looks adapters up by provider name
type Registry struct {
	adapters map[types.BillingProvider]WebhookAdapter
}

func NewRegistry(adapters ...WebhookAdapter) *Registry {
	r := &Registry{adapters: make(map[types.BillingProvider]WebhookAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

func (r *Registry) Get(provider types.BillingProvider) (WebhookAdapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, ierr.NewError("unknown billing provider").
			WithHintf("Billing provider %q is not supported", provider).
			Mark(ierr.ErrNotFound)
	}
	return a, nil
}

// WebhookSecret returns the configured signing secret of provider
func WebhookSecret(cfg *config.Configuration, provider types.BillingProvider, log *logger.Logger) string {
	secret := cfg.Billing.WebhookSecrets[string(provider)]
	if secret == "" {
		log.Warnw("webhook secret not configured, every delivery will fail verification", "provider", provider)
	}
	return secret
}
