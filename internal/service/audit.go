package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/getsentry/sentry-go"
	"github.com/samber/lo"
)

const (
	maskedValue     = "***MASKED***"
	truncatedSuffix = "...[truncated]"
	auditRetries    = 3
)

var (
	sensitiveKeyFragments = []string{"password", "passwd", "token", "secret", "api_key", "apikey", "authorization", "credential", "private_key"}
	jwtShaped             = regexp.MustCompile(`^[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}$`)
	bearerShaped          = regexp.MustCompile(`(?i)^bearer\s+\S+`)
)

// AuditService records privileged bypass requests
type AuditService interface {
	// Record writes the audit row, retrying transient failures. A row that
	// still cannot be written is reported to sentry and returned as error.
	Record(ctx context.Context, a *adminaudit.AdminAudit) error
	ListAudits(ctx context.Context, filter *types.AdminAuditFilter) (*dto.ListAdminAuditsResponse, error)
}

type auditService struct {
	ServiceParams
}

func NewAuditService(params ServiceParams) AuditService {
	return &auditService{ServiceParams: params}
}

func (s *auditService) Record(ctx context.Context, a *adminaudit.AdminAudit) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), auditRetries),
		// the request may already be done; the audit row must still land
		context.WithoutCancel(ctx),
	)
	err := backoff.Retry(func() error {
		return s.AdminAuditRepo.Create(context.WithoutCancel(ctx), a)
	}, policy)
	if err == nil {
		return nil
	}

	s.Logger.WithContext(ctx).Errorw("failed to write admin audit record",
		"operator_id", a.OperatorID,
		"endpoint", a.Endpoint,
		"status_code", a.StatusCode,
		"error", err,
	)
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
	return err
}

func (s *auditService) ListAudits(ctx context.Context, filter *types.AdminAuditFilter) (*dto.ListAdminAuditsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultAdminAuditFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.AdminAuditRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.AdminAuditRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(rows, func(a *adminaudit.AdminAudit, _ int) *dto.AdminAuditResponse {
		return &dto.AdminAuditResponse{AdminAudit: a}
	})
	return types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset()), nil
}

// SanitizePayload masks credential-like values of a JSON body and caps its
// size. Bodies that are not JSON are only truncated.
func SanitizePayload(body []byte, maxBytes int) string {
	if len(body) == 0 {
		return ""
	}

	out := string(body)
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		if masked, err := json.Marshal(maskValue("", decoded)); err == nil {
			out = string(masked)
		}
	}

	if maxBytes > 0 && len(out) > maxBytes {
		out = out[:maxBytes] + truncatedSuffix
	}
	return out
}

func maskValue(key string, v interface{}) interface{} {
	if isSensitiveKey(key) {
		return maskedValue
	}
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = maskValue(k, inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = maskValue(key, inner)
		}
		return val
	case string:
		if jwtShaped.MatchString(val) || bearerShaped.MatchString(val) {
			return maskedValue
		}
	}
	return v
}

func isSensitiveKey(key string) bool {
	if key == "" {
		return false
	}
	k := strings.ToLower(key)
	return lo.SomeBy(sensitiveKeyFragments, func(f string) bool {
		return strings.Contains(k, f)
	})
}
