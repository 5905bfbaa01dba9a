package adminaudit

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// AdminAudit is one privileged-bypass request. Platform level, never
// tenant filtered, never updated.
type AdminAudit struct {
	ID             string    `json:"id"`
	OperatorID     string    `json:"operator_id"`
	ActionType     string    `json:"action_type"`
	Method         string    `json:"method"`
	Endpoint       string    `json:"endpoint"`
	TargetTenantID *string   `json:"target_tenant_id,omitempty"`
	TargetEntityID *string   `json:"target_entity_id,omitempty"`
	RequestPayload string    `json:"request_payload,omitempty"`
	StatusCode     int       `json:"status_code"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	RequestID      string    `json:"request_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, a *AdminAudit) error
	List(ctx context.Context, filter *types.AdminAuditFilter) ([]*AdminAudit, error)
	Count(ctx context.Context, filter *types.AdminAuditFilter) (int, error)
}
