package dto

import (
	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	"github.com/flexprice/tenantcore/internal/types"
)

type AdminAuditResponse struct {
	*adminaudit.AdminAudit
}

type ListAdminAuditsResponse = types.ListResponse[*AdminAuditResponse]
