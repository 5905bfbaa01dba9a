package types

import "github.com/samber/lo"

// AdminAuditFilter selects privileged-bypass audit rows. Follows the shape of
// the other list filters: pagination, a time range and column filters.
type AdminAuditFilter struct {
	*QueryFilter
	*TimeRangeFilter

	OperatorID     string `json:"operator_id,omitempty" form:"operator_id"`
	ActionType     string `json:"action_type,omitempty" form:"action_type"`
	TargetTenantID string `json:"target_tenant_id,omitempty" form:"target_tenant_id"`
	Success        *bool  `json:"success,omitempty" form:"success"`
}

func NewDefaultAdminAuditFilter() *AdminAuditFilter {
	q := NewDefaultQueryFilter()
	q.Sort = lo.ToPtr("created_at")
	q.Order = lo.ToPtr("desc")
	return &AdminAuditFilter{QueryFilter: q}
}

func (f *AdminAuditFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *AdminAuditFilter) GetLimit() int {
	if f == nil || f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *AdminAuditFilter) GetOffset() int {
	if f == nil || f.QueryFilter == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}
