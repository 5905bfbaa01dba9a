package dto

import (
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	"github.com/flexprice/tenantcore/internal/types"
)

type LifecycleEventResponse struct {
	*lifecycle.Event
}

type ListLifecycleEventsResponse = types.ListResponse[*LifecycleEventResponse]

type UsageResponse struct {
	*usage.Metrics
	Limits UsageLimits `json:"limits"`
}

// UsageLimits mirrors the caps of the tenant's plan; zero is unlimited
type UsageLimits struct {
	MaxEmployees      int   `json:"max_employees"`
	MaxStorageBytes   int64 `json:"max_storage_bytes"`
	MaxAPICallsPerDay int64 `json:"max_api_calls_per_day"`
}

// ProvisioningBatchResult summarises one provisioning worker tick
type ProvisioningBatchResult struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// MonitorScanResult summarises one lifecycle monitor pass
type MonitorScanResult struct {
	QuotaChecked     int `json:"quota_checked"`
	GraceExpired     int `json:"grace_expired"`
	DeletionsStarted int `json:"deletions_started"`
	Deleted          int `json:"deleted"`
	Failed           int `json:"failed"`
}
