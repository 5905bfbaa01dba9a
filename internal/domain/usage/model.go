package usage

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// Metrics is the usage row of one tenant for one monthly period
type Metrics struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	Period           string           `json:"period"`
	EmployeeCount    int64            `json:"employee_count"`
	UserCount        int64            `json:"user_count"`
	DepartmentCount  int64            `json:"department_count"`
	StorageBytes     int64            `json:"storage_bytes"`
	APIRequestsTotal int64            `json:"api_requests_total"`
	APIRequestsToday int64            `json:"api_requests_today"`
	APIRequestsDay   string           `json:"api_requests_day"`
	FeatureUsage     map[string]int64 `json:"feature_usage,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Get returns the value of a named counter
func (m *Metrics) Get(counter types.UsageCounter) int64 {
	switch counter {
	case types.UsageCounterEmployees:
		return m.EmployeeCount
	case types.UsageCounterUsers:
		return m.UserCount
	case types.UsageCounterDepartments:
		return m.DepartmentCount
	case types.UsageCounterStorage:
		return m.StorageBytes
	}
	return 0
}

// Repository mutates counters only through atomic increments; there is no
// read-modify-write path.
type Repository interface {
	Get(ctx context.Context, tenantID, period string) (*Metrics, error)
	// Increment adds delta to counter, creating the period row if needed
	Increment(ctx context.Context, tenantID, period string, counter types.UsageCounter, delta int64) error
	// RecordAPIRequests sets today's count, resetting when the day rolls over,
	// and adds delta to the cumulative total
	RecordAPIRequests(ctx context.Context, tenantID, period, day string, today, delta int64) error
	IncrementFeature(ctx context.Context, tenantID, period, feature string, delta int64) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}
