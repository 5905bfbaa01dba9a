package alert

import (
	"context"

	"github.com/flexprice/tenantcore/internal/types"
)

// Repository defines the interface for alert persistence operations
type Repository interface {
	// Create creates a new alert
	Create(ctx context.Context, alert *Alert) error

	// GetLatestByEntity retrieves the latest alert for a given entity and metric
	GetLatestByEntity(ctx context.Context, tenantID, entityType, entityID string, alertMetric types.AlertMetric) (*Alert, error)

	// ExistsForEntity reports whether an alert of the type already exists for
	// the entity, used to keep webhook redelivery from duplicating alerts
	ExistsForEntity(ctx context.Context, tenantID string, alertType types.AlertType, entityType, entityID string) (bool, error)

	List(ctx context.Context, filter *types.AlertFilter) ([]*Alert, error)

	// Count returns the number of alerts matching the filter, ignoring pagination
	Count(ctx context.Context, filter *types.AlertFilter) (int, error)

	DeleteByTenant(ctx context.Context, tenantID string) error
}
