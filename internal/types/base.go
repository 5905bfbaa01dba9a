package types

import (
	"context"
	"time"
)

// Status is the soft status of a record
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// BaseModel carries the audit columns shared by tenant-owned records
type BaseModel struct {
	TenantID  string    `json:"tenant_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// GetDefaultBaseModel stamps the current time and actor from the context.
// The tenant is left to the isolation gate.
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	actor := GetUserID(ctx)
	if actor == "" {
		actor = DefaultUserID
	}
	return BaseModel{
		Status:    StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
		UpdatedBy: actor,
	}
}

func (b *BaseModel) GetTenantID() string {
	return b.TenantID
}

func (b *BaseModel) SetTenantID(tenantID string) {
	b.TenantID = tenantID
}
