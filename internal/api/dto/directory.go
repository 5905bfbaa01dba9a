package dto

import (
	"time"

	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/flexprice/tenantcore/internal/validator"
)

// UserResponse omits the setup token hash
type UserResponse struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenant_id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Status    types.UserStatus `json:"user_status"`
	Roles     []string         `json:"roles"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewUserResponse(u *directory.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Email:     u.Email,
		Name:      u.Name,
		Status:    u.Status,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type ListUsersResponse = types.ListResponse[*UserResponse]

// UpdateUserRequest carries an optional tenant id only so a reassignment
// attempt reaches the gate and is rejected there
type UpdateUserRequest struct {
	Name     *string           `json:"name,omitempty" validate:"omitempty,max=255"`
	Status   *types.UserStatus `json:"user_status,omitempty" validate:"omitempty,oneof=invited active disabled"`
	Roles    []string          `json:"roles,omitempty"`
	TenantID *string           `json:"tenant_id,omitempty"`
}

func (r *UpdateUserRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ListRolesResponse = types.ListResponse[*directory.Role]

type ListDepartmentsResponse = types.ListResponse[*directory.Department]

type ListModulesResponse = types.ListResponse[*directory.Module]

type CreateDepartmentRequest struct {
	Code     string  `json:"code" validate:"required,max=64"`
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parent_id,omitempty"`
}

func (r *CreateDepartmentRequest) Validate() error {
	return validator.ValidateRequest(r)
}
