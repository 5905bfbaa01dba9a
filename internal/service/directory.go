package service

import (
	"context"
	"strings"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// DirectoryService exposes the tenant directory through the isolation gates.
// Every method takes the caller's scope; an elevated scope spans tenants.
type DirectoryService interface {
	ListUsers(ctx context.Context, scope isolation.Scope, filter *types.QueryFilter) (*dto.ListUsersResponse, error)
	GetUser(ctx context.Context, scope isolation.Scope, id string) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, scope isolation.Scope, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, scope isolation.Scope, id string) error
	ListRoles(ctx context.Context, scope isolation.Scope) (*dto.ListRolesResponse, error)
	ListModules(ctx context.Context, scope isolation.Scope) (*dto.ListModulesResponse, error)
	ListDepartments(ctx context.Context, scope isolation.Scope) (*dto.ListDepartmentsResponse, error)
	CreateDepartment(ctx context.Context, scope isolation.Scope, req dto.CreateDepartmentRequest) (*directory.Department, error)
}

type directoryService struct {
	ServiceParams
	usage UsageService
}

func NewDirectoryService(params ServiceParams) DirectoryService {
	return &directoryService{
		ServiceParams: params,
		usage:         NewUsageService(params),
	}
}

func (s *directoryService) ListUsers(ctx context.Context, scope isolation.Scope, filter *types.QueryFilter) (*dto.ListUsersResponse, error) {
	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	users, count, err := s.Directory.Users.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	items := lo.Map(users, func(u *directory.User, _ int) *dto.UserResponse {
		return dto.NewUserResponse(u)
	})
	return types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset()), nil
}

func (s *directoryService) GetUser(ctx context.Context, scope isolation.Scope, id string) (*dto.UserResponse, error) {
	u, err := s.Directory.Users.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(u), nil
}

func (s *directoryService) UpdateUser(ctx context.Context, scope isolation.Scope, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.Directory.Users.UpdateFunc(ctx, scope, id, func(current *directory.User) (*directory.User, error) {
		// work on a copy so a rejected update leaves the stored row untouched
		next := *current
		next.Roles = append([]string(nil), current.Roles...)
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
		}
		if req.Status != nil {
			next.Status = *req.Status
		}
		if req.Roles != nil {
			next.Roles = lo.Uniq(req.Roles)
		}
		if req.TenantID != nil {
			next.TenantID = *req.TenantID
		}
		next.UpdatedAt = time.Now().UTC()
		next.UpdatedBy = lo.CoalesceOrEmpty(scope.ActorID, types.DefaultUserID)
		return &next, nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("user updated",
		"user_id", id,
		"tenant_id", updated.TenantID,
		"elevated", scope.Elevated(),
	)
	return dto.NewUserResponse(updated), nil
}

func (s *directoryService) DeleteUser(ctx context.Context, scope isolation.Scope, id string) error {
	return s.Directory.Users.Delete(ctx, scope, id)
}

func (s *directoryService) ListRoles(ctx context.Context, scope isolation.Scope) (*dto.ListRolesResponse, error) {
	roles, count, err := s.Directory.Roles.List(ctx, scope, types.NewNoLimitQueryFilter())
	if err != nil {
		return nil, err
	}
	return types.NewListResponse(roles, count, count, 0), nil
}

func (s *directoryService) ListModules(ctx context.Context, scope isolation.Scope) (*dto.ListModulesResponse, error) {
	modules, count, err := s.Directory.Modules.List(ctx, scope, types.NewNoLimitQueryFilter())
	if err != nil {
		return nil, err
	}
	return types.NewListResponse(modules, count, count, 0), nil
}

func (s *directoryService) ListDepartments(ctx context.Context, scope isolation.Scope) (*dto.ListDepartmentsResponse, error) {
	departments, count, err := s.Directory.Departments.List(ctx, scope, types.NewNoLimitQueryFilter())
	if err != nil {
		return nil, err
	}
	return types.NewListResponse(departments, count, count, 0), nil
}

// CreateDepartment adds a department to the scope's tenant and bumps the
// department counter in the same transaction
func (s *directoryService) CreateDepartment(ctx context.Context, scope isolation.Scope, req dto.CreateDepartmentRequest) (*directory.Department, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := scope.RequireTenant(); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if _, err := s.Directory.Departments.Get(ctx, scope, *req.ParentID); err != nil {
			if ierr.IsNotFound(err) {
				return nil, ierr.WithError(err).
					WithHint("Parent department not found").
					Mark(ierr.ErrValidation)
			}
			return nil, err
		}
	}

	d := &directory.Department{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DEPARTMENT),
		Code:      strings.ToLower(strings.TrimSpace(req.Code)),
		Name:      req.Name,
		ParentID:  req.ParentID,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.Directory.Departments.Create(ctx, scope, d); err != nil {
			return err
		}
		return s.usage.Increment(ctx, scope.StorageTenant(), types.UsageCounterDepartments, 1)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
