package directory

import (
	"time"

	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/types"
)

// Record is a directory entity persisted through the isolation gate. The
// natural key is unique per tenant and is what provisioning uses to detect
// already-seeded rows.
type Record interface {
	isolation.Entity
	NaturalKey() string
	Timestamps() (created, updated time.Time)
}

type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsSystem    bool   `json:"is_system"`
	types.BaseModel
}

func (r *Role) GetID() string { return r.ID }
func (r *Role) NaturalKey() string { return r.Name }
func (r *Role) Traits() isolation.Traits { return isolation.Traits{} }
func (r *Role) Timestamps() (time.Time, time.Time) { return r.CreatedAt, r.UpdatedAt }

// Module is an entry of the navigation structure
type Module struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	SortOrder int    `json:"sort_order"`
	types.BaseModel
}

func (m *Module) GetID() string { return m.ID }
func (m *Module) NaturalKey() string { return m.Code }
func (m *Module) Traits() isolation.Traits { return isolation.Traits{} }
func (m *Module) Timestamps() (time.Time, time.Time) { return m.CreatedAt, m.UpdatedAt }

type Department struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
	types.BaseModel
}

func (d *Department) GetID() string { return d.ID }
func (d *Department) NaturalKey() string { return d.Code }
func (d *Department) Traits() isolation.Traits { return isolation.Traits{} }
func (d *Department) Timestamps() (time.Time, time.Time) { return d.CreatedAt, d.UpdatedAt }

type Position struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Title          string `json:"title"`
	DepartmentCode string `json:"department_code,omitempty"`
	types.BaseModel
}

func (p *Position) GetID() string { return p.ID }
func (p *Position) NaturalKey() string { return p.Code }
func (p *Position) Traits() isolation.Traits { return isolation.Traits{} }
func (p *Position) Timestamps() (time.Time, time.Time) { return p.CreatedAt, p.UpdatedAt }

// RolePermission grants a role a permission level on one module
type RolePermission struct {
	ID         string                `json:"id"`
	RoleName   string                `json:"role_name"`
	ModuleCode string                `json:"module_code"`
	Level      types.PermissionLevel `json:"level"`
	types.BaseModel
}

func (p *RolePermission) GetID() string { return p.ID }
func (p *RolePermission) NaturalKey() string { return p.RoleName + ":" + p.ModuleCode }
func (p *RolePermission) Traits() isolation.Traits { return isolation.Traits{} }
func (p *RolePermission) Timestamps() (time.Time, time.Time) { return p.CreatedAt, p.UpdatedAt }

// User is a tenant account. Users are deletion protected; they are disabled
// instead.
type User struct {
	ID     string           `json:"id"`
	Email  string           `json:"email"`
	Name   string           `json:"name"`
	Status types.UserStatus `json:"user_status"`
	Roles  []string         `json:"roles"`
	// SetupTokenHash is the bcrypt hash of the one-time password setup token
	SetupTokenHash      string     `json:"setup_token_hash,omitempty"`
	SetupTokenExpiresAt *time.Time `json:"setup_token_expires_at,omitempty"`
	types.BaseModel
}

func (u *User) GetID() string { return u.ID }
func (u *User) NaturalKey() string { return u.Email }
func (u *User) Traits() isolation.Traits {
	return isolation.Traits{DeletionProtected: true}
}
func (u *User) Timestamps() (time.Time, time.Time) { return u.CreatedAt, u.UpdatedAt }
