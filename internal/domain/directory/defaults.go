package directory

import "github.com/flexprice/tenantcore/internal/types"

// Baseline directory content seeded for every new tenant

type RoleSeed struct {
	Name        string
	Description string
}

var DefaultRoles = []RoleSeed{
	{types.RoleAdmin, "Full access to the organization"},
	{types.RoleManager, "Manages a department and its people"},
	{types.RoleEmployee, "Self service access"},
}

type ModuleSeed struct {
	Code string
	Name string
	Path string
}

var DefaultModules = []ModuleSeed{
	{"dashboard", "Dashboard", "/dashboard"},
	{"employees", "Employees", "/employees"},
	{"leave", "Leave", "/leave"},
	{"attendance", "Attendance", "/attendance"},
	{"departments", "Departments", "/departments"},
	{"reports", "Reports", "/reports"},
	{"settings", "Settings", "/settings"},
}

type DepartmentSeed struct {
	Code string
	Name string
}

var DefaultDepartments = []DepartmentSeed{
	{"general", "General"},
	{"hr", "Human Resources"},
}

type PositionSeed struct {
	Code           string
	Title          string
	DepartmentCode string
}

var DefaultPositions = []PositionSeed{
	{"administrator", "Administrator", "general"},
	{"hr_manager", "HR Manager", "hr"},
	{"staff", "Staff", "general"},
}

// DefaultPermissionLevel returns the seeded permission of role on module
func DefaultPermissionLevel(role, module string) types.PermissionLevel {
	switch role {
	case types.RoleAdmin:
		return types.PermissionAdmin
	case types.RoleManager:
		if module == "settings" {
			return types.PermissionRead
		}
		return types.PermissionWrite
	default:
		switch module {
		case "dashboard", "leave", "attendance":
			return types.PermissionWrite
		case "settings", "reports":
			return types.PermissionNone
		}
		return types.PermissionRead
	}
}
