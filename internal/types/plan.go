package types

// plan features checked by the feature gate
const (
	FeatureDataExport    = "data_export"
	FeatureReports       = "reports"
	FeatureAttendance    = "attendance"
	FeatureLeave         = "leave"
	FeatureCustomRoles   = "custom_roles"
	FeatureAuditHistory  = "audit_history"
	FeatureAPIAccess     = "api_access"
	FeatureDepartmentOrg = "department_org"
)

// PermissionLevel is the access a role has on a navigation module
type PermissionLevel string

const (
	PermissionNone  PermissionLevel = "none"
	PermissionRead  PermissionLevel = "read"
	PermissionWrite PermissionLevel = "write"
	PermissionAdmin PermissionLevel = "admin"
)

// baseline roles seeded for every tenant
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

type UserStatus string

const (
	UserStatusInvited  UserStatus = "invited"
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)
