package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeSignup serializes signups sharing an idempotency token
	LockScopeSignup LockScope = "signup"
)

const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock taken inside a transaction
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

// GetTimeout returns the configured timeout or DefaultLockTimeout
func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a deterministic lock key from a scope and
// parameters, e.g. signup:idempotency_key=tok-1. Postgres hashes it with
// hashtext().
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameTenants          TableName = "tenants"
	TableNameSubscriptions    TableName = "subscriptions"
	TableNamePlans            TableName = "plans"
	TableNameLifecycleEvents  TableName = "lifecycle_events"
	TableNameWebhookEvents    TableName = "webhook_events"
	TableNameAdminAudits      TableName = "admin_audits"
	TableNameUsageMetrics     TableName = "usage_metrics"
	TableNameAlerts           TableName = "alerts"
	TableNameProvisioningRuns TableName = "provisioning_runs"
	TableNameRoles            TableName = "roles"
	TableNameModules          TableName = "modules"
	TableNameDepartments      TableName = "departments"
	TableNamePositions        TableName = "positions"
	TableNameRolePermissions  TableName = "role_permissions"
	TableNameUsers            TableName = "users"
)

// TenantOwnedTables lists every table purged by a hard delete, children first
var TenantOwnedTables = []TableName{
	TableNameRolePermissions,
	TableNameUsers,
	TableNamePositions,
	TableNameDepartments,
	TableNameModules,
	TableNameRoles,
	TableNameAlerts,
	TableNameUsageMetrics,
	TableNameProvisioningRuns,
	TableNameSubscriptions,
}
