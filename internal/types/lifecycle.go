package types

type LifecycleEventType string

const (
	LifecycleEventProvisioningStarted   LifecycleEventType = "provisioning_started"
	LifecycleEventProvisioningCompleted LifecycleEventType = "provisioning_completed"
	LifecycleEventProvisioningFailed    LifecycleEventType = "provisioning_failed"
	LifecycleEventProvisioningRetried   LifecycleEventType = "provisioning_retried"
	LifecycleEventActivated             LifecycleEventType = "activated"
	LifecycleEventSuspended             LifecycleEventType = "suspended"
	LifecycleEventResumed               LifecycleEventType = "resumed"
	LifecycleEventCancelled             LifecycleEventType = "cancelled"
	LifecycleEventDeletionScheduled     LifecycleEventType = "deletion_scheduled"
	LifecycleEventDeleted               LifecycleEventType = "deleted"
	LifecycleEventPlanChanged           LifecycleEventType = "plan_changed"
	LifecycleEventDataExported          LifecycleEventType = "data_exported"
)

// ActorType identifies what triggered a lifecycle change
type ActorType string

const (
	ActorTypeOperator ActorType = "operator"
	ActorTypeTenant   ActorType = "tenant"
	ActorTypeWebhook  ActorType = "webhook"
	ActorTypeMonitor  ActorType = "monitor"
	ActorTypeWorker   ActorType = "provisioning_worker"
	ActorTypeSystem   ActorType = "system"
)

type ProvisioningStep string

const (
	ProvisioningStepSubscription    ProvisioningStep = "subscription"
	ProvisioningStepRoles           ProvisioningStep = "roles"
	ProvisioningStepModules         ProvisioningStep = "modules"
	ProvisioningStepOrgStructure    ProvisioningStep = "org_structure"
	ProvisioningStepRolePermissions ProvisioningStep = "role_permissions"
	ProvisioningStepAdminUser       ProvisioningStep = "admin_user"
	ProvisioningStepAdminRole       ProvisioningStep = "admin_role"
	ProvisioningStepWelcome         ProvisioningStep = "welcome_notification"
)

// ProvisioningSteps is the fixed execution order
var ProvisioningSteps = []ProvisioningStep{
	ProvisioningStepSubscription,
	ProvisioningStepRoles,
	ProvisioningStepModules,
	ProvisioningStepOrgStructure,
	ProvisioningStepRolePermissions,
	ProvisioningStepAdminUser,
	ProvisioningStepAdminRole,
	ProvisioningStepWelcome,
}
