package isolation

// Traits are declared once per entity type and consulted by the gate on
// every write. Tenant immutability is not a trait: it holds for every type.
type Traits struct {
	// DeletionProtected entities can never be removed through the gate
	DeletionProtected bool
}

// Entity is anything stored in a tenant-scoped collection
type Entity interface {
	GetID() string
	GetTenantID() string
	SetTenantID(tenantID string)
	Traits() Traits
}
