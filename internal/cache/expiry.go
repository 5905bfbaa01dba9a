package cache

import "time"

const (
	ExpiryDefaultInMemory = 30 * time.Minute
	ExpiryDefaultRedis    = 5 * time.Minute

	// ExpiryPlan bounds how stale a plan catalogue entry may be
	ExpiryPlan = time.Hour
)

// key prefixes
const (
	PrefixPlan       = "plan:"
	PrefixPlanByName = "plan:name:"
)
