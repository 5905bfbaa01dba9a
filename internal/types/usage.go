package types

import "time"

// UsageCounter names an incrementally maintained usage column
type UsageCounter string

const (
	UsageCounterEmployees   UsageCounter = "employee_count"
	UsageCounterUsers       UsageCounter = "user_count"
	UsageCounterDepartments UsageCounter = "department_count"
	UsageCounterStorage     UsageCounter = "storage_bytes"
)

var UsageCounters = []UsageCounter{
	UsageCounterEmployees,
	UsageCounterUsers,
	UsageCounterDepartments,
	UsageCounterStorage,
}

// UsagePeriod is the monthly bucket usage rows are kept in, e.g. 2026-10
func UsagePeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UsageDay is the daily bucket used for API request counting, e.g. 2026-10-16
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
