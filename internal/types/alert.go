package types

type AlertState string

const (
	AlertStateOk      AlertState = "ok"
	AlertStateWarning AlertState = "warning"
	AlertStateInAlarm AlertState = "in_alarm"
)

// AlertType is the business meaning of an alert row
type AlertType string

const (
	AlertTypePaymentFailure     AlertType = "payment-failure"
	AlertTypeQuotaWarning       AlertType = "quota-warning"
	AlertTypeQuotaExceeded      AlertType = "quota-exceeded"
	AlertTypeQuotaRecovered     AlertType = "quota-recovered"
	AlertTypeProvisioningFailed AlertType = "provisioning-failed"
)

// AlertMetric names the measured quantity an alert tracks
type AlertMetric string

const (
	AlertMetricEmployees   AlertMetric = "employees"
	AlertMetricStorage     AlertMetric = "storage_bytes"
	AlertMetricAPICalls    AlertMetric = "api_calls_per_day"
	AlertMetricPayment     AlertMetric = "payment"
	AlertMetricProvisioned AlertMetric = "provisioning"
)

// entity types alerts are attached to
const (
	AlertEntityTenant       = "tenant"
	AlertEntityWebhookEvent = "webhook_event"
)

// AlertFilter represents the filter options for alerts
type AlertFilter struct {
	*QueryFilter
	TenantID     string        `json:"tenant_id,omitempty" form:"tenant_id"`
	AlertTypes   []AlertType   `json:"alert_types,omitempty" form:"alert_types"`
	EntityTypes  []string      `json:"entity_types,omitempty" form:"entity_types"`
	EntityIDs    []string      `json:"entity_ids,omitempty" form:"entity_ids"`
	AlertMetrics []AlertMetric `json:"alert_metrics,omitempty" form:"alert_metrics"`
	AlertStates  []AlertState  `json:"alert_states,omitempty" form:"alert_states"`
}

// NewAlertFilter creates a new alert filter with default values
func NewAlertFilter() *AlertFilter {
	return &AlertFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// Validate validates the alert filter
func (f *AlertFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	return f.QueryFilter.Validate()
}
