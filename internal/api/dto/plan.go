package dto

import (
	"time"

	domainPlan "github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/flexprice/tenantcore/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name              string          `json:"name" validate:"required,max=100"`
	DisplayName       string          `json:"display_name" validate:"required,max=255"`
	Tier              int             `json:"tier" validate:"required,min=1"`
	MonthlyPrice      decimal.Decimal `json:"monthly_price"`
	Currency          string          `json:"currency" validate:"omitempty,len=3"`
	MaxEmployees      int             `json:"max_employees" validate:"min=0"`
	MaxStorageBytes   int64           `json:"max_storage_bytes" validate:"min=0"`
	MaxAPICallsPerDay int64           `json:"max_api_calls_per_day" validate:"min=0"`
	Features          []string        `json:"features"`
	TrialDays         int             `json:"trial_days" validate:"min=0,max=365"`
	ExternalPriceID   *string         `json:"external_price_id,omitempty"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToPlan().Validate()
}

func (r *CreatePlanRequest) ToPlan() *domainPlan.Plan {
	now := time.Now().UTC()
	return &domainPlan.Plan{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:              r.Name,
		DisplayName:       r.DisplayName,
		Tier:              r.Tier,
		MonthlyPrice:      r.MonthlyPrice,
		Currency:          lo.CoalesceOrEmpty(r.Currency, "usd"),
		MaxEmployees:      r.MaxEmployees,
		MaxStorageBytes:   r.MaxStorageBytes,
		MaxAPICallsPerDay: r.MaxAPICallsPerDay,
		Features:          lo.Uniq(r.Features),
		TrialDays:         r.TrialDays,
		ExternalPriceID:   r.ExternalPriceID,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// UpdatePlanRequest changes only the fields that are set
type UpdatePlanRequest struct {
	DisplayName       *string          `json:"display_name,omitempty"`
	MonthlyPrice      *decimal.Decimal `json:"monthly_price,omitempty"`
	MaxEmployees      *int             `json:"max_employees,omitempty" validate:"omitempty,min=0"`
	MaxStorageBytes   *int64           `json:"max_storage_bytes,omitempty" validate:"omitempty,min=0"`
	MaxAPICallsPerDay *int64           `json:"max_api_calls_per_day,omitempty" validate:"omitempty,min=0"`
	Features          []string         `json:"features,omitempty"`
	TrialDays         *int             `json:"trial_days,omitempty" validate:"omitempty,min=0,max=365"`
	ExternalPriceID   *string          `json:"external_price_id,omitempty"`
	Active            *bool            `json:"active,omitempty"`
}

func (r *UpdatePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// Apply copies the set fields onto p
func (r *UpdatePlanRequest) Apply(p *domainPlan.Plan) {
	if r.DisplayName != nil {
		p.DisplayName = *r.DisplayName
	}
	if r.MonthlyPrice != nil {
		p.MonthlyPrice = *r.MonthlyPrice
	}
	if r.MaxEmployees != nil {
		p.MaxEmployees = *r.MaxEmployees
	}
	if r.MaxStorageBytes != nil {
		p.MaxStorageBytes = *r.MaxStorageBytes
	}
	if r.MaxAPICallsPerDay != nil {
		p.MaxAPICallsPerDay = *r.MaxAPICallsPerDay
	}
	if r.Features != nil {
		p.Features = lo.Uniq(r.Features)
	}
	if r.TrialDays != nil {
		p.TrialDays = *r.TrialDays
	}
	if r.ExternalPriceID != nil {
		p.ExternalPriceID = r.ExternalPriceID
	}
	if r.Active != nil {
		p.Active = *r.Active
	}
	p.UpdatedAt = time.Now().UTC()
}

type PlanResponse struct {
	*domainPlan.Plan
}

type ListPlansResponse = types.ListResponse[*PlanResponse]
