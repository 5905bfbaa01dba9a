package plan

import (
	"time"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Plan is an entry of the subscription plan catalogue. A zero cap means
// unlimited.
type Plan struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	DisplayName       string          `json:"display_name"`
	Tier              int             `json:"tier"`
	MonthlyPrice      decimal.Decimal `json:"monthly_price"`
	Currency          string          `json:"currency"`
	MaxEmployees      int             `json:"max_employees"`
	MaxStorageBytes   int64           `json:"max_storage_bytes"`
	MaxAPICallsPerDay int64           `json:"max_api_calls_per_day"`
	Features          []string        `json:"features"`
	TrialDays         int             `json:"trial_days"`
	ExternalPriceID   *string         `json:"external_price_id,omitempty"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p *Plan) HasFeature(feature string) bool {
	return lo.Contains(p.Features, feature)
}

func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}
	if p.Tier <= 0 {
		return ierr.NewError("plan tier must be positive").
			WithHint("Tier must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if p.MonthlyPrice.IsNegative() {
		return ierr.NewError("plan price cannot be negative").
			WithHint("Monthly price cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if p.MaxEmployees < 0 || p.MaxStorageBytes < 0 || p.MaxAPICallsPerDay < 0 {
		return ierr.NewError("plan caps cannot be negative").
			WithHint("Use zero for an unlimited cap").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LowestTier returns the active plan with the smallest tier
func LowestTier(plans []*Plan) (*Plan, bool) {
	active := lo.Filter(plans, func(p *Plan, _ int) bool { return p.Active })
	if len(active) == 0 {
		return nil, false
	}
	return lo.MinBy(active, func(a, b *Plan) bool { return a.Tier < b.Tier }), true
}

// CheapestWithFeature returns the lowest tier active plan that includes feature
func CheapestWithFeature(plans []*Plan, feature string) (*Plan, bool) {
	withFeature := lo.Filter(plans, func(p *Plan, _ int) bool { return p.Active && p.HasFeature(feature) })
	if len(withFeature) == 0 {
		return nil, false
	}
	return lo.MinBy(withFeature, func(a, b *Plan) bool { return a.Tier < b.Tier }), true
}
